// Package engine is the host-facing facade over the search engine's
// internal components:
//
//   - Clean interfaces that hide implementation details
//   - Replaceable components (swap storage backends without code changes)
//   - Single responsibility per internal package
//
// # Architecture
//
//	┌─────────────────┐
//	│  Host Application │
//	└────────┬───────────┘
//	         │
//	┌────────▼────────┐
//	│      Index      │  ← This package
//	│    (facade)     │
//	└────────┬────────┘
//	         │
//	    ┌────┴─────────────────────────────┐
//	    │         │         │              │
//	┌───▼───┐ ┌───▼────┐ ┌──▼──────┐ ┌─────▼──────┐
//	│ index │ │ search-│ │   agg   │ │coordinator │
//	│(write)│ │ index  │ │         │ │ (sharding) │
//	└───────┘ └────────┘ └─────────┘ └────────────┘
//
// # Usage
//
// Build a schema, open an index, add documents, and search:
//
//	b := engine.NewSchemaBuilder()
//	b.AddField("title", engine.Text, engine.IndexedStoredFast, "default")
//	sch := b.Build()
//
//	idx, err := engine.Open(ctx, sch, engine.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer idx.Close()
//
//	err = idx.AddDocument(ctx, doc.Raw{"title": "quick fox"})
//
//	hits, err := idx.SearchString(ctx, "title:quick", "title", 10)
//
// # Thread Safety
//
// Index is safe for concurrent use. Search and aggregation calls may
// run concurrently with each other and with writer commits, per §5.
package engine
