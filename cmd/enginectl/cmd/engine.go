package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/amanmcp/pkg/engine"
)

// schemaFile is the file name ToJSON/FromJSON is persisted under inside
// a --data-dir, mirroring tantivy's meta.json convention (SUPPLEMENTED
// FEATURES).
const schemaFile = "schema.json"

// demoSchema is the fixed schema `schema init` writes out: enough field
// variety (text with positions, a fast numeric, a fast date, a facet)
// to exercise search, snippet/explain, and every aggregation bucket and
// metric kind from the other subcommands.
func demoSchema() *engine.Schema {
	b := engine.NewSchemaBuilder()
	_ = b.AddField("title", engine.Text, engine.IndexedStoredFast|engine.WithPositions, "default")
	_ = b.AddField("body", engine.Text, engine.IndexedStored|engine.WithPositions, "default")
	_ = b.AddField("category", engine.Facet, engine.Stored, "")
	_ = b.AddField("price", engine.F64, engine.FastStored, "")
	_ = b.AddField("created_at", engine.Date, engine.FastStored, "")
	return b.Build()
}

func loadSchema(dir string) (*engine.Schema, error) {
	data, err := os.ReadFile(filepath.Join(dir, schemaFile))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w (run 'enginectl schema init' first)", schemaFile, err)
	}
	return engine.SchemaFromJSON(data)
}

func writeSchema(dir string, s *engine.Schema) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := s.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize schema: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, schemaFile), data, 0o644)
}

// openIndex opens the index rooted at dir, requiring schema init to
// have already run there.
func openIndex(ctx context.Context, dir string) (*engine.Index, error) {
	s, err := loadSchema(dir)
	if err != nil {
		return nil, err
	}
	cfg := engine.DefaultConfig()
	cfg.Backend = engine.BackendDirectory
	cfg.DataDir = dir
	return engine.Open(ctx, s, cfg)
}
