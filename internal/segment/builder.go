package segment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/Aman-CERP/amanmcp/internal/analysis"
	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

// pendingDoc is one document buffered in a Builder before Build commits
// it into a bleve batch and the columnar stores.
type pendingDoc struct {
	raw  doc.Raw
	norm *doc.Document
}

// Builder accumulates validated documents and constructs one new
// Segment from them (§4.4.2 "segment construction"). A Builder is used
// exactly once; discard it after Build.
type Builder struct {
	schema   *schema.Schema
	registry *analysis.Registry
	backend  storage.Backend
	pending  []pendingDoc
}

// NewBuilder returns a builder that will construct a segment under
// schema, using registry to resolve each Text field's tokenizer and
// backend to persist stored-field blobs and (for directory backends) a
// segment subdirectory.
func NewBuilder(s *schema.Schema, registry *analysis.Registry, backend storage.Backend) *Builder {
	return &Builder{schema: s, registry: registry, backend: backend}
}

// Add buffers one already-validated document along with the original
// raw map, used to reconstruct stored fields on retrieval.
func (b *Builder) Add(raw doc.Raw, normalized *doc.Document) {
	b.pending = append(b.pending, pendingDoc{raw: raw, norm: normalized})
}

// Len reports how many documents are currently buffered.
func (b *Builder) Len() int { return len(b.pending) }

// Build constructs a new immutable Segment from every buffered
// document, in insertion order (insertion order becomes local doc id
// order, §3.3). An empty Builder still produces a valid, empty
// segment.
func (b *Builder) Build(ctx context.Context) (*Segment, error) {
	id := storage.SegmentID(uuid.NewString())

	im := buildIndexMapping(b.schema, b.registry)

	var idx bleve.Index
	var err error
	if dir := b.backend.SegmentDir(id); dir != "" {
		idx, err = bleve.New(dir, im)
	} else {
		idx, err = bleve.NewMemOnly(im)
	}
	if err != nil {
		return nil, engineerr.New(engineerr.CodeCommitError, "open segment sub-index", err)
	}

	fast := make(map[schema.Handle]*FastColumn)
	for _, f := range b.schema.Fields() {
		if f.Options.Has(schema.Fast) {
			fast[f.Handle] = &FastColumn{Type: f.Type, Values: make([]doc.Value, len(b.pending))}
		}
	}

	batch := idx.NewBatch()
	for localID, pd := range b.pending {
		bleveDoc := projectDocument(b.schema, pd.norm)
		key := fmt.Sprintf("%d", localID)
		if err := batch.Index(key, bleveDoc); err != nil {
			_ = idx.Close()
			return nil, engineerr.New(engineerr.CodeCommitError, "index document into segment", err).
				WithDetail("local_doc_id", key)
		}

		for _, field := range pd.norm.Fields {
			info, ierr := b.schema.FieldInfo(field.Handle)
			if ierr != nil {
				continue
			}
			if !info.Options.Has(schema.Fast) || len(field.Values) == 0 {
				continue
			}
			fast[field.Handle].Values[localID] = field.Values[0]
		}

		blob, merr := encodeStoredBlob(b.schema, pd.raw)
		if merr != nil {
			_ = idx.Close()
			return nil, merr
		}
		if err := b.backend.PutStoredBlob(ctx, id, localID, blob); err != nil {
			_ = idx.Close()
			return nil, err
		}
	}

	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, engineerr.New(engineerr.CodeCommitError, "commit segment batch", err)
	}

	return &Segment{
		id:       id,
		schema:   b.schema,
		bleve:    idx,
		backend:  b.backend,
		fast:     fast,
		docCount: len(b.pending),
		deleted:  roaring.New(),
	}, nil
}

// buildIndexMapping projects a Schema into a bleve mapping.IndexMapping
// (§4.1→bleve "mapping" translation named in the DOMAIN STACK): one
// bleve document mapping with one field mapping per declared field.
func buildIndexMapping(s *schema.Schema, registry *analysis.Registry) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = schema.DefaultTokenizer
	im.TypeField = "_type"
	im.DefaultMapping = bleve.NewDocumentMapping()
	im.DefaultMapping.Dynamic = false

	for _, f := range s.Fields() {
		fm := fieldMappingFor(f)
		if fm != nil {
			im.DefaultMapping.AddFieldMappingsAt(f.Name, fm)
		}
	}
	_ = registry // analyzers are resolved by name through bleve's mirrored global registry, not this reference
	return im
}

func fieldMappingFor(f schema.FieldEntry) *mapping.FieldMapping {
	switch f.Type {
	case schema.Text, schema.Json, schema.IpAddr:
		fm := bleve.NewTextFieldMapping()
		fm.Store = f.Options.Has(schema.Stored)
		fm.Index = f.Options.Has(schema.Indexed)
		fm.IncludeInAll = false
		fm.IncludeTermVectors = f.Options.Has(schema.WithPositions)
		if f.Tokenizer != "" {
			fm.Analyzer = f.Tokenizer
		}
		return fm
	case schema.Facet:
		fm := bleve.NewTextFieldMapping()
		fm.Store = f.Options.Has(schema.Stored)
		fm.Index = true
		fm.Analyzer = "keyword"
		fm.IncludeInAll = false
		return fm
	// Numeric and date fields are also indexed when only FAST, since a
	// Range query over a FAST field runs against the bleve sub-index.
	case schema.U64, schema.I64:
		fm := bleve.NewNumericFieldMapping()
		fm.Store = f.Options.Has(schema.Stored)
		fm.Index = f.Options.Has(schema.Indexed) || f.Options.Has(schema.Fast)
		fm.IncludeInAll = false
		return fm
	case schema.F64:
		fm := bleve.NewNumericFieldMapping()
		fm.Store = f.Options.Has(schema.Stored)
		fm.Index = f.Options.Has(schema.Indexed) || f.Options.Has(schema.Fast)
		fm.IncludeInAll = false
		return fm
	case schema.Bool:
		fm := bleve.NewBooleanFieldMapping()
		fm.Store = f.Options.Has(schema.Stored)
		fm.Index = f.Options.Has(schema.Indexed)
		fm.IncludeInAll = false
		return fm
	case schema.Date:
		fm := bleve.NewDateTimeFieldMapping()
		fm.Store = f.Options.Has(schema.Stored)
		fm.Index = f.Options.Has(schema.Indexed) || f.Options.Has(schema.Fast)
		fm.IncludeInAll = false
		return fm
	case schema.Bytes:
		// bleve has no first-class binary field; bytes are only ever
		// exposed through the stored-field blob, never indexed/searched.
		return nil
	default:
		return nil
	}
}

// projectDocument turns the internal Document representation into the
// map[string]interface{} shape bleve's mapping walks.
func projectDocument(s *schema.Schema, d *doc.Document) map[string]interface{} {
	out := make(map[string]interface{}, len(d.Fields))
	for _, field := range d.Fields {
		info, err := s.FieldInfo(field.Handle)
		if err != nil {
			continue
		}
		if len(field.Values) == 1 {
			out[info.Name] = bleveValue(info, field.Values[0])
			continue
		}
		vs := make([]interface{}, len(field.Values))
		for i, v := range field.Values {
			vs[i] = bleveValue(info, v)
		}
		out[info.Name] = vs
	}
	return out
}

func bleveValue(info schema.FieldEntry, v doc.Value) interface{} {
	switch info.Type {
	case schema.Text, schema.Json, schema.IpAddr:
		return v.Text
	case schema.Facet:
		return v.Facet
	case schema.U64, schema.I64:
		return float64(v.Int)
	case schema.F64:
		return v.Float
	case schema.Bool:
		return v.Bool
	case schema.Date:
		// bleve's document-mapping walk only recognizes a "datetime"
		// field from a time.Time (or a string through a DateTimeParser,
		// none of which is registered here); handing it the raw
		// epoch-second int64 silently drops the field from the index.
		return time.Unix(v.Date, 0).UTC()
	default:
		return nil
	}
}

// encodeStoredBlob serializes only the STORED fields of raw, keyed by
// field name, as the segment's per-document stored-field blob.
func encodeStoredBlob(s *schema.Schema, raw doc.Raw) ([]byte, error) {
	filtered := make(map[string]interface{}, len(raw))
	for name, v := range raw {
		h, err := s.FieldByName(name)
		if err != nil {
			continue
		}
		info, err := s.FieldInfo(h)
		if err != nil || !info.Options.Has(schema.Stored) {
			continue
		}
		filtered[name] = v
	}
	data, err := json.Marshal(filtered)
	if err != nil {
		return nil, engineerr.New(engineerr.CodeCommitError, "encode stored fields", err)
	}
	return data, nil
}

func decodeStoredBlob(blob []byte) (doc.Raw, error) {
	var out doc.Raw
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil, engineerr.New(engineerr.CodeStorageIO, "decode stored fields", err)
	}
	return out, nil
}
