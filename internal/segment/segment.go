// Package segment implements the immutable Segment (§3.3): one
// self-contained unit of indexed documents, built once and never
// mutated in place. A segment owns a bleve sub-index for indexed text
// and numeric fields, a columnar store for FAST field access (used by
// the Aggregation Engine), a stored-field
// blob per document, and a deletion bitmap recording which of its
// local document ids are still live in the current snapshot.
package segment

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/blevesearch/bleve/v2"

	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

// LocalDocID addresses a document within one segment (§3.3). The pair
// (SegmentID, LocalDocID) is the engine's only notion of document
// identity; it is never exposed to hosts.
type LocalDocID int

// FastColumn holds one FAST field's values for every live and deleted
// local doc id in a segment, in local-doc-id order. Deleted docs keep
// their slot so LocalDocID stays a stable dense index.
type FastColumn struct {
	Type   schema.FieldType
	Values []doc.Value
}

// Meta is the read-only descriptive summary of a segment (§3.3,
// SUPPLEMENTED FEATURES "SegmentMeta").
type Meta struct {
	ID           storage.SegmentID
	DocCount     int
	DeletedCount int
	SizeBytes    int64
}

// Segment is one immutable indexed unit. All exported methods are safe
// for concurrent read-only use; a segment is never mutated after Build
// returns except for its deletion bitmap, which is copy-on-write at
// the snapshot layer (internal/index owns that).
type Segment struct {
	id       storage.SegmentID
	schema   *schema.Schema
	bleve    bleve.Index
	backend  storage.Backend
	fast     map[schema.Handle]*FastColumn
	docCount int
	deleted  *roaring.Bitmap
}

// ID returns the segment's stable identifier.
func (s *Segment) ID() storage.SegmentID { return s.id }

// Bleve exposes the underlying per-segment index for query execution
// in internal/searchindex; kept as a plain accessor rather than
// embedding so the segment can still intercept/validate calls later.
func (s *Segment) Bleve() bleve.Index { return s.bleve }

// DocCount returns the total number of local document ids ever
// assigned in this segment, live or deleted.
func (s *Segment) DocCount() int { return s.docCount }

// IsLive reports whether id has not been marked deleted.
func (s *Segment) IsLive(id LocalDocID) bool {
	return !s.deleted.Contains(uint32(id))
}

// Deletions returns a cloned snapshot of the current deletion bitmap,
// safe for the caller to mutate or serialize independently.
func (s *Segment) Deletions() *roaring.Bitmap {
	return s.deleted.Clone()
}

// MarkDeleted ORs extra into the segment's live deletion bitmap. Used
// by the Index Writer when publishing a new snapshot whose staged
// deletions matched documents in this segment (§4.4.3).
func (s *Segment) MarkDeleted(extra *roaring.Bitmap) {
	s.deleted.Or(extra)
}

// WithDeletions returns a shallow copy of the segment with its
// deletion bitmap replaced, used when constructing a new snapshot
// without mutating a segment shared with older, still-open snapshots.
func (s *Segment) WithDeletions(bitmap *roaring.Bitmap) *Segment {
	cp := *s
	cp.deleted = bitmap.Clone()
	return &cp
}

// FastValue reads one document's value for a FAST field. Returns
// engineerr.CodeUnknownField if name is not a FAST field in this
// segment's schema.
func (s *Segment) FastValue(name string, id LocalDocID) (doc.Value, bool, error) {
	h, err := s.schema.FieldByName(name)
	if err != nil {
		return doc.Value{}, false, err
	}
	col, ok := s.fast[h]
	if !ok {
		return doc.Value{}, false, engineerr.New(engineerr.CodeUnknownField, "not a FAST field: "+name, nil)
	}
	if int(id) < 0 || int(id) >= len(col.Values) {
		return doc.Value{}, false, nil
	}
	return col.Values[id], true, nil
}

// FastColumnByName returns the full columnar array for a FAST field.
// The Aggregation Engine does not call it; it reads one document at a
// time through FastValue.
func (s *Segment) FastColumnByName(name string) (*FastColumn, error) {
	h, err := s.schema.FieldByName(name)
	if err != nil {
		return nil, err
	}
	col, ok := s.fast[h]
	if !ok {
		return nil, engineerr.New(engineerr.CodeUnknownField, "not a FAST field: "+name, nil)
	}
	return col, nil
}

// StoredFields fetches and decodes the original field values stored
// for a document, used to answer `doc()` lookups and snippet
// generation (§4.5).
func (s *Segment) StoredFields(ctx context.Context, id LocalDocID) (doc.Raw, error) {
	blob, err := s.backend.GetStoredBlob(ctx, s.id, int(id))
	if err != nil {
		return nil, err
	}
	return decodeStoredBlob(blob)
}

// Meta summarizes the segment for stats reporting.
func (s *Segment) Meta() Meta {
	return Meta{
		ID:           s.id,
		DocCount:     s.docCount,
		DeletedCount: int(s.deleted.GetCardinality()),
	}
}

// Close releases the segment's underlying bleve sub-index.
func (s *Segment) Close() error {
	if s.bleve == nil {
		return nil
	}
	return s.bleve.Close()
}
