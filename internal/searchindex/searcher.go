// Package searchindex implements the Index Reader/Searcher (§4.5): a
// read-only, immutable view bound to one snapshot. Any number of
// Searchers may run concurrently with each other and with a Writer,
// since each holds only a reference to already-built, immutable
// segments (§5).
package searchindex

import (
	"context"
	"sort"

	"github.com/blevesearch/bleve/v2"

	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/segment"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

// Address is the engine's internal document identity: a segment and a
// local document id within it (§3.3). Stable only for the lifetime of
// the snapshot a Searcher is bound to.
type Address struct {
	Segment storage.SegmentID
	Doc     segment.LocalDocID
}

// Hit is one search result (§4.5 "search").
type Hit struct {
	Score   float64
	Address Address
	Stored  doc.Raw
}

// Stats is the read-only summary exposed by Searcher.Stats
// (SUPPLEMENTED FEATURES "SearcherMeta").
type Stats struct {
	SnapshotID   storage.SnapshotID
	SegmentCount int
	LiveDocCount int
}

// Searcher binds to one snapshot and holds a reference preventing GC
// of its segments for as long as it is open (§4.5).
type Searcher struct {
	schema   *schema.Schema
	backend  storage.Backend
	registry *segment.Registry

	snapshot storage.SnapshotDescriptor
	segments []*segment.Segment
}

// New binds a Searcher to backend's current latest snapshot (§4.5
// "new"). reg may be nil, in which case every segment not already
// resident is reopened directly from backend on each New/Reload call.
func New(ctx context.Context, s *schema.Schema, backend storage.Backend, reg *segment.Registry) (*Searcher, error) {
	se := &Searcher{schema: s, backend: backend, registry: reg}
	if err := se.bind(ctx); err != nil {
		return nil, err
	}
	return se, nil
}

// Reload rebinds the searcher to the backend's current latest
// snapshot (§4.5 "reload").
func (se *Searcher) Reload(ctx context.Context) error {
	return se.bind(ctx)
}

func (se *Searcher) bind(ctx context.Context) error {
	desc, ok, err := se.backend.LatestSnapshot(ctx)
	if err != nil {
		return err
	}
	if !ok {
		se.snapshot = storage.SnapshotDescriptor{ID: 0}
		se.segments = nil
		return nil
	}

	segments := make([]*segment.Segment, 0, len(desc.Segments))
	for _, ref := range desc.Segments {
		seg, err := segment.Load(ctx, se.registry, se.backend, se.schema, ref)
		if err != nil {
			return err
		}
		segments = append(segments, seg)
	}
	se.snapshot = desc
	se.segments = segments
	return nil
}

// Stats summarizes the bound snapshot.
func (se *Searcher) Stats() Stats {
	s := Stats{SnapshotID: se.snapshot.ID, SegmentCount: len(se.segments)}
	for _, seg := range se.segments {
		m := seg.Meta()
		s.LiveDocCount += m.DocCount - m.DeletedCount
	}
	return s
}

// Search executes q against the bound snapshot and returns the top
// limit hits ordered by descending score, tie-broken by ascending
// internal document address (§4.5).
func (se *Searcher) Search(ctx context.Context, q *query.Query, limit int) ([]Hit, error) {
	bq, err := query.ToBleve(q)
	if err != nil {
		return nil, err
	}

	var all []Hit
	for _, seg := range se.segments {
		if err := ctx.Err(); err != nil {
			return nil, engineerr.New(engineerr.CodeTimeout, "search aborted between segments", err).InPhase("segment")
		}

		req := bleve.NewSearchRequestOptions(bq, limit, 0, false)
		res, err := seg.Bleve().SearchInContext(ctx, req)
		if err != nil {
			return nil, engineerr.New(engineerr.CodeStorageIO, "segment search failed", err)
		}
		for _, hit := range res.Hits {
			localID, ok := parseLocalID(hit.ID)
			if !ok || !seg.IsLive(localID) {
				continue
			}
			all = append(all, Hit{
				Score:   hit.Score,
				Address: Address{Segment: seg.ID(), Doc: localID},
			})
		}
	}

	sortHits(all)
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}

	for i := range all {
		stored, err := se.docAt(ctx, all[i].Address)
		if err != nil {
			return nil, err
		}
		all[i].Stored = stored
	}
	return all, nil
}

// Count returns the number of live documents q matches, without
// fetching stored fields (§4.5 "count").
func (se *Searcher) Count(ctx context.Context, q *query.Query) (int, error) {
	bq, err := query.ToBleve(q)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, seg := range se.segments {
		if err := ctx.Err(); err != nil {
			return 0, engineerr.New(engineerr.CodeTimeout, "count aborted between segments", err).InPhase("segment")
		}
		n, err := countLiveMatches(ctx, seg, bq)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// Doc retrieves one document's stored fields by internal address
// (§4.5 "doc").
func (se *Searcher) Doc(ctx context.Context, addr Address) (doc.Raw, error) {
	return se.docAt(ctx, addr)
}

func (se *Searcher) docAt(ctx context.Context, addr Address) (doc.Raw, error) {
	for _, seg := range se.segments {
		if seg.ID() == addr.Segment {
			return seg.StoredFields(ctx, addr.Doc)
		}
	}
	return nil, engineerr.New(engineerr.CodeStorageIO, "segment not bound to this snapshot", nil).
		WithDetail("segment_id", string(addr.Segment))
}

func (se *Searcher) segmentByID(id storage.SegmentID) *segment.Segment {
	for _, seg := range se.segments {
		if seg.ID() == id {
			return seg
		}
	}
	return nil
}

// Close drops the searcher's references to its bound segments. It
// never closes a segment's underlying bleve index directly: segments
// are jointly owned through the shared Registry (or, with no
// registry, by whichever Searcher/Writer opened them), and closing one
// out from under a sibling Searcher would be unsound.
func (se *Searcher) Close() error {
	se.segments = nil
	return nil
}

func parseLocalID(id string) (segment.LocalDocID, bool) {
	n := 0
	if id == "" {
		return 0, false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return segment.LocalDocID(n), true
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Address.Segment != hits[j].Address.Segment {
			return hits[i].Address.Segment < hits[j].Address.Segment
		}
		return hits[i].Address.Doc < hits[j].Address.Doc
	})
}
