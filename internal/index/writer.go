// Package index implements the Index Writer (§4.4): buffers new
// documents and staged deletions, materializes them into segments on
// commit, and atomically publishes a new snapshot. At most one Writer
// may exist per index at a time, enforced by the storage backend's
// exclusive advisory lock.
package index

import (
	"context"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanmcp/internal/analysis"
	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/engineconfig"
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/segment"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

// MergePolicy decides whether a set of segments should be merged
// before publication (SUPPLEMENTED FEATURES). Only NoMergePolicy
// ships, and Commit does not call Plan: a policy installed with
// SetMergePolicy is stored but does not change which segments are
// published.
type MergePolicy interface {
	// Plan returns the groups of segments that should be merged into one.
	// NoMergePolicy always returns no groups.
	Plan(segments []*segment.Segment) [][]*segment.Segment
}

// NoMergePolicy never merges; every constructed segment is published
// as-is (the only implementation this repository ships, §9).
type NoMergePolicy struct{}

func (NoMergePolicy) Plan(segments []*segment.Segment) [][]*segment.Segment { return nil }

// Stats is the read-only snapshot exposed by Writer.Stats
// (SUPPLEMENTED FEATURES "SegmentMeta"/stats).
type Stats struct {
	SegmentCount   int
	LiveDocCount   int
	DeletedCount   int
	BufferedDocs   int
	StagedDeletes  int
}

// Writer is the Index Writer (§4.4). Every method serializes on an
// internal mutex, so goroutines may share one Writer; separately, the
// backend's exclusive lock allows only one Writer per index at a time.
type Writer struct {
	mu sync.Mutex

	schema   *schema.Schema
	registry *analysis.Registry
	backend  storage.Backend
	cfg      engineconfig.WriterConfig
	merge    MergePolicy
	log      *slog.Logger

	// segReg, if set via SetSegmentRegistry, receives every segment this
	// writer publishes so Searchers sharing the same registry see new
	// segments without reopening them from the backend (§5 DOMAIN STACK
	// LRU-cache-of-open-segments rationale).
	segReg *segment.Registry

	release storage.ReleaseFunc

	// current published state this writer started from.
	baseSnapshot storage.SnapshotDescriptor
	baseSegments []*segment.Segment

	// staged, uncommitted state.
	pending         *segment.Builder
	pendingRaw      []doc.Raw
	flushed         []*segment.Segment
	stagedDeletions []*query.Query
	memoryEstimate  int64
}

// Open acquires the writer lock and returns a Writer bound to idx's
// current latest snapshot (§4.4 "new").
func Open(ctx context.Context, s *schema.Schema, registry *analysis.Registry, backend storage.Backend, cfg engineconfig.WriterConfig, log *slog.Logger) (*Writer, error) {
	release, err := backend.AcquireWriterLock(ctx)
	if err != nil {
		return nil, err
	}

	base, ok, err := backend.LatestSnapshot(ctx)
	if err != nil {
		_ = release()
		return nil, err
	}
	if !ok {
		base = storage.SnapshotDescriptor{ID: 0}
	}

	if log == nil {
		log = slog.Default()
	}

	w := &Writer{
		schema:       s,
		registry:     registry,
		backend:      backend,
		cfg:          cfg,
		merge:        NoMergePolicy{},
		log:          log,
		release:      release,
		baseSnapshot: base,
		pending:      segment.NewBuilder(s, registry, backend),
	}
	return w, nil
}

// SetMergePolicy overrides the default NoMergePolicy. Commit does not
// consult the policy.
func (w *Writer) SetMergePolicy(m MergePolicy) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.merge = m
}

// SetSegmentRegistry shares reg with this writer: every segment it
// publishes from this point on is also registered in reg, so a
// Searcher constructed against the same reg observes it without a
// round trip through the storage backend.
func (w *Writer) SetSegmentRegistry(reg *segment.Registry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.segReg = reg
}

// AddDocument validates raw against the schema and buffers it (§4.4
// "add_document"). Returns SchemaMismatch and leaves the writer state
// unchanged if validation fails.
func (w *Writer) AddDocument(raw doc.Raw) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	normalized, err := doc.Validate(raw, w.schema, doc.Options{})
	if err != nil {
		return err
	}
	w.pending.Add(raw, normalized)
	w.pendingRaw = append(w.pendingRaw, raw)
	w.memoryEstimate += estimateSize(raw)

	if w.memoryEstimate > w.cfg.MemoryBudgetBytes {
		if err := w.flushLocked(context.Background()); err != nil {
			return err
		}
	}
	return nil
}

// DeleteDocuments stages a deletion query, applied to every segment
// (prior and newly constructed) at the next commit (§4.4
// "delete_documents").
func (w *Writer) DeleteDocuments(q *query.Query) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stagedDeletions = append(w.stagedDeletions, q)
	return nil
}

// DeleteAllDocuments stages a deletion of every live document (§4.4
// "delete_all_documents").
func (w *Writer) DeleteAllDocuments() error {
	return w.DeleteDocuments(query.MatchAll())
}

// flushLocked materializes the current buffer into a new, unpublished
// segment without publishing it (§4.4.1 "internal flush"). Caller
// holds w.mu.
func (w *Writer) flushLocked(ctx context.Context) error {
	if w.pending.Len() == 0 {
		return nil
	}
	seg, err := w.pending.Build(ctx)
	if err != nil {
		return err
	}
	w.flushed = append(w.flushed, seg)
	flushedBytes := w.memoryEstimate
	w.pending = segment.NewBuilder(w.schema, w.registry, w.backend)
	w.pendingRaw = nil
	w.memoryEstimate = 0
	w.log.Info("writer flushed buffer to unpublished segment",
		slog.String("segment_id", string(seg.ID())),
		slog.Int("doc_count", seg.DocCount()),
		slog.String("buffered", humanize.Bytes(uint64(flushedBytes))))
	return nil
}

// Commit materializes any remaining buffered documents, applies staged
// deletions, and atomically publishes a new snapshot (§4.4 steps
// 2–4). On success it returns the new SnapshotId and the writer's
// staged state is cleared; on failure the writer's state is
// unchanged and the caller may retry or Rollback.
func (w *Writer) Commit(ctx context.Context) (storage.SnapshotID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.flushLocked(ctx); err != nil {
		return 0, wrapCommitError(err)
	}

	base := w.baseSegments
	if base == nil {
		for _, ref := range w.baseSnapshot.Segments {
			seg, err := segment.Load(ctx, w.segReg, w.backend, w.schema, ref)
			if err != nil {
				return 0, wrapCommitError(err)
			}
			base = append(base, seg)
		}
	}
	allSegments := append(append([]*segment.Segment{}, base...), w.flushed...)

	if len(w.stagedDeletions) > 0 {
		// Deletions are marked on copies, so a failed commit leaves the
		// writer's own segments untouched.
		for i, seg := range allSegments {
			allSegments[i] = seg.WithDeletions(seg.Deletions())
		}
		if err := w.applyStagedDeletionsLocked(ctx, allSegments); err != nil {
			return 0, wrapCommitError(err)
		}
	}

	desc := storage.SnapshotDescriptor{ID: w.baseSnapshot.ID + 1}
	for _, seg := range allSegments {
		deletions := seg.Deletions()
		bytes, err := deletions.ToBytes()
		if err != nil {
			return 0, wrapCommitError(err)
		}
		desc.Segments = append(desc.Segments, storage.SegmentRef{ID: seg.ID(), Deletions: bytes})
	}

	if err := w.backend.CommitSnapshot(ctx, desc); err != nil {
		return 0, wrapCommitError(err)
	}

	w.log.Info("writer committed snapshot",
		slog.Int64("snapshot_id", int64(desc.ID)),
		slog.Int("segment_count", len(desc.Segments)))

	if w.segReg != nil {
		for _, seg := range allSegments {
			w.segReg.Put(seg)
		}
	}

	w.baseSnapshot = desc
	w.baseSegments = allSegments
	w.flushed = nil
	w.stagedDeletions = nil
	return desc.ID, nil
}

func wrapCommitError(err error) error {
	if engineerr.IsCode(err, engineerr.CodeCommitError) {
		return err
	}
	return engineerr.New(engineerr.CodeCommitError, "commit failed", err)
}

// applyStagedDeletionsLocked runs every staged deletion query against
// every segment (prior and newly constructed), OR-ing matches into
// that segment's deletion bitmap, fanned out across the writer's
// configured segment worker pool (§4.4.3, §5).
func (w *Writer) applyStagedDeletionsLocked(ctx context.Context, segments []*segment.Segment) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(w.cfg.SegmentWorkers, 1))

	for i := range segments {
		seg := segments[i]
		g.Go(func() error {
			extra := roaring.New()
			for _, q := range w.stagedDeletions {
				matched, err := matchingLocalDocIDs(gctx, seg, q)
				if err != nil {
					return err
				}
				extra.Or(matched)
			}
			seg.MarkDeleted(extra)
			return nil
		})
	}
	return g.Wait()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Rollback discards buffered documents, staged deletions, and any
// internally flushed-but-unpublished segments. The last published
// snapshot is unaffected (§4.4 "rollback").
func (w *Writer) Rollback() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, seg := range w.flushed {
		_ = seg.Close()
	}
	w.flushed = nil
	w.pending = segment.NewBuilder(w.schema, w.registry, w.backend)
	w.pendingRaw = nil
	w.memoryEstimate = 0
	w.stagedDeletions = nil
}

// Stats reports the writer's current view of the index (SUPPLEMENTED
// FEATURES "SegmentMeta"/stats).
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Stats{
		BufferedDocs:  w.pending.Len(),
		StagedDeletes: len(w.stagedDeletions),
	}
	for _, seg := range w.baseSegments {
		m := seg.Meta()
		s.SegmentCount++
		s.LiveDocCount += m.DocCount - m.DeletedCount
		s.DeletedCount += m.DeletedCount
	}
	for _, seg := range w.flushed {
		m := seg.Meta()
		s.SegmentCount++
		s.LiveDocCount += m.DocCount - m.DeletedCount
		s.DeletedCount += m.DeletedCount
	}
	return s
}

// Close releases the writer's exclusive lock on the storage backend.
// It does not commit or roll back any pending state.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.release == nil {
		return nil
	}
	err := w.release()
	w.release = nil
	return err
}

func estimateSize(raw doc.Raw) int64 {
	var total int64
	for k, v := range raw {
		total += int64(len(k)) + 16
		switch vv := v.(type) {
		case string:
			total += int64(len(vv))
		case []byte:
			total += int64(len(vv))
		case []interface{}:
			for _, e := range vv {
				if s, ok := e.(string); ok {
					total += int64(len(s))
				} else {
					total += 8
				}
			}
		default:
			total += 8
		}
	}
	return total
}
