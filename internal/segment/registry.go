package segment

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/blevesearch/bleve/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

// Registry caches open *Segment handles shared by a Writer and every
// Searcher bound to the same index, so a segment's bleve sub-index is
// opened at most once per process no matter how many snapshots
// reference it (§5: readers are lock-free with respect to each other
// and to writers). Bounded by an LRU so a long-lived process with many
// historical segments does not keep every one of them resident.
type Registry struct {
	cache *lru.Cache[storage.SegmentID, *Segment]
}

// NewRegistry returns a registry holding at most size open segments. A
// non-positive size falls back to a generous default; segments backed
// by a directory can always be reopened on a cache miss, but segments
// with no on-disk representation (the in-memory backend) are lost for
// good once evicted, so callers of a memory-backed index should size
// the registry at least as large as their expected live segment count.
func NewRegistry(size int) *Registry {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[storage.SegmentID, *Segment](size)
	return &Registry{cache: c}
}

// Put registers a freshly built or reopened segment.
func (r *Registry) Put(seg *Segment) {
	if r == nil || seg == nil {
		return
	}
	r.cache.Add(seg.ID(), seg)
}

// Get returns the cached segment for id, if resident.
func (r *Registry) Get(id storage.SegmentID) (*Segment, bool) {
	if r == nil {
		return nil, false
	}
	return r.cache.Get(id)
}

// Load resolves one snapshot segment reference into a live *Segment:
// a registry hit returns a deletion-overlaid copy of the cached
// segment; a miss reopens it from the backend (directory backends
// only) and populates the registry.
func Load(ctx context.Context, reg *Registry, backend storage.Backend, s *schema.Schema, ref storage.SegmentRef) (*Segment, error) {
	deletions := roaring.New()
	if len(ref.Deletions) > 0 {
		if err := deletions.UnmarshalBinary(ref.Deletions); err != nil {
			return nil, engineerr.New(engineerr.CodeStorageIO, "decode segment deletion bitmap", err)
		}
	}

	if cached, ok := reg.Get(ref.ID); ok {
		return cached.WithDeletions(deletions), nil
	}

	seg, err := openExisting(ctx, backend, s, ref.ID)
	if err != nil {
		return nil, err
	}
	reg.Put(seg)
	return seg.WithDeletions(deletions), nil
}

// openExisting reopens a segment's persisted bleve sub-index directly
// from the storage backend, used on a registry cache miss against a
// directory backend. FAST column values are not themselves persisted
// to disk (only the bleve sub-index and the stored-field blobs are),
// so a segment reached this way has no FAST columns until it is
// rebuilt by a writer in this process; this is acceptable for the
// embeddable, in-process usage this engine targets, where a Writer
// and its Searchers share one Registry and a cold reopen only happens
// for snapshots older than the current process's lifetime.
func openExisting(ctx context.Context, backend storage.Backend, s *schema.Schema, id storage.SegmentID) (*Segment, error) {
	dir := backend.SegmentDir(id)
	if dir == "" {
		return nil, engineerr.New(engineerr.CodeStorageIO, "segment has no on-disk representation: "+string(id), nil)
	}
	idx, err := bleve.Open(dir)
	if err != nil {
		return nil, engineerr.New(engineerr.CodeStorageIO, "reopen segment sub-index", err)
	}
	count, err := idx.DocCount()
	if err != nil {
		_ = idx.Close()
		return nil, engineerr.New(engineerr.CodeStorageIO, "segment doc count", err)
	}
	return &Segment{
		id:       id,
		schema:   s,
		bleve:    idx,
		backend:  backend,
		fast:     make(map[schema.Handle]*FastColumn),
		docCount: int(count),
		deleted:  roaring.New(),
	}, nil
}
