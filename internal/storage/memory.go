package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryBackend is the in-memory Storage Backend implementation (§6.4).
// It never touches disk; SegmentDir always returns "" so segments keep
// their bleve sub-index fully resident via bleve.NewMemOnly.
type MemoryBackend struct {
	mu          sync.RWMutex
	snapshots   map[SnapshotID]SnapshotDescriptor
	order       []SnapshotID
	blobs       map[SegmentID]map[int][]byte
	writerLock  bool
	writerMu    sync.Mutex
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{
		snapshots: make(map[SnapshotID]SnapshotDescriptor),
		blobs:     make(map[SegmentID]map[int][]byte),
	}
}

func (m *MemoryBackend) ListSnapshots(ctx context.Context) ([]SnapshotID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SnapshotID, len(m.order))
	copy(out, m.order)
	return out, nil
}

func (m *MemoryBackend) OpenSnapshot(ctx context.Context, id SnapshotID) (SnapshotDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.snapshots[id]
	if !ok {
		return SnapshotDescriptor{}, errSnapshotGone(id)
	}
	return d, nil
}

func (m *MemoryBackend) LatestSnapshot(ctx context.Context) (SnapshotDescriptor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.order) == 0 {
		return SnapshotDescriptor{}, false, nil
	}
	return m.snapshots[m.order[len(m.order)-1]], true, nil
}

func (m *MemoryBackend) SegmentDir(id SegmentID) string { return "" }

func (m *MemoryBackend) PutStoredBlob(ctx context.Context, seg SegmentID, localDocID int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.blobs[seg]
	if !ok {
		bucket = make(map[int][]byte)
		m.blobs[seg] = bucket
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	bucket[localDocID] = cp
	return nil
}

func (m *MemoryBackend) GetStoredBlob(ctx context.Context, seg SegmentID, localDocID int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket, ok := m.blobs[seg]
	if !ok {
		return nil, errStorageIO("stored blob not found", nil)
	}
	data, ok := bucket[localDocID]
	if !ok {
		return nil, errStorageIO("stored blob not found", nil)
	}
	return data, nil
}

// CommitSnapshot publishes desc atomically: the new entry becomes
// visible to ListSnapshots/OpenSnapshot/LatestSnapshot in a single
// critical section, so no reader ever observes a half-published
// snapshot (§4.4.4, T2).
func (m *MemoryBackend) CommitSnapshot(ctx context.Context, desc SnapshotDescriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[desc.ID] = desc
	m.order = append(m.order, desc.ID)
	sort.Slice(m.order, func(i, j int) bool { return m.order[i] < m.order[j] })
	return nil
}

func (m *MemoryBackend) GCSnapshot(ctx context.Context, id SnapshotID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) > 0 && m.order[len(m.order)-1] == id {
		return nil // never GC the latest snapshot
	}
	delete(m.snapshots, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryBackend) AcquireWriterLock(ctx context.Context) (ReleaseFunc, error) {
	m.writerMu.Lock()
	defer m.writerMu.Unlock()
	if m.writerLock {
		return nil, errLockHeld(nil)
	}
	m.writerLock = true
	return func() error {
		m.writerMu.Lock()
		defer m.writerMu.Unlock()
		m.writerLock = false
		return nil
	}, nil
}

func (m *MemoryBackend) Close() error { return nil }

var _ Backend = (*MemoryBackend)(nil)
