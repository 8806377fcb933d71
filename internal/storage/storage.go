// Package storage implements the abstract Storage Backend (§6.4): a
// byte-store with an in-memory and a directory-backed implementation,
// both satisfying: atomic snapshot publication, readable-while-written,
// and an exclusive advisory writer lock.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

// SnapshotID is the monotonic integer identifying a successful commit
// (§3.3, §5 ordering guarantees).
type SnapshotID int64

// SegmentID identifies one immutable segment on disk or in memory.
type SegmentID string

// SegmentRef is one segment's membership in a snapshot, along with its
// deletion bitmap serialized via roaring.Bitmap.ToBytes (§3.3).
type SegmentRef struct {
	ID        SegmentID `json:"id"`
	Deletions []byte    `json:"deletions"`
}

// SnapshotDescriptor enumerates a snapshot's segments and their
// deletion bitmaps (§3.3).
type SnapshotDescriptor struct {
	ID       SnapshotID   `json:"id"`
	Segments []SegmentRef `json:"segments"`
}

// Marshal/Unmarshal let callers persist a descriptor through a
// byte-oriented KV store without depending on JSON directly.
func (d SnapshotDescriptor) Marshal() ([]byte, error) { return json.Marshal(d) }

func UnmarshalDescriptor(b []byte) (SnapshotDescriptor, error) {
	var d SnapshotDescriptor
	err := json.Unmarshal(b, &d)
	return d, err
}

// ReleaseFunc releases a previously-acquired writer lock.
type ReleaseFunc func() error

// Backend is the abstract byte-store contract of §6.4. Both
// implementations guarantee: atomic snapshot publication via an
// all-or-nothing CommitSnapshot, and readers never block behind a writer
// (OpenSnapshot/ListSnapshots never take the writer lock). Neither
// takes an fsync-mode setting: the directory backend fsyncs every
// commit, and the memory backend has nothing to sync.
type Backend interface {
	// ListSnapshots returns every retained snapshot id, oldest first.
	ListSnapshots(ctx context.Context) ([]SnapshotID, error)

	// OpenSnapshot loads a previously committed descriptor. Returns
	// engineerr.CodeSnapshotGone if id has been garbage collected.
	OpenSnapshot(ctx context.Context, id SnapshotID) (SnapshotDescriptor, error)

	// LatestSnapshot returns the most recently committed descriptor, or
	// ok=false if nothing has ever been committed.
	LatestSnapshot(ctx context.Context) (desc SnapshotDescriptor, ok bool, err error)

	// SegmentDir returns a filesystem directory a segment may use to
	// persist its own index structures, or "" for backends (memory) that
	// have no filesystem and expect the segment to stay fully resident.
	SegmentDir(id SegmentID) string

	// PutStoredBlob/GetStoredBlob hold the per-document stored-field
	// blob for a segment (§3.3 "stored-field blob store").
	PutStoredBlob(ctx context.Context, seg SegmentID, localDocID int, data []byte) error
	GetStoredBlob(ctx context.Context, seg SegmentID, localDocID int) ([]byte, error)

	// CommitSnapshot durably and atomically publishes desc as the new
	// latest snapshot (§4.4.4, §6.4).
	CommitSnapshot(ctx context.Context, desc SnapshotDescriptor) error

	// GCSnapshot removes a superseded, unreferenced snapshot's on-disk
	// state (§3.3 lifecycle). It is a no-op if id is still the latest
	// snapshot or does not exist.
	GCSnapshot(ctx context.Context, id SnapshotID) error

	// AcquireWriterLock takes the exclusive advisory lock enforcing "at
	// most one writer per index at a time" (§4.4.6, §5). Returns
	// engineerr.CodeWriterLockHeld if another writer already holds it.
	AcquireWriterLock(ctx context.Context) (ReleaseFunc, error)

	// Close releases all resources (open files, database handles).
	Close() error
}

func errLockHeld(cause error) error {
	return engineerr.New(engineerr.CodeWriterLockHeld, "writer lock already held", cause)
}

func errSnapshotGone(id SnapshotID) error {
	return engineerr.New(engineerr.CodeSnapshotGone, "snapshot has been garbage collected", nil).
		WithDetail("snapshot_id", fmt.Sprintf("%d", id))
}

func errStorageIO(op string, cause error) error {
	return engineerr.New(engineerr.CodeStorageIO, op, cause)
}
