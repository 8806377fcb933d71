package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

// backendCases runs the shared Backend contract against every
// implementation so both stay behaviorally identical.
func backendCases(t *testing.T) map[string]Backend {
	t.Helper()
	dirBackend, err := Open(filepath.Join(t.TempDir(), "idx"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = dirBackend.Close() })

	return map[string]Backend{
		"memory":    NewMemory(),
		"directory": dirBackend,
	}
}

func TestBackendOpenSnapshotUnknownIsGone(t *testing.T) {
	for name, b := range backendCases(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.OpenSnapshot(context.Background(), 999)
			require.Error(t, err)
			assert.True(t, engineerr.IsCode(err, engineerr.CodeSnapshotGone))
		})
	}
}

func TestBackendCommitIsAtomicAndVisible(t *testing.T) {
	for name, b := range backendCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			desc := SnapshotDescriptor{
				ID: 1,
				Segments: []SegmentRef{
					{ID: "seg-a", Deletions: []byte{0x01}},
				},
			}
			require.NoError(t, b.CommitSnapshot(ctx, desc))

			got, ok, err := b.LatestSnapshot(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, desc.ID, got.ID)
			require.Len(t, got.Segments, 1)
			assert.Equal(t, SegmentID("seg-a"), got.Segments[0].ID)

			ids, err := b.ListSnapshots(ctx)
			require.NoError(t, err)
			assert.Contains(t, ids, SnapshotID(1))

			reopened, err := b.OpenSnapshot(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, desc, reopened)
		})
	}
}

func TestBackendGCRefusesLatest(t *testing.T) {
	for name, b := range backendCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.CommitSnapshot(ctx, SnapshotDescriptor{ID: 1}))

			require.NoError(t, b.GCSnapshot(ctx, 1))

			_, err := b.OpenSnapshot(ctx, 1)
			require.NoError(t, err, "latest snapshot must survive GC")
		})
	}
}

func TestBackendGCRemovesSupersededSnapshot(t *testing.T) {
	for name, b := range backendCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.CommitSnapshot(ctx, SnapshotDescriptor{ID: 1}))
			require.NoError(t, b.CommitSnapshot(ctx, SnapshotDescriptor{ID: 2}))

			require.NoError(t, b.GCSnapshot(ctx, 1))

			_, err := b.OpenSnapshot(ctx, 1)
			require.Error(t, err)
			assert.True(t, engineerr.IsCode(err, engineerr.CodeSnapshotGone))
		})
	}
}

func TestBackendWriterLockIsExclusive(t *testing.T) {
	for name, b := range backendCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			release, err := b.AcquireWriterLock(ctx)
			require.NoError(t, err)

			_, err = b.AcquireWriterLock(ctx)
			require.Error(t, err)
			assert.True(t, engineerr.IsCode(err, engineerr.CodeWriterLockHeld))

			require.NoError(t, release())

			release2, err := b.AcquireWriterLock(ctx)
			require.NoError(t, err, "lock must be reacquirable after release")
			require.NoError(t, release2())
		})
	}
}

func TestBackendStoredBlobRoundTrip(t *testing.T) {
	for name, b := range backendCases(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.PutStoredBlob(ctx, "seg-a", 7, []byte("hello")))

			got, err := b.GetStoredBlob(ctx, "seg-a", 7)
			require.NoError(t, err)
			assert.Equal(t, []byte("hello"), got)
		})
	}
}

func TestBackendStoredBlobMissingIsError(t *testing.T) {
	for name, b := range backendCases(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.GetStoredBlob(context.Background(), "seg-a", 42)
			assert.Error(t, err)
		})
	}
}

func TestSnapshotDescriptorMarshalRoundTrip(t *testing.T) {
	desc := SnapshotDescriptor{
		ID: 5,
		Segments: []SegmentRef{
			{ID: "seg-x", Deletions: []byte{0xFF, 0x00}},
		},
	}
	data, err := desc.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, desc, got)
}
