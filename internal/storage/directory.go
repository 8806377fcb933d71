package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	bolt "go.etcd.io/bbolt"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketBlobs     = []byte("blobs")
)

// DirectoryBackend is the disk-backed Storage Backend (§6.4). Snapshot
// descriptors and stored-field blobs live in a single bbolt database
// (`meta.db`); each segment gets its own subdirectory under `segments/`
// for its bleve sub-index. bbolt's MVCC read transactions give
// "readable while written" without the directory backend needing to
// implement its own copy-on-write scheme, and its commit path already
// fsyncs the data file, satisfying the durable-commit requirement.
type DirectoryBackend struct {
	dir  string
	db   *bolt.DB
	lock *flock.Flock
}

// Open creates dir if needed and opens (or initializes) its metadata
// database. It does not itself take the writer lock — AcquireWriterLock
// does that lazily, since a plain reader-only open must not block on a
// concurrent writer.
func Open(dir string) (*DirectoryBackend, error) {
	if err := os.MkdirAll(filepath.Join(dir, "segments"), 0o755); err != nil {
		return nil, errStorageIO("create index directory", err)
	}

	db, err := bolt.Open(filepath.Join(dir, "meta.db"), 0o644, nil)
	if err != nil {
		return nil, errStorageIO("open metadata database", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshots); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errStorageIO("initialize metadata buckets", err)
	}

	return &DirectoryBackend{
		dir:  dir,
		db:   db,
		lock: flock.New(filepath.Join(dir, ".writer.lock")),
	}, nil
}

func (d *DirectoryBackend) ListSnapshots(ctx context.Context) ([]SnapshotID, error) {
	var ids []SnapshotID
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		return b.ForEach(func(k, v []byte) error {
			id, err := strconv.ParseInt(string(k), 10, 64)
			if err != nil {
				return nil
			}
			ids = append(ids, SnapshotID(id))
			return nil
		})
	})
	if err != nil {
		return nil, errStorageIO("list snapshots", err)
	}
	return ids, nil
}

func (d *DirectoryBackend) OpenSnapshot(ctx context.Context, id SnapshotID) (SnapshotDescriptor, error) {
	var desc SnapshotDescriptor
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSnapshots).Get(snapshotKey(id))
		if raw == nil {
			return nil
		}
		found = true
		var err error
		desc, err = UnmarshalDescriptor(raw)
		return err
	})
	if err != nil {
		return SnapshotDescriptor{}, errStorageIO("open snapshot", err)
	}
	if !found {
		return SnapshotDescriptor{}, errSnapshotGone(id)
	}
	return desc, nil
}

func (d *DirectoryBackend) LatestSnapshot(ctx context.Context) (SnapshotDescriptor, bool, error) {
	var desc SnapshotDescriptor
	var found bool
	err := d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSnapshots).Cursor()
		k, v := c.Last()
		if k == nil {
			return nil
		}
		found = true
		var err error
		desc, err = UnmarshalDescriptor(v)
		return err
	})
	if err != nil {
		return SnapshotDescriptor{}, false, errStorageIO("load latest snapshot", err)
	}
	return desc, found, nil
}

func (d *DirectoryBackend) SegmentDir(id SegmentID) string {
	return filepath.Join(d.dir, "segments", string(id))
}

func (d *DirectoryBackend) PutStoredBlob(ctx context.Context, seg SegmentID, localDocID int, data []byte) error {
	err := d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put(blobKey(seg, localDocID), data)
	})
	if err != nil {
		return errStorageIO("put stored blob", err)
	}
	return nil
}

func (d *DirectoryBackend) GetStoredBlob(ctx context.Context, seg SegmentID, localDocID int) ([]byte, error) {
	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get(blobKey(seg, localDocID))
		if v == nil {
			return errStorageIO("stored blob not found", nil)
		}
		out = append(out, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CommitSnapshot writes desc inside a single bolt transaction. bolt's
// transaction commit is itself atomic and, by default, fsyncs before
// returning. DirectoryBackend never sets bolt's NoSync option and Open
// takes no fsync setting, so every commit is fsynced; engineconfig's
// Fsync and GroupCommitWindow do not reach this backend.
func (d *DirectoryBackend) CommitSnapshot(ctx context.Context, desc SnapshotDescriptor) error {
	data, err := desc.Marshal()
	if err != nil {
		return errStorageIO("marshal snapshot descriptor", err)
	}
	err = d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Put(snapshotKey(desc.ID), data)
	})
	if err != nil {
		return errStorageIO("commit snapshot", err)
	}
	return nil
}

func (d *DirectoryBackend) GCSnapshot(ctx context.Context, id SnapshotID) error {
	latest, ok, err := d.LatestSnapshot(ctx)
	if err != nil {
		return err
	}
	if ok && latest.ID == id {
		return nil
	}

	desc, err := d.OpenSnapshot(ctx, id)
	if err != nil {
		if engineerr.IsCode(err, engineerr.CodeSnapshotGone) {
			return nil
		}
		return err
	}

	err = d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshots).Delete(snapshotKey(id))
	})
	if err != nil {
		return errStorageIO("gc snapshot descriptor", err)
	}

	for _, seg := range desc.Segments {
		_ = os.RemoveAll(d.SegmentDir(seg.ID))
	}
	return nil
}

func (d *DirectoryBackend) AcquireWriterLock(ctx context.Context) (ReleaseFunc, error) {
	ok, err := d.lock.TryLock()
	if err != nil {
		return nil, errStorageIO("acquire writer lock", err)
	}
	if !ok {
		return nil, errLockHeld(nil)
	}
	return func() error {
		return d.lock.Unlock()
	}, nil
}

func (d *DirectoryBackend) Close() error {
	if d.lock.Locked() {
		_ = d.lock.Unlock()
	}
	return d.db.Close()
}

func snapshotKey(id SnapshotID) []byte {
	return []byte(fmt.Sprintf("%020d", int64(id)))
}

func blobKey(seg SegmentID, localDocID int) []byte {
	return []byte(fmt.Sprintf("%s/%020d", seg, localDocID))
}

var _ Backend = (*DirectoryBackend)(nil)
