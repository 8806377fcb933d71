package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Aman-CERP/amanmcp/internal/analysis"
	"github.com/Aman-CERP/amanmcp/internal/coordinator"
	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/engineconfig"
	"github.com/Aman-CERP/amanmcp/internal/index"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/searchindex"
	"github.com/Aman-CERP/amanmcp/internal/segment"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

// Config is a re-export of the engine-wide tunables (engineconfig.Config),
// so a host never has to import an internal package directly.
type Config = engineconfig.Config

// DefaultConfig returns sensible defaults (memory backend, 2s shard
// timeout, 3-strike health checks); override field-by-field as needed.
func DefaultConfig() Config { return engineconfig.Default() }

// LoadConfig reads a YAML config file and overlays it onto DefaultConfig().
func LoadConfig(path string) (Config, error) { return engineconfig.Load(path) }

// Backend selects the storage backend implementation (§6.4).
const (
	BackendMemory    = engineconfig.BackendMemory
	BackendDirectory = engineconfig.BackendDirectory
)

// Index is the host-facing handle on one embedded search index: a
// schema, a storage backend, and a live Searcher kept current via
// Reload. It composes the internal Index Writer, Index Reader, and
// Aggregation Engine into the single object a host embeds.
//
// Index is safe for concurrent use: Search/aggregation calls and
// NewWriter take the read lock, while Reload and Close take the
// exclusive lock to rebind or release the Searcher. AddDocument holds
// the exclusive lock only for its closing Reload.
type Index struct {
	mu sync.RWMutex

	schema   *schema.Schema
	registry *analysis.Registry
	backend  storage.Backend
	segReg   *segment.Registry
	cfg      Config
	log      *slog.Logger

	searcher *searchindex.Searcher
}

// Option configures Open.
type Option func(*Index)

// WithLogger overrides the default slog.Default() logger used by the
// underlying Index Writer.
func WithLogger(log *slog.Logger) Option {
	return func(idx *Index) { idx.log = log }
}

// WithAnalysisRegistry supplies a pre-configured tokenizer/analyzer
// registry instead of the default catalog installed by
// analysis.Registry.RegisterDefaults.
func WithAnalysisRegistry(reg *analysis.Registry) Option {
	return func(idx *Index) { idx.registry = reg }
}

// WithSegmentRegistryCapacity bounds the number of open segments kept
// resident (see segment.NewRegistry). Zero keeps the registry's own
// default.
func WithSegmentRegistryCapacity(n int) Option {
	return func(idx *Index) { idx.segReg = segment.NewRegistry(n) }
}

// Open opens (or creates) an index bound to s and cfg. cfg.Backend
// selects a storage.MemoryBackend or storage.DirectoryBackend rooted
// at cfg.DataDir; the returned Index binds a Searcher to whatever
// snapshot already exists (or an empty one, for a brand new index).
func Open(ctx context.Context, s *schema.Schema, cfg Config, opts ...Option) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid config: %w", err)
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		schema:  s,
		backend: backend,
		cfg:     cfg,
		log:     slog.Default(),
		segReg:  segment.NewRegistry(0),
	}
	for _, opt := range opts {
		opt(idx)
	}

	if idx.registry == nil {
		reg := analysis.New()
		if err := reg.RegisterDefaults(); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("engine: register default analyzers: %w", err)
		}
		idx.registry = reg
	}

	se, err := searchindex.New(ctx, s, backend, idx.segReg)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("engine: open searcher: %w", err)
	}
	idx.searcher = se

	return idx, nil
}

func openBackend(cfg Config) (storage.Backend, error) {
	switch cfg.Backend {
	case engineconfig.BackendDirectory:
		b, err := storage.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("engine: open directory backend %s: %w", cfg.DataDir, err)
		}
		return b, nil
	case engineconfig.BackendMemory, "":
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("engine: unknown backend %q", cfg.Backend)
	}
}

// Schema returns the schema this index was opened with.
func (idx *Index) Schema() *schema.Schema { return idx.schema }

// NewWriter opens an Index Writer bound to this index's current
// published snapshot (§4.4 "new"). At most one Writer may be open at a
// time across the whole process, enforced by the storage backend's
// exclusive advisory lock; NewWriter returns WriterLockHeld if another
// writer already holds it.
//
// The returned writer is pre-wired to this Index's segment registry,
// so Reload after Commit sees newly published segments without a
// round trip through the storage backend.
func (idx *Index) NewWriter(ctx context.Context) (*index.Writer, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	w, err := index.Open(ctx, idx.schema, idx.registry, idx.backend, idx.cfg.Writer, idx.log)
	if err != nil {
		return nil, err
	}
	w.SetSegmentRegistry(idx.segReg)
	return w, nil
}

// AddDocument is a convenience wrapper around the common
// open-writer/add-one/commit/close/reload cycle, for hosts that do not
// need to batch multiple documents into one commit.
func (idx *Index) AddDocument(ctx context.Context, raw doc.Raw) error {
	w, err := idx.NewWriter(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.AddDocument(raw); err != nil {
		return err
	}
	if _, err := w.Commit(ctx); err != nil {
		return err
	}
	return idx.Reload(ctx)
}

// Reload rebinds this Index's Searcher to the backend's latest
// published snapshot (§4.5), so a host sees documents committed by a
// writer opened elsewhere against the same backend.
func (idx *Index) Reload(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.searcher.Reload(ctx)
}

// Stats reports the currently bound snapshot's size.
func (idx *Index) Stats() searchindex.Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.searcher.Stats()
}

// AsShard adapts this Index's live Searcher into a coordinator.Shard,
// so a host can register several Index instances (e.g. one per data
// partition) behind a single coordinator.Coordinator.
func (idx *Index) AsShard() coordinator.Shard {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return &coordinator.SearcherShard{Searcher: idx.searcher}
}

// Close releases the Searcher's reference on the bound snapshot and
// closes the storage backend. It does not affect any Writer opened
// against the same backend from elsewhere.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.searcher.Close(); err != nil {
		return err
	}
	return idx.backend.Close()
}
