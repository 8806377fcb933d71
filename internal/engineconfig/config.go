// Package engineconfig holds the engine-wide tunables left to the
// implementer: writer memory budget, commit durability mode, worker
// pool sizes, and the distributed coordinator's timeouts. Config is
// YAML-backed so a host can load it from a file or build it in code.
package engineconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FsyncMode selects the commit durability tradeoff described in §6.4.
type FsyncMode string

const (
	// FsyncAlways fsyncs on every commit (default; strongest durability).
	FsyncAlways FsyncMode = "always"
	// FsyncGroup names the group-commit tradeoff (fsyncs batched across
	// commits within GroupCommitWindow). No component reads the Fsync
	// setting: the directory backend fsyncs every commit whichever mode
	// is configured.
	FsyncGroup FsyncMode = "group"
)

// Backend selects the storage backend implementation (§6.4).
type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendDirectory Backend = "directory"
)

// WriterConfig configures an Index Writer (§4.4).
type WriterConfig struct {
	// MemoryBudgetBytes bounds the writer's in-memory buffer before an
	// internal flush is triggered (§4.4.1).
	MemoryBudgetBytes int64 `yaml:"memory_budget_bytes" json:"memory_budget_bytes"`
	// SegmentWorkers bounds how many segments a commit scans concurrently
	// while applying staged deletions (§5). Segment construction itself
	// runs on one goroutine.
	SegmentWorkers int `yaml:"segment_workers" json:"segment_workers"`
	// Fsync names the commit durability tradeoff. It is carried in the
	// config only; neither the writer nor a storage backend reads it.
	Fsync FsyncMode `yaml:"fsync" json:"fsync"`
	// GroupCommitWindow is the batching window named for FsyncGroup;
	// like Fsync, it is not read by the writer or a storage backend.
	GroupCommitWindow time.Duration `yaml:"group_commit_window" json:"group_commit_window"`
}

// AggregationConfig bounds the Aggregation Engine (§4.7).
type AggregationConfig struct {
	// MemoryBudgetBytes caps accumulator memory per request; exceeding it
	// fails the request with AggregationLimitExceeded rather than
	// truncating silently.
	MemoryBudgetBytes int64 `yaml:"memory_budget_bytes" json:"memory_budget_bytes"`
	// MaxNestingDepth bounds sub_aggregations nesting (default 3 per §3.6).
	MaxNestingDepth int `yaml:"max_nesting_depth" json:"max_nesting_depth"`
	// PercentileCompression is the t-digest compression parameter; higher
	// values trade memory for accuracy.
	PercentileCompression float64 `yaml:"percentile_compression" json:"percentile_compression"`
}

// CoordinatorConfig configures the Distributed Coordinator (§4.8).
type CoordinatorConfig struct {
	// ShardTimeout bounds a single shard's search call.
	ShardTimeout time.Duration `yaml:"shard_timeout" json:"shard_timeout"`
	// GlobalDeadline bounds the entire fan-out, independent of per-shard
	// timeouts.
	GlobalDeadline time.Duration `yaml:"global_deadline" json:"global_deadline"`
	// HealthCheckInterval is how often shards are pinged.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
	// UnhealthyThreshold is the number of consecutive failed pings before
	// a shard is marked :down (default 3 per §4.8).
	UnhealthyThreshold int `yaml:"unhealthy_threshold" json:"unhealthy_threshold"`
}

// Config is the complete engine configuration.
type Config struct {
	Backend     Backend           `yaml:"backend" json:"backend"`
	DataDir     string            `yaml:"data_dir" json:"data_dir"`
	Writer      WriterConfig      `yaml:"writer" json:"writer"`
	Aggregation AggregationConfig `yaml:"aggregation" json:"aggregation"`
	Coordinator CoordinatorConfig `yaml:"coordinator" json:"coordinator"`
}

// Default returns a single well-documented baseline that callers
// override field-by-field.
func Default() Config {
	return Config{
		Backend: BackendMemory,
		Writer: WriterConfig{
			MemoryBudgetBytes: 64 * 1024 * 1024,
			SegmentWorkers:    4,
			Fsync:             FsyncAlways,
			GroupCommitWindow: 50 * time.Millisecond,
		},
		Aggregation: AggregationConfig{
			MemoryBudgetBytes:      32 * 1024 * 1024,
			MaxNestingDepth:        3,
			PercentileCompression:  100,
		},
		Coordinator: CoordinatorConfig{
			ShardTimeout:        2 * time.Second,
			GlobalDeadline:      5 * time.Second,
			HealthCheckInterval: 10 * time.Second,
			UnhealthyThreshold:  3,
		},
	}
}

// Load reads a YAML config file and overlays it onto Default().
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the config for internally-inconsistent values.
func (c Config) Validate() error {
	if c.Writer.SegmentWorkers < 1 {
		return fmt.Errorf("writer.segment_workers must be >= 1, got %d", c.Writer.SegmentWorkers)
	}
	if c.Writer.MemoryBudgetBytes < 1 {
		return fmt.Errorf("writer.memory_budget_bytes must be > 0")
	}
	if c.Aggregation.MaxNestingDepth < 1 {
		return fmt.Errorf("aggregation.max_nesting_depth must be >= 1")
	}
	if c.Coordinator.UnhealthyThreshold < 1 {
		return fmt.Errorf("coordinator.unhealthy_threshold must be >= 1")
	}
	if c.Backend != BackendMemory && c.Backend != BackendDirectory {
		return fmt.Errorf("backend must be %q or %q, got %q", BackendMemory, BackendDirectory, c.Backend)
	}
	return nil
}
