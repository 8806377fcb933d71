// Package coordinator implements the Distributed Coordinator (§4.8): a
// fan-out layer presenting the same query surface as a local Searcher
// while delegating to any number of shards, each satisfying the Shard
// interface below.
package coordinator

import (
	"context"
	"sync"

	"github.com/Aman-CERP/amanmcp/internal/engineconfig"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/searchindex"
)

// Hit is one merged result, carrying the id of the shard it came from
// (§4.8 "emit the global top-K with shard-id attached to each result").
type Hit struct {
	ShardID string
	searchindex.Hit
}

// Shard is anything a Coordinator can dispatch a search to: a local
// Searcher, a remote RPC stub, or a test double (§4.8: "a shard is any
// object satisfying search(query, limit), health()").
type Shard interface {
	Search(ctx context.Context, q *query.Query, limit int) ([]searchindex.Hit, error)
	// Ping is used only by the coordinator's own health monitor; a
	// shard's Search call is never gated on its last-known health by
	// the shard itself, only by the coordinator's routing (§4.8).
	Ping(ctx context.Context) error
}

// Health is one shard's coordinator-observed status.
type Health int

const (
	Healthy Health = iota
	Degraded
	Down
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

type shardEntry struct {
	shard    Shard
	weight   int
	active   bool
	health   Health
	failures int
}

// RoutingStrategy selects which active shards a search is dispatched
// to (§4.8).
type RoutingStrategy int

const (
	// Broadcast dispatches to every active, non-down shard. Required
	// for a correct global top-K (§4.8 "default... for correctness").
	Broadcast RoutingStrategy = iota
	RoundRobin
	Weighted
	HealthFiltered
)

// Option configures a Coordinator at construction time.
type Option func(*Coordinator)

// WithRoutingStrategy overrides the default Broadcast strategy.
func WithRoutingStrategy(s RoutingStrategy) Option {
	return func(c *Coordinator) { c.routing = s }
}

// WithMergeComparator overrides the default descending-score merge
// order (§4.8 "merge strategy ... or custom comparator").
func WithMergeComparator(less func(a, b Hit) bool) Option {
	return func(c *Coordinator) { c.less = less }
}

// Coordinator fans a query out to registered shards and merges their
// results (§4.8). The zero value is not usable; construct with New.
type Coordinator struct {
	mu      sync.RWMutex
	shards  map[string]*shardEntry
	order   []string
	rrNext  int
	cfg     engineconfig.CoordinatorConfig
	routing RoutingStrategy
	less    func(a, b Hit) bool

	healthCancel context.CancelFunc
	healthDone   chan struct{}
}

// New constructs a Coordinator with no shards registered; add them via
// RegisterShard.
func New(cfg engineconfig.CoordinatorConfig, opts ...Option) *Coordinator {
	c := &Coordinator{
		shards:  make(map[string]*shardEntry),
		cfg:     cfg,
		routing: Broadcast,
		less:    scoreDescending,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterShard adds or replaces a shard in the registry, active by
// default (§4.8 "shard registry: name → {shard handle, weight,
// active?}").
func (c *Coordinator) RegisterShard(name string, shard Shard, weight int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.shards[name]; !exists {
		c.order = append(c.order, name)
	}
	c.shards[name] = &shardEntry{shard: shard, weight: weight, active: true, health: Healthy}
}

// RemoveShard drops a shard from the registry.
func (c *Coordinator) RemoveShard(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.shards, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// SetActive toggles a shard's active flag without removing it from the
// registry.
func (c *Coordinator) SetActive(name string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.shards[name]; ok {
		e.active = active
	}
}

// ShardHealth reports the coordinator's current view of one shard's
// health, or Down with ok=false if the shard is not registered.
func (c *Coordinator) ShardHealth(name string) (Health, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.shards[name]
	if !ok {
		return Down, false
	}
	return e.health, true
}

// Close stops any running health-check loop (see StartHealthChecks).
func (c *Coordinator) Close() error {
	if c.healthCancel != nil {
		c.healthCancel()
		<-c.healthDone
	}
	return nil
}
