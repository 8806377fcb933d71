package engine

import (
	"github.com/Aman-CERP/amanmcp/internal/coordinator"
)

// Cluster is a re-export of the Distributed Coordinator (§4.8), so a
// host fanning searches out across several Index instances (or remote
// shards) never needs to import internal/coordinator directly.
type Cluster = coordinator.Coordinator

// Shard is anything a Cluster can dispatch a search to; an *Index
// satisfies this via AsShard.
type Shard = coordinator.Shard

// ShardHealth mirrors the coordinator's per-shard health state.
type ShardHealth = coordinator.Health

const (
	ShardHealthy  = coordinator.Healthy
	ShardDegraded = coordinator.Degraded
	ShardDown     = coordinator.Down
)

// RoutingStrategy selects which active shards a search is dispatched to.
type RoutingStrategy = coordinator.RoutingStrategy

const (
	RouteBroadcast      = coordinator.Broadcast
	RouteRoundRobin     = coordinator.RoundRobin
	RouteWeighted       = coordinator.Weighted
	RouteHealthFiltered = coordinator.HealthFiltered
)

// ClusterOption configures a Cluster at construction time.
type ClusterOption = coordinator.Option

// WithRoutingStrategy overrides the default Broadcast routing strategy.
func WithRoutingStrategy(s RoutingStrategy) ClusterOption {
	return coordinator.WithRoutingStrategy(s)
}

// ClusterHit is one merged cross-shard result.
type ClusterHit = coordinator.Hit

// ClusterResult is the outcome of one fanned-out search (§4.8).
type ClusterResult = coordinator.Result

// NewCluster constructs a Cluster with no shards registered. Register
// shards with c.RegisterShard, start health monitoring with
// c.StartHealthChecks, and dispatch with c.Search.
func NewCluster(cfg Config, opts ...ClusterOption) *Cluster {
	return coordinator.New(cfg.Coordinator, opts...)
}
