package coordinator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/searchindex"
)

// ShardStatus reports one shard's outcome for a single distributed
// search (§4.8 step 5 "per-shard status reports success/failure/
// timeout and per-shard latency").
type ShardStatus struct {
	Success bool
	Timeout bool
	Err     error
	Latency time.Duration
}

// Result is the outcome of a distributed search (§4.8 step 5).
type Result struct {
	Hits         []Hit
	PerShardStatus map[string]ShardStatus
}

// Search dispatches q to the shards selected by the configured routing
// strategy, merges their results under the configured comparator, and
// returns the global top-limit hits with per-shard status attached
// (§4.8 "algorithm for a distributed search").
func (c *Coordinator) Search(ctx context.Context, q *query.Query, limit int) (*Result, error) {
	targets := c.selectShards()

	if c.cfg.GlobalDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GlobalDeadline)
		defer cancel()
	}

	type outcome struct {
		name   string
		hits   []searchindex.Hit
		status ShardStatus
	}
	outcomes := make([]outcome, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			shardCtx := gctx
			var cancel context.CancelFunc
			if c.cfg.ShardTimeout > 0 {
				shardCtx, cancel = context.WithTimeout(gctx, c.cfg.ShardTimeout)
				defer cancel()
			}

			start := time.Now()
			hits, err := t.shard.Search(shardCtx, q, limit)
			latency := time.Since(start)

			status := ShardStatus{Latency: latency}
			switch {
			case err == context.DeadlineExceeded || shardCtx.Err() == context.DeadlineExceeded:
				status.Timeout = true
				status.Err = context.DeadlineExceeded
			case err != nil:
				status.Err = err
			default:
				status.Success = true
			}
			outcomes[i] = outcome{name: t.name, hits: hits, status: status}
			// A single shard's failure never fails the whole fan-out
			// (§4.8 "a shard that times out ... is recorded as a
			// failure and omitted" — not propagated as a group error).
			return nil
		})
	}
	// g.Wait's own error is only possible from ctx cancellation, which
	// every goroutine already observes and reports per-shard; the
	// group itself never returns a non-nil error from the Go funcs
	// above.
	_ = g.Wait()

	perShard := make(map[string]ShardStatus, len(outcomes))
	var merged []Hit
	anySuccess := false
	for _, o := range outcomes {
		perShard[o.name] = o.status
		if !o.status.Success {
			continue
		}
		anySuccess = true
		for _, h := range o.hits {
			merged = append(merged, Hit{ShardID: o.name, Hit: h})
		}
	}

	if len(targets) > 0 && !anySuccess {
		return nil, engineerr.New(engineerr.CodeAllShardsFailed, "every dispatched shard failed", nil)
	}

	merged = kWayMerge(merged, c.less)
	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	return &Result{Hits: merged, PerShardStatus: perShard}, nil
}

type target struct {
	name  string
	shard Shard
}

// selectShards applies the configured RoutingStrategy over the
// registry's active, non-down shards (§4.8 "select active shards per
// strategy").
func (c *Coordinator) selectShards() []target {
	c.mu.Lock()
	defer c.mu.Unlock()

	var eligible []target
	for _, name := range c.order {
		e := c.shards[name]
		if e == nil || !e.active || e.health == Down {
			continue
		}
		eligible = append(eligible, target{name: name, shard: e.shard})
	}

	switch c.routing {
	case Broadcast, HealthFiltered:
		return eligible
	case RoundRobin:
		if len(eligible) == 0 {
			return nil
		}
		pick := eligible[c.rrNext%len(eligible)]
		c.rrNext++
		return []target{pick}
	case Weighted:
		return weightedSample(c.shards, eligible)
	default:
		return eligible
	}
}

// weightedSample returns eligible shards ordered so that higher-weight
// shards are more likely to be queried first; callers wanting a single
// weighted pick can take index 0. Zero-weight entries default to 1.
func weightedSample(entries map[string]*shardEntry, eligible []target) []target {
	out := make([]target, len(eligible))
	copy(out, eligible)
	weight := func(t target) int {
		w := entries[t.name].weight
		if w <= 0 {
			return 1
		}
		return w
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && weight(out[j]) > weight(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
