package coordinator

import (
	"context"
	"time"
)

// StartHealthChecks begins periodically pinging every registered
// shard at cfg.HealthCheckInterval (§4.8 "health monitoring"). Three
// consecutive failed pings mark a shard :down and exclude it from
// routing until a subsequent successful ping restores it. Call Close
// to stop the loop.
func (c *Coordinator) StartHealthChecks(ctx context.Context) {
	if c.cfg.HealthCheckInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.healthCancel = cancel
	c.healthDone = make(chan struct{})

	go func() {
		defer close(c.healthDone)
		ticker := time.NewTicker(c.cfg.HealthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.pingAll(ctx)
			}
		}
	}()
}

func (c *Coordinator) pingAll(ctx context.Context) {
	c.mu.RLock()
	names := make([]string, len(c.order))
	copy(names, c.order)
	c.mu.RUnlock()

	threshold := c.cfg.UnhealthyThreshold
	if threshold <= 0 {
		threshold = 3
	}

	for _, name := range names {
		c.mu.RLock()
		e, ok := c.shards[name]
		c.mu.RUnlock()
		if !ok {
			continue
		}

		err := e.shard.Ping(ctx)

		c.mu.Lock()
		e, ok = c.shards[name]
		if !ok {
			c.mu.Unlock()
			continue
		}
		if err != nil {
			e.failures++
			if e.failures >= threshold {
				e.health = Down
			} else {
				e.health = Degraded
			}
		} else {
			e.failures = 0
			e.health = Healthy
		}
		c.mu.Unlock()
	}
}
