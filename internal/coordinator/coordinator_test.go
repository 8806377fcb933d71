package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/analysis"
	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/engineconfig"
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/index"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/searchindex"
	"github.com/Aman-CERP/amanmcp/internal/segment"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

// fakeShard is a scriptable Shard double for exercising fan-out,
// partial failure, and health-check behavior without real indexes.
type fakeShard struct {
	hits    []searchindex.Hit
	err     error
	delay   time.Duration
	pingErr func() error
}

func (f *fakeShard) Search(ctx context.Context, q *query.Query, limit int) ([]searchindex.Hit, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeShard) Ping(ctx context.Context) error {
	if f.pingErr != nil {
		return f.pingErr()
	}
	return nil
}

func hit(score float64, segID string, docID int) searchindex.Hit {
	return searchindex.Hit{
		Score:   score,
		Address: searchindex.Address{Segment: storage.SegmentID(segID), Doc: segment.LocalDocID(docID)},
	}
}

func TestSearchBroadcastsToAllActiveShardsAndMergesByScore(t *testing.T) {
	c := New(engineconfig.Default().Coordinator)
	c.RegisterShard("a", &fakeShard{hits: []searchindex.Hit{hit(5, "s1", 0), hit(1, "s1", 1)}}, 1)
	c.RegisterShard("b", &fakeShard{hits: []searchindex.Hit{hit(3, "s2", 0)}}, 1)

	res, err := c.Search(context.Background(), query.MatchAll(), 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, 5.0, res.Hits[0].Score)
	assert.Equal(t, 3.0, res.Hits[1].Score)
	assert.Equal(t, 1.0, res.Hits[2].Score)
	assert.True(t, res.PerShardStatus["a"].Success)
	assert.True(t, res.PerShardStatus["b"].Success)
}

func TestSearchOmitsFailingShardButKeepsOthers(t *testing.T) {
	c := New(engineconfig.Default().Coordinator)
	c.RegisterShard("ok", &fakeShard{hits: []searchindex.Hit{hit(9, "s1", 0)}}, 1)
	c.RegisterShard("broken", &fakeShard{err: errors.New("shard unavailable")}, 1)

	res, err := c.Search(context.Background(), query.MatchAll(), 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "ok", res.Hits[0].ShardID)
	assert.False(t, res.PerShardStatus["broken"].Success)
	assert.Error(t, res.PerShardStatus["broken"].Err)
}

func TestSearchReturnsAllShardsFailedWhenEveryShardErrors(t *testing.T) {
	c := New(engineconfig.Default().Coordinator)
	c.RegisterShard("a", &fakeShard{err: errors.New("shard unavailable")}, 1)
	c.RegisterShard("b", &fakeShard{err: errors.New("shard unavailable")}, 1)

	res, err := c.Search(context.Background(), query.MatchAll(), 10)
	require.Error(t, err)
	assert.Nil(t, res)
	var engErr *engineerr.Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, engineerr.CodeAllShardsFailed, engErr.Code)
}

func TestSearchWithScoreAscendingComparatorMergesGloballyAscending(t *testing.T) {
	c := New(engineconfig.Default().Coordinator, WithMergeComparator(ScoreAscending))
	c.RegisterShard("a", &fakeShard{hits: []searchindex.Hit{hit(10, "s1", 0), hit(7, "s1", 1), hit(3, "s1", 2)}}, 1)
	c.RegisterShard("b", &fakeShard{hits: []searchindex.Hit{hit(9, "s2", 0), hit(5, "s2", 1), hit(1, "s2", 2)}}, 1)

	res, err := c.Search(context.Background(), query.MatchAll(), 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 6)

	var scores []float64
	for _, h := range res.Hits {
		scores = append(scores, h.Score)
	}
	assert.Equal(t, []float64{1, 3, 5, 7, 9, 10}, scores)
}

func TestSearchRespectsPerShardTimeout(t *testing.T) {
	cfg := engineconfig.Default().Coordinator
	cfg.ShardTimeout = 10 * time.Millisecond
	c := New(cfg)
	c.RegisterShard("slow", &fakeShard{hits: []searchindex.Hit{hit(1, "s1", 0)}, delay: 100 * time.Millisecond}, 1)
	c.RegisterShard("fast", &fakeShard{hits: []searchindex.Hit{hit(2, "s2", 0)}}, 1)

	res, err := c.Search(context.Background(), query.MatchAll(), 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "fast", res.Hits[0].ShardID)
	assert.True(t, res.PerShardStatus["slow"].Timeout)
}

func TestSearchTruncatesToLimitAfterMerge(t *testing.T) {
	c := New(engineconfig.Default().Coordinator)
	c.RegisterShard("a", &fakeShard{hits: []searchindex.Hit{hit(9, "s1", 0), hit(8, "s1", 1), hit(7, "s1", 2)}}, 1)

	res, err := c.Search(context.Background(), query.MatchAll(), 2)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, 9.0, res.Hits[0].Score)
	assert.Equal(t, 8.0, res.Hits[1].Score)
}

func TestDownShardIsExcludedAfterConsecutiveFailures(t *testing.T) {
	cfg := engineconfig.Default().Coordinator
	cfg.HealthCheckInterval = 5 * time.Millisecond
	cfg.UnhealthyThreshold = 3
	c := New(cfg)

	failing := true
	c.RegisterShard("flaky", &fakeShard{
		hits: []searchindex.Hit{hit(1, "s1", 0)},
		pingErr: func() error {
			if failing {
				return errors.New("ping failed")
			}
			return nil
		},
	}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartHealthChecks(ctx)
	defer c.Close()

	require.Eventually(t, func() bool {
		h, ok := c.ShardHealth("flaky")
		return ok && h == Down
	}, time.Second, 5*time.Millisecond)

	res, err := c.Search(context.Background(), query.MatchAll(), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	failing = false
	require.Eventually(t, func() bool {
		h, ok := c.ShardHealth("flaky")
		return ok && h == Healthy
	}, time.Second, 5*time.Millisecond)
}

func testShardSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	require.NoError(t, b.AddField("title", schema.Text, schema.IndexedStored|schema.WithPositions, "default"))
	return b.Build()
}

func TestCoordinatorWithRealSearcherShards(t *testing.T) {
	s := testShardSchema(t)
	reg := analysis.New()
	require.NoError(t, reg.RegisterDefaults())

	backend1 := storage.NewMemory()
	segReg1 := segment.NewRegistry(0)
	w1, err := index.Open(context.Background(), s, reg, backend1, engineconfig.Default().Writer, nil)
	require.NoError(t, err)
	w1.SetSegmentRegistry(segReg1)
	require.NoError(t, w1.AddDocument(doc.Raw{"title": "quick fox"}))
	_, err = w1.Commit(context.Background())
	require.NoError(t, err)
	require.NoError(t, w1.Close())

	backend2 := storage.NewMemory()
	segReg2 := segment.NewRegistry(0)
	w2, err := index.Open(context.Background(), s, reg, backend2, engineconfig.Default().Writer, nil)
	require.NoError(t, err)
	w2.SetSegmentRegistry(segReg2)
	require.NoError(t, w2.AddDocument(doc.Raw{"title": "quick dog"}))
	_, err = w2.Commit(context.Background())
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	se1, err := searchindex.New(context.Background(), s, backend1, segReg1)
	require.NoError(t, err)
	se2, err := searchindex.New(context.Background(), s, backend2, segReg2)
	require.NoError(t, err)

	c := New(engineconfig.Default().Coordinator)
	c.RegisterShard("shard-1", &SearcherShard{Searcher: se1}, 1)
	c.RegisterShard("shard-2", &SearcherShard{Searcher: se2}, 1)

	q, err := query.Term(s, "title", "quick")
	require.NoError(t, err)

	res, err := c.Search(context.Background(), q, 10)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
}
