package searchindex

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/amanmcp/internal/agg"
	"github.com/Aman-CERP/amanmcp/internal/analysis"
	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/engineconfig"
	"github.com/Aman-CERP/amanmcp/internal/index"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/segment"
	"github.com/Aman-CERP/amanmcp/internal/storage"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	b := schema.NewBuilder()
	require.NoError(t, b.AddField("title", schema.Text, schema.IndexedStored|schema.WithPositions, "default"))
	require.NoError(t, b.AddField("price", schema.F64, schema.FastStored, ""))
	require.NoError(t, b.AddField("published", schema.Date, schema.IndexedStoredFast, ""))
	return b.Build()
}

func testRegistry(t *testing.T) *analysis.Registry {
	t.Helper()
	r := analysis.New()
	require.NoError(t, r.RegisterDefaults())
	return r
}

// seedIndex writes docs through a Writer sharing segReg with the
// Searcher under test, then commits and closes the writer.
func seedIndex(t *testing.T, backend storage.Backend, segReg *segment.Registry, docs ...doc.Raw) *schema.Schema {
	t.Helper()
	s := testSchema(t)
	reg := testRegistry(t)
	cfg := engineconfig.Default().Writer

	w, err := index.Open(context.Background(), s, reg, backend, cfg, nil)
	require.NoError(t, err)
	w.SetSegmentRegistry(segReg)

	for _, d := range docs {
		require.NoError(t, w.AddDocument(d))
	}
	_, err = w.Commit(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return s
}

func TestSearchReturnsLiveMatchesOrderedByScore(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := seedIndex(t, backend, segReg,
		doc.Raw{"title": "the quick brown fox", "price": 1.0},
		doc.Raw{"title": "a lazy dog", "price": 2.0},
		doc.Raw{"title": "quick quick fox jumps", "price": 3.0},
	)

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)

	q, err := query.Term(s, "title", "fox")
	require.NoError(t, err)

	hits, err := se.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	for _, h := range hits {
		assert.NotNil(t, h.Stored)
	}
}

func TestCountMatchesSearchLength(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := seedIndex(t, backend, segReg,
		doc.Raw{"title": "quick fox", "price": 1.0},
		doc.Raw{"title": "lazy dog", "price": 2.0},
	)

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)

	q, err := query.Term(s, "title", "fox")
	require.NoError(t, err)

	n, err := se.Count(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDateRangeQueryMatchesIndexedDocuments(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := seedIndex(t, backend, segReg,
		doc.Raw{"title": "old post", "published": "2020-01-01T00:00:00Z"},
		doc.Raw{"title": "new post", "published": "2024-01-01T00:00:00Z"},
	)

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)

	lo, err := time.Parse(time.RFC3339, "2023-01-01T00:00:00Z")
	require.NoError(t, err)
	q, err := query.Range(s, "published", query.Bound{Number: float64(lo.Unix()), IsNumber: true, Inclusive: true}, query.Bound{Infinite: true})
	require.NoError(t, err)

	hits, err := se.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new post", hits[0].Stored["title"])
}

func TestDeletedDocumentsAreExcludedFromSearch(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := testSchema(t)
	reg := testRegistry(t)
	cfg := engineconfig.Default().Writer

	w, err := index.Open(context.Background(), s, reg, backend, cfg, nil)
	require.NoError(t, err)
	w.SetSegmentRegistry(segReg)
	require.NoError(t, w.AddDocument(doc.Raw{"title": "quick fox", "price": 1.0}))
	require.NoError(t, w.AddDocument(doc.Raw{"title": "lazy dog", "price": 2.0}))
	_, err = w.Commit(context.Background())
	require.NoError(t, err)

	delQ, err := query.Term(s, "title", "fox")
	require.NoError(t, err)
	require.NoError(t, w.DeleteDocuments(delQ))
	_, err = w.Commit(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)

	matchAll := query.MatchAll()
	hits, err := se.Search(context.Background(), matchAll, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestReloadPicksUpNewCommit(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := testSchema(t)
	reg := testRegistry(t)
	cfg := engineconfig.Default().Writer

	w, err := index.Open(context.Background(), s, reg, backend, cfg, nil)
	require.NoError(t, err)
	w.SetSegmentRegistry(segReg)
	require.NoError(t, w.AddDocument(doc.Raw{"title": "quick fox", "price": 1.0}))
	_, err = w.Commit(context.Background())
	require.NoError(t, err)

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)
	assert.Equal(t, 1, se.Stats().LiveDocCount)

	require.NoError(t, w.AddDocument(doc.Raw{"title": "lazy dog", "price": 2.0}))
	_, err = w.Commit(context.Background())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, se.Reload(context.Background()))
	assert.Equal(t, 2, se.Stats().LiveDocCount)
}

func TestDocRetrievesStoredFields(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := seedIndex(t, backend, segReg, doc.Raw{"title": "quick fox", "price": 1.0})

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)

	q, err := query.Term(s, "title", "fox")
	require.NoError(t, err)
	hits, err := se.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	stored, err := se.Doc(context.Background(), hits[0].Address)
	require.NoError(t, err)
	assert.Equal(t, "quick fox", stored["title"])
}

func TestSnippetHighlightsMatch(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := seedIndex(t, backend, segReg, doc.Raw{"title": "the quick brown fox", "price": 1.0})

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)

	q, err := query.Term(s, "title", "fox")
	require.NoError(t, err)
	hits, err := se.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	snippet, err := se.Snippet(context.Background(), hits[0].Address, q, "title")
	require.NoError(t, err)
	assert.Contains(t, snippet, "fox")
}

func TestSearchWithAggregationSummarizesFullMatchSet(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := seedIndex(t, backend, segReg,
		doc.Raw{"title": "quick fox", "price": 10.0},
		doc.Raw{"title": "quick dog", "price": 20.0},
		doc.Raw{"title": "slow dog", "price": 30.0},
	)

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)

	q, err := query.Term(s, "title", "quick")
	require.NoError(t, err)

	request := agg.Request{
		"price_stats": {Field: "price", Metric: agg.MetricStats},
	}

	hits, results, err := se.SearchWithAggregation(context.Background(), q, 1, request, engineconfig.Default().Aggregation)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	st := results["price_stats"].Metric.Stats
	require.NotNil(t, st)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, 30.0, st.Sum)
}

func TestExplainReturnsBreakdownForMatch(t *testing.T) {
	backend := storage.NewMemory()
	segReg := segment.NewRegistry(0)
	s := seedIndex(t, backend, segReg, doc.Raw{"title": "quick fox", "price": 1.0})

	se, err := New(context.Background(), s, backend, segReg)
	require.NoError(t, err)

	q, err := query.Term(s, "title", "fox")
	require.NoError(t, err)
	hits, err := se.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	expl, err := se.Explain(context.Background(), hits[0].Address, q)
	require.NoError(t, err)
	require.NotNil(t, expl)
}
