package engine

import (
	"context"

	bleveSearch "github.com/blevesearch/bleve/v2/search"

	"github.com/Aman-CERP/amanmcp/internal/agg"
	"github.com/Aman-CERP/amanmcp/internal/doc"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/searchindex"
)

// Hit and Address are re-exported so a host never needs to import
// internal/searchindex directly.
type (
	Hit     = searchindex.Hit
	Address = searchindex.Address
)

// Document is the untyped field-name/value map AddDocument accepts and
// Doc/Search hits return in their Stored field (§4.3).
type Document = doc.Raw

// Query is a re-export of the parsed Query Tree (§3.5).
type Query = query.Query

// ParseQuery compiles a query string per the §4.6/§6.2 grammar.
// defaultField is used for bare terms carrying no `field:` prefix.
func (idx *Index) ParseQuery(input, defaultField string) (*Query, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return query.Parse(idx.schema, input, defaultField)
}

// TermQuery builds a single-term Query against field.
func (idx *Index) TermQuery(field, value string) (*Query, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return query.Term(idx.schema, field, value)
}

// MatchAllQuery returns a Query matching every live document.
func MatchAllQuery() *Query { return query.MatchAll() }

// Search executes q against the current snapshot and returns up to
// limit hits ordered by descending score (§4.5 "search").
func (idx *Index) Search(ctx context.Context, q *Query, limit int) ([]Hit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.searcher.Search(ctx, q, limit)
}

// SearchString parses input with defaultField and executes it, as a
// convenience for hosts that accept raw query strings from end users.
func (idx *Index) SearchString(ctx context.Context, input, defaultField string, limit int) ([]Hit, error) {
	idx.mu.RLock()
	q, err := query.Parse(idx.schema, input, defaultField)
	idx.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, q, limit)
}

// Count returns the number of live documents matching q, without
// materializing hits (§4.5 "count").
func (idx *Index) Count(ctx context.Context, q *Query) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.searcher.Count(ctx, q)
}

// Doc retrieves the stored fields for addr.
func (idx *Index) Doc(ctx context.Context, addr Address) (doc.Raw, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.searcher.Doc(ctx, addr)
}

// Snippet returns a highlighted excerpt of field for addr against q.
func (idx *Index) Snippet(ctx context.Context, addr Address, q *Query, field string) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.searcher.Snippet(ctx, addr, q, field)
}

// Explain returns the scoring breakdown for addr against q.
func (idx *Index) Explain(ctx context.Context, addr Address, q *Query) (*bleveSearch.Explanation, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.searcher.Explain(ctx, addr, q)
}

// Aggregation re-exports (§3.6/§4.7), so a host builds aggregation
// requests without importing internal/agg directly.
type (
	AggregationRequest = agg.Request
	AggregationResults = agg.Results
	AggregationSpec    = agg.Spec
	BucketKind         = agg.BucketKind
	MetricKind         = agg.MetricKind
)

const (
	BucketTerms         = agg.BucketTerms
	BucketHistogram     = agg.BucketHistogram
	BucketDateHistogram = agg.BucketDateHistogram
	BucketRange         = agg.BucketRange

	MetricAvg         = agg.MetricAvg
	MetricMin         = agg.MetricMin
	MetricMax         = agg.MetricMax
	MetricSum         = agg.MetricSum
	MetricValueCount  = agg.MetricValueCount
	MetricStats       = agg.MetricStats
	MetricPercentiles = agg.MetricPercentiles
)

// SearchWithAggregation executes q, returning both the top-limit hits
// and aggregation results computed over the FULL live match set (§4.7),
// not just the returned page.
func (idx *Index) SearchWithAggregation(ctx context.Context, q *Query, limit int, request AggregationRequest) ([]Hit, AggregationResults, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.searcher.SearchWithAggregation(ctx, q, limit, request, idx.cfg.Aggregation)
}
