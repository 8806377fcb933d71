package coordinator

import (
	"context"

	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/searchindex"
)

// SearcherShard adapts a local *searchindex.Searcher into a Shard, so
// an embedding host can compose several independently-opened indexes
// (e.g. one per data partition) behind a single Coordinator without
// writing any network plumbing.
type SearcherShard struct {
	Searcher *searchindex.Searcher
}

func (s *SearcherShard) Search(ctx context.Context, q *query.Query, limit int) ([]searchindex.Hit, error) {
	return s.Searcher.Search(ctx, q, limit)
}

// Ping reloads the shard's bound snapshot as its health probe: a local
// Searcher has no network round trip to fail, so the meaningful
// failure mode is its backend becoming unreachable or corrupt, which
// Reload surfaces.
func (s *SearcherShard) Ping(ctx context.Context) error {
	return s.Searcher.Reload(ctx)
}
