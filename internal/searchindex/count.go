package searchindex

import (
	"context"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/segment"
)

// countLiveMatches pages through every hit bq produces against seg and
// counts those that are still live, since a segment's bleve sub-index
// has no notion of the deletion bitmap layered on top of it at the
// snapshot level.
func countLiveMatches(ctx context.Context, seg *segment.Segment, translated bq.Query) (int, error) {
	if seg.DocCount() == 0 {
		return 0, nil
	}

	req := bleve.NewSearchRequestOptions(translated, seg.DocCount(), 0, false)
	count := 0
	for {
		res, err := seg.Bleve().SearchInContext(ctx, req)
		if err != nil {
			return 0, engineerr.New(engineerr.CodeStorageIO, "segment count failed", err)
		}
		for _, hit := range res.Hits {
			localID, ok := parseLocalID(hit.ID)
			if ok && seg.IsLive(localID) {
				count++
			}
		}
		if req.From+len(res.Hits) >= int(res.Total) || len(res.Hits) == 0 {
			break
		}
		req.From += len(res.Hits)
	}
	return count, nil
}
