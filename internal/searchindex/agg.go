package searchindex

import (
	"context"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/amanmcp/internal/agg"
	"github.com/Aman-CERP/amanmcp/internal/engineconfig"
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/segment"
)

// SearchWithAggregation runs q exactly as Search does for the top
// limit hits, and additionally runs request over q's FULL live match
// set across every bound segment (§4.5 "search_with_aggregation": an
// aggregation summarizes the whole result set, not just the returned
// page).
func (se *Searcher) SearchWithAggregation(ctx context.Context, q *query.Query, limit int, request agg.Request, cfg engineconfig.AggregationConfig) ([]Hit, agg.Results, error) {
	hits, err := se.Search(ctx, q, limit)
	if err != nil {
		return nil, nil, err
	}

	bleveQ, err := query.ToBleve(q)
	if err != nil {
		return nil, nil, err
	}

	var docs []agg.Doc
	for _, seg := range se.segments {
		if err := ctx.Err(); err != nil {
			return nil, nil, engineerr.New(engineerr.CodeTimeout, "aggregation scan aborted between segments", err).InPhase("segment")
		}
		ids, err := matchingLiveDocIDs(ctx, seg, bleveQ)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range ids {
			docs = append(docs, agg.Doc{Segment: seg, ID: id})
		}
	}

	results, err := agg.Execute(ctx, docs, request, cfg)
	if err != nil {
		return nil, nil, err
	}
	return hits, results, nil
}

// matchingLiveDocIDs pages through every hit translated produces
// against seg, returning the local doc ids that are still live.
func matchingLiveDocIDs(ctx context.Context, seg *segment.Segment, translated bq.Query) ([]segment.LocalDocID, error) {
	if seg.DocCount() == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(translated, seg.DocCount(), 0, false)
	var ids []segment.LocalDocID
	for {
		res, err := seg.Bleve().SearchInContext(ctx, req)
		if err != nil {
			return nil, engineerr.New(engineerr.CodeStorageIO, "segment scan failed", err)
		}
		for _, hit := range res.Hits {
			localID, ok := parseLocalID(hit.ID)
			if ok && seg.IsLive(localID) {
				ids = append(ids, localID)
			}
		}
		if req.From+len(res.Hits) >= int(res.Total) || len(res.Hits) == 0 {
			break
		}
		req.From += len(res.Hits)
	}
	return ids, nil
}
