package index

import (
	"context"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/blevesearch/bleve/v2"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/query"
	"github.com/Aman-CERP/amanmcp/internal/segment"
)

// matchingLocalDocIDs runs q against seg's bleve sub-index and returns
// the set of local document ids it matches, live or already deleted
// (§4.4.3: a staged deletion is idempotent against documents deleted
// by an earlier staged deletion in the same commit).
func matchingLocalDocIDs(ctx context.Context, seg *segment.Segment, q *query.Query) (*roaring.Bitmap, error) {
	bq, err := query.ToBleve(q)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bq, seg.DocCount(), 0, false)
	req.Fields = nil

	out := roaring.New()
	if seg.DocCount() == 0 {
		return out, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, engineerr.New(engineerr.CodeTimeout, "deletion scan cancelled", err)
		}

		res, err := seg.Bleve().SearchInContext(ctx, req)
		if err != nil {
			return nil, engineerr.New(engineerr.CodeStorageIO, "search segment for deletion", err)
		}
		for _, hit := range res.Hits {
			id, err := strconv.Atoi(hit.ID)
			if err != nil {
				continue
			}
			out.Add(uint32(id))
		}
		if req.From+len(res.Hits) >= int(res.Total) || len(res.Hits) == 0 {
			break
		}
		req.From += len(res.Hits)
	}
	return out, nil
}
