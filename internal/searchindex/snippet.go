package searchindex

import (
	"context"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/query"
)

// Snippet produces a highlighted fragment of field around q's
// best-matching span within the document at addr, using the stored
// term positions already required for phrase queries (SUPPLEMENTED
// FEATURES, mirroring tantivy's SnippetGenerator). Returns "" if field
// has no fragment for this document (no match, or field not indexed
// with positions).
func (se *Searcher) Snippet(ctx context.Context, addr Address, q *query.Query, field string) (string, error) {
	seg := se.segmentByID(addr.Segment)
	if seg == nil {
		return "", engineerr.New(engineerr.CodeStorageIO, "segment not bound to this snapshot", nil).
			WithDetail("segment_id", string(addr.Segment))
	}

	bq, err := query.ToBleve(q)
	if err != nil {
		return "", err
	}

	req := bleve.NewSearchRequestOptions(bq, seg.DocCount(), 0, false)
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Fields = []string{field}

	res, err := seg.Bleve().SearchInContext(ctx, req)
	if err != nil {
		return "", engineerr.New(engineerr.CodeStorageIO, "snippet search failed", err)
	}
	for _, hit := range res.Hits {
		localID, ok := parseLocalID(hit.ID)
		if !ok || localID != addr.Doc {
			continue
		}
		frags := hit.Fragments[field]
		if len(frags) == 0 {
			return "", nil
		}
		return frags[0], nil
	}
	return "", nil
}

// Explain returns the BM25 score breakdown for a single document
// against q (SUPPLEMENTED FEATURES, mirroring tantivy's
// Searcher::explain). Returns nil, nil if the document does not match.
func (se *Searcher) Explain(ctx context.Context, addr Address, q *query.Query) (*search.Explanation, error) {
	seg := se.segmentByID(addr.Segment)
	if seg == nil {
		return nil, engineerr.New(engineerr.CodeStorageIO, "segment not bound to this snapshot", nil).
			WithDetail("segment_id", string(addr.Segment))
	}

	bq, err := query.ToBleve(q)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(bq, seg.DocCount(), 0, false)
	req.Explain = true

	res, err := seg.Bleve().SearchInContext(ctx, req)
	if err != nil {
		return nil, engineerr.New(engineerr.CodeStorageIO, "explain search failed", err)
	}
	for _, hit := range res.Hits {
		localID, ok := parseLocalID(hit.ID)
		if ok && localID == addr.Doc {
			return hit.Expl, nil
		}
	}
	return nil, nil
}
