package query

import (
	"time"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

// ToBleve translates a validated Query Tree node into bleve's own
// query.Query, the form internal/searchindex hands to a segment's
// bleve.Index.Search (DOMAIN STACK: bleve's query package backs Query
// Tree execution, §4.5).
func ToBleve(q *Query) (bq.Query, error) {
	switch q.Kind {
	case KindMatchAll:
		mq := bleve.NewMatchAllQuery()
		mq.SetBoost(q.Boost)
		return mq, nil

	case KindTerm:
		tq := bleve.NewTermQuery(q.Value)
		tq.SetField(q.Field)
		tq.SetBoost(q.Boost)
		return tq, nil

	case KindPhrase:
		pq := bleve.NewMatchPhraseQuery(joinPhrase(q.Terms))
		pq.SetField(q.Field)
		pq.SetFuzziness(0)
		pq.SetBoost(q.Boost)
		if q.Slop > 0 {
			pq.Slop = q.Slop
		}
		return pq, nil

	case KindRange:
		return rangeQuery(q)

	case KindBoolean:
		return booleanQuery(q)

	case KindFuzzy:
		return fuzzyOrWildcard(q, func() bq.Query {
			fq := bleve.NewFuzzyQuery(q.Value)
			fq.SetField(q.Field)
			fq.SetFuzziness(q.MaxEdits)
			fq.SetPrefix(q.PrefixLen)
			fq.SetBoost(q.Boost)
			return fq
		}), nil

	case KindWildcard:
		return fuzzyOrWildcard(q, func() bq.Query {
			wq := bleve.NewWildcardQuery(q.Value)
			wq.SetField(q.Field)
			wq.SetBoost(q.Boost)
			return wq
		}), nil

	case KindFacet:
		// A facet prefix query matches any document whose facet path is
		// exactly the prefix or nested under it; bleve has no built-in
		// hierarchical facet-path query, so it is expressed as a prefix
		// match against the keyword-analyzed facet field's term (§6.5).
		pq := bleve.NewPrefixQuery(q.Prefix)
		pq.SetField(q.Field)
		pq.SetBoost(q.Boost)
		return pq, nil

	case KindRegex:
		rq := bleve.NewRegexpQuery(q.Value)
		rq.SetField(q.Field)
		rq.SetBoost(q.Boost)
		return rq, nil

	default:
		return nil, engineerr.New(engineerr.CodeInvalidOptions, "unknown query kind", nil)
	}
}

func joinPhrase(terms []string) string {
	out := ""
	for i, t := range terms {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}

func rangeQuery(q *Query) (bq.Query, error) {
	if q.IsDateRange {
		dq := bleve.NewDateRangeInclusiveQuery(
			epochToTime(q.Lo), epochToTime(q.Hi),
			&q.Lo.Inclusive, &q.Hi.Inclusive,
		)
		dq.SetField(q.Field)
		dq.SetBoost(q.Boost)
		return dq, nil
	}

	nq := bleve.NewNumericRangeInclusiveQuery(
		numericBoundPtr(q.Lo), numericBoundPtr(q.Hi),
		&q.Lo.Inclusive, &q.Hi.Inclusive,
	)
	nq.SetField(q.Field)
	nq.SetBoost(q.Boost)
	return nq, nil
}

func numericBoundPtr(b Bound) *float64 {
	if b.Infinite {
		return nil
	}
	v := b.Number
	return &v
}

// epochToTime returns the zero time.Time for an infinite bound; bleve
// treats a zero Time as "unbounded" on that side of a date range query.
func epochToTime(b Bound) time.Time {
	if b.Infinite {
		return time.Time{}
	}
	return time.Unix(int64(b.Number), 0).UTC()
}

func booleanQuery(q *Query) (bq.Query, error) {
	bqq := bleve.NewBooleanQuery()
	bqq.SetBoost(q.Boost)
	for _, c := range q.Clauses {
		sq := c.Query
		if c.Occur == Filter {
			// Zero the boost on a copy of the tree node: ToBleve may hand
			// back a cached bleve query shared with other callers.
			sq = sq.WithBoost(0)
		}
		sub, err := ToBleve(sq)
		if err != nil {
			return nil, err
		}
		switch c.Occur {
		case Must:
			bqq.AddMust(sub)
		case Should:
			bqq.AddShould(sub)
		case MustNot:
			bqq.AddMustNot(sub)
		case Filter:
			// bleve's BooleanQuery has no dedicated non-scoring filter
			// clause; Filter semantics (restrict without contributing to
			// score) are approximated with a zero-boosted Must clause.
			bqq.AddMust(sub)
		}
	}
	return bqq, nil
}
