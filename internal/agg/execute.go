package agg

import (
	"context"
	"sort"

	"github.com/Aman-CERP/amanmcp/internal/engineconfig"
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
	"github.com/Aman-CERP/amanmcp/internal/segment"
)

// Doc addresses one live document handed to Execute by its caller
// (internal/searchindex), which already knows the full live match set
// for the query an aggregation request runs against.
type Doc struct {
	Segment *segment.Segment
	ID      segment.LocalDocID
}

// perEntryCost approximates the memory an accumulator entry costs, used
// to translate AggregationConfig.MemoryBudgetBytes into a ceiling on
// the number of bucket/accumulator entries a request may create
// (§4.7 "exceeding it fails the request with AggregationLimitExceeded
// rather than producing truncated results").
const perEntryCost = 64

// Execute runs request over docs, the live document set a query
// selected, honoring cfg's nesting depth and memory budget (§4.7).
func Execute(ctx context.Context, docs []Doc, request Request, cfg engineconfig.AggregationConfig) (Results, error) {
	refs := make([]docRef, len(docs))
	for i, d := range docs {
		refs[i] = docRef{seg: d.Segment, id: d.ID}
	}

	b := &budget{
		ceiling: cfg.MemoryBudgetBytes / perEntryCost,
	}
	if b.ceiling <= 0 {
		b.ceiling = 1 << 20
	}

	return execute(ctx, refs, request, cfg, 1, b)
}

type budget struct {
	ceiling int64
	spent   int64
}

func (b *budget) charge(n int) error {
	b.spent += int64(n)
	if b.spent > b.ceiling {
		return engineerr.New(engineerr.CodeAggregationLimitExceeded, "aggregation memory budget exceeded", nil)
	}
	return nil
}

func execute(ctx context.Context, docs []docRef, request Request, cfg engineconfig.AggregationConfig, depth int, b *budget) (Results, error) {
	if depth > cfg.MaxNestingDepth {
		return nil, engineerr.New(engineerr.CodeNestingTooDeep, "aggregation nesting exceeds configured maximum", nil).
			WithDetail("max_nesting_depth", itoa(cfg.MaxNestingDepth))
	}
	if err := ctx.Err(); err != nil {
		return nil, engineerr.New(engineerr.CodeTimeout, "aggregation aborted", err).InPhase("aggregation")
	}

	out := make(Results, len(request))
	for name, spec := range request {
		if spec.Field == "" {
			return nil, engineerr.New(engineerr.CodeAggregationFieldRequired, "aggregation requires a field", nil).
				WithDetail("aggregation", name)
		}

		var res Result
		var err error
		if spec.IsBucket {
			res.Bucket, err = executeBucket(ctx, docs, spec, cfg, depth, b)
		} else {
			res.Metric, err = executeMetric(docs, spec, cfg)
		}
		if err != nil {
			return nil, err
		}
		out[name] = res
	}
	return out, nil
}

func executeBucket(ctx context.Context, docs []docRef, spec Spec, cfg engineconfig.AggregationConfig, depth int, b *budget) (*BucketResult, error) {
	groups, order, err := assignBuckets(docs, spec)
	if err != nil {
		return nil, err
	}
	if err := b.charge(len(groups)); err != nil {
		return nil, err
	}

	buckets := make([]Bucket, 0, len(groups))
	for _, key := range order {
		members := groups[key]
		if len(members) < maxInt(spec.MinDocCount, 0) {
			continue
		}
		bucket := Bucket{Key: key.label, From: key.from, To: key.to, Count: len(members)}
		if len(spec.SubAggregations) > 0 {
			sub, err := execute(ctx, members, spec.SubAggregations, cfg, depth+1, b)
			if err != nil {
				return nil, err
			}
			bucket.Sub = sub
		}
		buckets = append(buckets, bucket)
	}

	if spec.Bucket == BucketTerms {
		sortBuckets(buckets, spec.Order)
	}
	if spec.Size > 0 && len(buckets) > spec.Size {
		buckets = buckets[:spec.Size]
	}
	return &BucketResult{Buckets: buckets}, nil
}

func sortBuckets(buckets []Bucket, order Order) {
	by := order.By
	if by == "" {
		by = "doc_count"
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		var less bool
		switch by {
		case "key":
			less = buckets[i].Key > buckets[j].Key
		default:
			if buckets[i].Count != buckets[j].Count {
				less = buckets[i].Count > buckets[j].Count // doc_count defaults to descending
			} else {
				less = buckets[i].Key < buckets[j].Key
			}
		}
		if order.Asc && by == "key" {
			return buckets[i].Key < buckets[j].Key
		}
		if order.Asc && by != "key" {
			return buckets[i].Count < buckets[j].Count
		}
		return less
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
