// Package agg implements the Aggregation Engine (§4.7): a two-phase
// pass (bucket assignment, then metric accumulation) over the
// document set a query selects, with bounded nesting depth and an
// enforced memory budget.
package agg

import (
	"github.com/Aman-CERP/amanmcp/internal/schema"
	"github.com/Aman-CERP/amanmcp/internal/segment"
)

// BucketKind enumerates the bucket aggregation variants (§3.6).
type BucketKind int

const (
	BucketTerms BucketKind = iota
	BucketHistogram
	BucketDateHistogram
	BucketRange
)

// MetricKind enumerates the metric aggregation variants (§3.6).
type MetricKind int

const (
	MetricAvg MetricKind = iota
	MetricMin
	MetricMax
	MetricSum
	MetricValueCount
	MetricStats
	MetricPercentiles
)

// RangeBound is one bucket of a Range aggregation; From/To are nil for
// an unbounded side (§4.7 "from=null means -∞").
type RangeBound struct {
	Key  string
	From *float64
	To   *float64
}

// Order selects a Terms bucket ordering (§4.7 "order option overrides").
type Order struct {
	// By is "doc_count" (default) or "key".
	By string
	// Asc reverses the default descending direction.
	Asc bool
}

// Spec is one named aggregation request node: exactly one of Bucket or
// Metric is set, mirroring the AggSpec union of §3.6.
type Spec struct {
	// IsBucket distinguishes the two union members explicitly rather
	// than relying on zero-value field sniffing.
	IsBucket bool

	Bucket BucketKind
	Metric MetricKind

	Field string

	// Terms
	Size        int
	MinDocCount int
	Order       Order

	// Histogram
	Interval float64
	Offset   float64

	// DateHistogram
	CalendarInterval string

	// Range
	Ranges []RangeBound

	// Percentiles
	Percents []float64

	SubAggregations map[string]Spec
}

// Request is the top-level named aggregation map of §3.6.
type Request map[string]Spec

// Bucket is one bucket in a BucketResult (§4.7 output schema).
type Bucket struct {
	Key     string
	From    *float64
	To      *float64
	Count   int
	Sub     Results
}

// BucketResult carries a bucket aggregation's output buckets.
type BucketResult struct {
	Buckets []Bucket
}

// Stats is the one-pass {count, min, max, sum, avg} metric (§4.7).
type Stats struct {
	Count int
	Min   float64
	Max   float64
	Sum   float64
	Avg   float64
}

// MetricResult carries a single metric or named-metric object.
type MetricResult struct {
	Value       float64
	HasValue    bool
	Stats       *Stats
	Percentiles map[string]float64
}

// Result is one named aggregation's output: exactly one of Bucket or
// Metric is populated.
type Result struct {
	Bucket *BucketResult
	Metric *MetricResult
}

// Results is the named output map mirroring Request's shape.
type Results map[string]Result

// docRef addresses one live document by its owning segment and local
// id, the unit aggregation accumulates over.
type docRef struct {
	seg *segment.Segment
	id  segment.LocalDocID
}

// fieldValue reads one document's FAST value for field, used by every
// bucket and metric kind, Terms included. numeric is the
// value's float64 projection (numeric types and Date as epoch
// seconds); text is the value's string projection (Text/Facet/Json/
// IpAddr). Exactly one is meaningful, selected by the returned type.
func fieldValue(d docRef, field string) (typ schema.FieldType, numeric float64, text string, ok bool, err error) {
	v, present, err := d.seg.FastValue(field, d.id)
	if err != nil {
		return 0, 0, "", false, err
	}
	if !present {
		return 0, 0, "", false, nil
	}
	switch v.Type {
	case schema.U64, schema.I64:
		return v.Type, float64(v.Int), "", true, nil
	case schema.F64:
		return v.Type, v.Float, "", true, nil
	case schema.Date:
		return v.Type, float64(v.Date), "", true, nil
	case schema.Text, schema.Json, schema.IpAddr:
		return v.Type, 0, v.Text, true, nil
	case schema.Facet:
		return v.Type, 0, v.Facet, true, nil
	case schema.Bool:
		if v.Bool {
			return v.Type, 1, "", true, nil
		}
		return v.Type, 0, "", true, nil
	default:
		return v.Type, 0, "", false, nil
	}
}
