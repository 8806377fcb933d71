package agg

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

// bucketKey identifies one bucket within a bucket aggregation's output
// (§4.7 bucket identity rules per agg type).
type bucketKey struct {
	label string
	from  *float64
	to    *float64
}

// assignBuckets runs phase one (§4.7 "bucket assignment") for spec,
// returning each bucket's member documents and a stable emission order
// (insertion order for Terms/Range, ascending key order for
// Histogram/DateHistogram).
func assignBuckets(docs []docRef, spec Spec) (map[bucketKey][]docRef, []bucketKey, error) {
	switch spec.Bucket {
	case BucketTerms:
		return assignTerms(docs, spec)
	case BucketHistogram:
		return assignHistogram(docs, spec)
	case BucketDateHistogram:
		return assignDateHistogram(docs, spec)
	case BucketRange:
		return assignRange(docs, spec)
	default:
		return nil, nil, engineerr.New(engineerr.CodeUnsupportedAggregation, "unknown bucket aggregation kind", nil)
	}
}

func assignTerms(docs []docRef, spec Spec) (map[bucketKey][]docRef, []bucketKey, error) {
	groups := make(map[bucketKey][]docRef)
	var order []bucketKey
	for _, d := range docs {
		_, _, text, ok, err := fieldValue(d, spec.Field)
		if err != nil {
			return nil, nil, err
		}
		if !ok || text == "" {
			continue
		}
		k := bucketKey{label: text}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], d)
	}
	return groups, order, nil
}

func assignHistogram(docs []docRef, spec Spec) (map[bucketKey][]docRef, []bucketKey, error) {
	if spec.Interval <= 0 {
		return nil, nil, engineerr.New(engineerr.CodeUnsupportedAggregation, "histogram requires a positive interval", nil)
	}
	groups := make(map[bucketKey][]docRef)
	for _, d := range docs {
		_, n, _, ok, err := fieldValue(d, spec.Field)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		key := math.Floor((n-spec.Offset)/spec.Interval)*spec.Interval + spec.Offset
		k := bucketKey{label: strconv.FormatFloat(key, 'g', -1, 64)}
		groups[k] = append(groups[k], d)
	}
	return groups, sortedNumericKeys(groups), nil
}

var calendarIntervals = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
}

func assignDateHistogram(docs []docRef, spec Spec) (map[bucketKey][]docRef, []bucketKey, error) {
	groups := make(map[bucketKey][]docRef)
	for _, d := range docs {
		_, n, _, ok, err := fieldValue(d, spec.Field)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		t := time.Unix(int64(n), 0).UTC()
		_, label := alignCalendar(t, spec.CalendarInterval)
		k := bucketKey{label: label}
		groups[k] = append(groups[k], d)
	}
	return groups, sortedTimeKeys(groups), nil
}

// alignCalendar floors t to the given calendar interval (§4.7
// "alignment to calendar boundaries"; month/quarter/year need calendar
// arithmetic rather than a fixed duration).
func alignCalendar(t time.Time, interval string) (time.Time, string) {
	switch interval {
	case "month":
		aligned := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return aligned, aligned.Format("2006-01")
	case "quarter":
		q := ((int(t.Month()) - 1) / 3) * 3
		aligned := time.Date(t.Year(), time.Month(q+1), 1, 0, 0, 0, 0, time.UTC)
		return aligned, aligned.Format("2006-01")
	case "year":
		aligned := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return aligned, aligned.Format("2006")
	default:
		d, ok := calendarIntervals[interval]
		if !ok {
			d = 24 * time.Hour
		}
		aligned := t.Truncate(d)
		return aligned, aligned.Format(time.RFC3339)
	}
}

func assignRange(docs []docRef, spec Spec) (map[bucketKey][]docRef, []bucketKey, error) {
	groups := make(map[bucketKey][]docRef)
	var order []bucketKey
	for _, r := range spec.Ranges {
		k := bucketKey{label: rangeLabel(r), from: r.From, to: r.To}
		order = append(order, k)
		groups[k] = nil
	}
	for _, d := range docs {
		_, n, _, ok, err := fieldValue(d, spec.Field)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		for _, k := range order {
			if (k.from == nil || n >= *k.from) && (k.to == nil || n < *k.to) {
				groups[k] = append(groups[k], d)
				break
			}
		}
	}
	return groups, order, nil
}

func rangeLabel(r RangeBound) string {
	if r.Key != "" {
		return r.Key
	}
	from, to := "*", "*"
	if r.From != nil {
		from = strconv.FormatFloat(*r.From, 'g', -1, 64)
	}
	if r.To != nil {
		to = strconv.FormatFloat(*r.To, 'g', -1, 64)
	}
	return from + "-" + to
}

func sortedNumericKeys(groups map[bucketKey][]docRef) []bucketKey {
	keys := make([]bucketKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.ParseFloat(keys[i].label, 64)
		b, _ := strconv.ParseFloat(keys[j].label, 64)
		return a < b
	})
	return keys
}

func sortedTimeKeys(groups map[bucketKey][]docRef) []bucketKey {
	keys := make([]bucketKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].label < keys[j].label })
	return keys
}
