package agg

import (
	"sort"

	"github.com/Aman-CERP/amanmcp/internal/engineconfig"
	"github.com/Aman-CERP/amanmcp/internal/engineerr"
)

// executeMetric runs phase two (§4.7 "metric accumulation") for a single
// metric spec over docs, one pass except Percentiles, which needs a
// sketch rather than the full sorted sample (§4.7 "approximate
// quantiles under a bounded memory budget").
func executeMetric(docs []docRef, spec Spec, cfg engineconfig.AggregationConfig) (*MetricResult, error) {
	if spec.Metric == MetricPercentiles {
		return executePercentiles(docs, spec, cfg)
	}

	var (
		count int
		sum   float64
		min   float64
		max   float64
		first = true
	)
	for _, d := range docs {
		_, n, _, ok, err := fieldValue(d, spec.Field)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		count++
		sum += n
		if first {
			min, max = n, n
			first = false
		} else {
			if n < min {
				min = n
			}
			if n > max {
				max = n
			}
		}
	}

	switch spec.Metric {
	case MetricValueCount:
		return &MetricResult{Value: float64(count), HasValue: true}, nil
	case MetricSum:
		return &MetricResult{Value: sum, HasValue: count > 0}, nil
	case MetricMin:
		return &MetricResult{Value: min, HasValue: count > 0}, nil
	case MetricMax:
		return &MetricResult{Value: max, HasValue: count > 0}, nil
	case MetricAvg:
		if count == 0 {
			return &MetricResult{}, nil
		}
		return &MetricResult{Value: sum / float64(count), HasValue: true}, nil
	case MetricStats:
		st := &Stats{Count: count, Min: min, Max: max, Sum: sum}
		if count > 0 {
			st.Avg = sum / float64(count)
		}
		return &MetricResult{Stats: st}, nil
	default:
		return nil, engineerr.New(engineerr.CodeUnsupportedAggregation, "unknown metric aggregation kind", nil)
	}
}

func executePercentiles(docs []docRef, spec Spec, cfg engineconfig.AggregationConfig) (*MetricResult, error) {
	compression := cfg.PercentileCompression
	if compression <= 0 {
		compression = 100
	}
	d := newDigest(compression)
	for _, doc := range docs {
		_, n, _, ok, err := fieldValue(doc, spec.Field)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		d.add(n)
	}

	percents := spec.Percents
	if len(percents) == 0 {
		percents = []float64{1, 5, 25, 50, 75, 95, 99}
	}
	out := make(map[string]float64, len(percents))
	for _, p := range percents {
		out[percentileLabel(p)] = d.quantile(p / 100)
	}
	return &MetricResult{Percentiles: out}, nil
}

func percentileLabel(p float64) string {
	s := trimFloat(p)
	return s
}

func trimFloat(f float64) string {
	const digits = "0123456789"
	i := int64(f * 100)
	whole := i / 100
	frac := i % 100
	if frac == 0 {
		return itoa(int(whole))
	}
	buf := []byte(itoa(int(whole)))
	buf = append(buf, '.')
	tens := frac / 10
	ones := frac % 10
	buf = append(buf, digits[tens])
	if ones != 0 {
		buf = append(buf, digits[ones])
	}
	return string(buf)
}

// centroid is one weighted mean sample in the digest (a simplified
// t-digest: no library in the pack provides approximate quantile
// sketches, so this is hand-rolled per the memory-budget constraint of
// §4.7 rather than retaining every sample for an exact sort).
type centroid struct {
	mean  float64
	count int
}

type digest struct {
	maxCentroids int
	centroids    []centroid
	total        int
}

func newDigest(compression float64) *digest {
	max := int(compression)
	if max < 4 {
		max = 4
	}
	return &digest{maxCentroids: max}
}

func (d *digest) add(x float64) {
	d.total++
	i := sort.Search(len(d.centroids), func(i int) bool { return d.centroids[i].mean >= x })
	if i < len(d.centroids) && d.centroids[i].mean == x {
		d.centroids[i].count++
	} else {
		d.centroids = append(d.centroids, centroid{})
		copy(d.centroids[i+1:], d.centroids[i:])
		d.centroids[i] = centroid{mean: x, count: 1}
	}
	if len(d.centroids) > d.maxCentroids*4 {
		d.compress()
	}
}

// compress merges the closest adjacent centroid pairs until the
// centroid count is back within budget, trading precision for the
// configured memory ceiling.
func (d *digest) compress() {
	for len(d.centroids) > d.maxCentroids {
		best := -1
		bestDist := 0.0
		for i := 0; i < len(d.centroids)-1; i++ {
			dist := d.centroids[i+1].mean - d.centroids[i].mean
			if best == -1 || dist < bestDist {
				best = i
				bestDist = dist
			}
		}
		a, b := d.centroids[best], d.centroids[best+1]
		merged := centroid{
			mean:  (a.mean*float64(a.count) + b.mean*float64(b.count)) / float64(a.count+b.count),
			count: a.count + b.count,
		}
		d.centroids = append(d.centroids[:best], append([]centroid{merged}, d.centroids[best+2:]...)...)
	}
}

func (d *digest) quantile(q float64) float64 {
	if len(d.centroids) == 0 {
		return 0
	}
	if q <= 0 {
		return d.centroids[0].mean
	}
	if q >= 1 {
		return d.centroids[len(d.centroids)-1].mean
	}
	target := q * float64(d.total)
	cumulative := 0.0
	for i, c := range d.centroids {
		next := cumulative + float64(c.count)
		if target <= next || i == len(d.centroids)-1 {
			return c.mean
		}
		cumulative = next
	}
	return d.centroids[len(d.centroids)-1].mean
}
