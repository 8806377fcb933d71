package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/pkg/engine"
)

func metricKindByName(name string) (engine.MetricKind, bool) {
	switch name {
	case "avg":
		return engine.MetricAvg, true
	case "min":
		return engine.MetricMin, true
	case "max":
		return engine.MetricMax, true
	case "sum":
		return engine.MetricSum, true
	case "value_count":
		return engine.MetricValueCount, true
	case "stats":
		return engine.MetricStats, true
	case "percentiles":
		return engine.MetricPercentiles, true
	default:
		return 0, false
	}
}

func newAggCmd() *cobra.Command {
	var metricField string
	var metricName string
	var bucketField string
	var searchField string
	var limit int

	cmd := &cobra.Command{
		Use:   "agg <query>",
		Short: "Run one aggregation over the full match set of a query",
		Long: `Computes one named aggregation over every live document matching
<query>, not just the top search results (§4.7).

Examples:
  enginectl agg "category:books" --metric stats --metric-field price
  enginectl agg "title:quick" --bucket-field category --metric sum --metric-field price`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := metricKindByName(metricName)
			if !ok {
				return fmt.Errorf("unknown metric %q", metricName)
			}

			spec := engine.AggregationSpec{}
			if bucketField != "" {
				spec.IsBucket = true
				spec.Bucket = engine.BucketTerms
				spec.Field = bucketField
				spec.Size = limit
				if metricField != "" {
					spec.SubAggregations = map[string]engine.AggregationSpec{
						"metric": {Metric: kind, Field: metricField},
					}
				}
			} else {
				spec.Field = metricField
				spec.Metric = kind
			}

			return runAgg(cmd, args[0], searchField, engine.AggregationRequest{"result": spec})
		},
	}

	cmd.Flags().StringVar(&metricField, "metric-field", "price", "Field the metric accumulates over")
	cmd.Flags().StringVar(&metricName, "metric", "stats", "avg|min|max|sum|value_count|stats|percentiles")
	cmd.Flags().StringVar(&bucketField, "bucket-field", "", "Terms-bucket on this field before accumulating the metric")
	cmd.Flags().StringVar(&searchField, "field", "title", "Default field for bare query terms")
	cmd.Flags().IntVar(&limit, "limit", 10, "Max buckets returned when --bucket-field is set")
	return cmd
}

func runAgg(cmd *cobra.Command, queryStr, searchField string, request engine.AggregationRequest) error {
	ctx := cmd.Context()
	idx, err := openIndex(ctx, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	q, err := idx.ParseQuery(queryStr, searchField)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}

	_, results, err := idx.SearchWithAggregation(ctx, q, 1, request)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
