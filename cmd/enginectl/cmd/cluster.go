package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/internal/output"
	"github.com/Aman-CERP/amanmcp/pkg/engine"
)

func newClusterCmd() *cobra.Command {
	var shardDirs []string
	var field string
	var limit int

	cmd := &cobra.Command{
		Use:   "cluster <query>",
		Short: "Fan a query out across several local indexes as shards (§4.8)",
		Long: `Opens one Index per --shard directory, registers each as a shard
on a single Cluster, and dispatches <query> with the Broadcast routing
strategy, reporting the merged global top-K plus each shard's status.

Example:
  enginectl cluster "title:quick" --shard ./shard-a --shard ./shard-b`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(cmd, args[0], shardDirs, field, limit)
		},
	}

	cmd.Flags().StringArrayVar(&shardDirs, "shard", nil, "Data directory of one shard; repeat to add more")
	cmd.Flags().StringVarP(&field, "field", "f", "title", "Default field for bare query terms")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of merged results")
	return cmd
}

func runCluster(cmd *cobra.Command, queryStr string, shardDirs []string, field string, limit int) error {
	if len(shardDirs) < 2 {
		return fmt.Errorf("need at least 2 --shard directories, got %d", len(shardDirs))
	}

	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	var indexes []*engine.Index
	defer func() {
		for _, idx := range indexes {
			_ = idx.Close()
		}
	}()

	cluster := engine.NewCluster(engine.DefaultConfig())

	for i, dir := range shardDirs {
		idx, err := openIndex(ctx, dir)
		if err != nil {
			return fmt.Errorf("open shard %s: %w", dir, err)
		}
		indexes = append(indexes, idx)
		name := fmt.Sprintf("shard-%d", i)
		cluster.RegisterShard(name, idx.AsShard(), 1)
		out.Statusf("", "registered %s from %s", name, dir)
	}

	// Every shard is expected to share the same schema, so the query
	// is compiled once against the first shard and dispatched to all.
	q, err := indexes[0].ParseQuery(queryStr, field)
	if err != nil {
		return fmt.Errorf("parse query: %w", err)
	}

	result, err := cluster.Search(ctx, q, limit)
	if err != nil {
		return fmt.Errorf("cluster search: %w", err)
	}

	out.Newline()
	out.Statusf("", "merged %d hits for %q:", len(result.Hits), queryStr)
	for i, h := range result.Hits {
		out.Statusf("", "%d. [%s] (score: %.3f) %v", i+1, h.ShardID, h.Score, h.Stored)
	}

	out.Newline()
	for name, status := range result.PerShardStatus {
		out.Statusf("", "%s: success=%v timeout=%v latency=%s", name, status.Success, status.Timeout, status.Latency)
	}
	return nil
}
