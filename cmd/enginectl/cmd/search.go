package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/internal/output"
)

func newSearchCmd() *cobra.Command {
	var field string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index under --data-dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], field, limit)
		},
	}

	cmd.Flags().StringVarP(&field, "field", "f", "title", "Default field for bare query terms")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	return cmd
}

func runSearch(cmd *cobra.Command, queryStr, field string, limit int) error {
	ctx := cmd.Context()
	idx, err := openIndex(ctx, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	hits, err := idx.SearchString(ctx, queryStr, field, limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := output.New(cmd.OutOrStdout())
	if len(hits) == 0 {
		out.Status("", fmt.Sprintf("no results for %q", queryStr))
		return nil
	}

	out.Statusf("", "found %d results for %q:", len(hits), queryStr)
	out.Newline()
	for i, h := range hits {
		out.Statusf("", "%d. [%s/%d] (score: %.3f) %v", i+1, h.Address.Segment, h.Address.Doc, h.Score, h.Stored)
	}
	return nil
}
