package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/internal/output"
	"github.com/Aman-CERP/amanmcp/pkg/engine"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Add documents to, or report stats on, the index under --data-dir",
	}
	cmd.AddCommand(newIndexAddCmd())
	cmd.AddCommand(newIndexStatsCmd())
	return cmd
}

func newIndexAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file.jsonl>",
		Short: "Add every document in a newline-delimited JSON file and commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndexAdd(cmd, args[0])
		},
	}
}

func runIndexAdd(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	out := output.New(cmd.OutOrStdout())

	idx, err := openIndex(ctx, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	w, err := idx.NewWriter(ctx)
	if err != nil {
		return fmt.Errorf("open writer: %w", err)
	}
	defer func() { _ = w.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw engine.Document
		if err := json.Unmarshal(line, &raw); err != nil {
			return fmt.Errorf("parse document %d: %w", count+1, err)
		}
		if err := w.AddDocument(raw); err != nil {
			return fmt.Errorf("add document %d: %w", count+1, err)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if _, err := w.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	out.Successf("indexed %d documents from %s", count, path)
	return nil
}

func newIndexStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Report the currently bound snapshot's size",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			idx, err := openIndex(ctx, dataDir)
			if err != nil {
				return err
			}
			defer func() { _ = idx.Close() }()

			s := idx.Stats()
			out := output.New(cmd.OutOrStdout())
			out.Statusf("", "snapshot_id=%d segments=%d live_docs=%d", s.SnapshotID, s.SegmentCount, s.LiveDocCount)
			out.Statusf("", "writer memory budget: %s", humanize.Bytes(uint64(engine.DefaultConfig().Writer.MemoryBudgetBytes)))
			return nil
		},
	}
}
