// Package cmd provides the CLI commands for enginectl, a demonstration
// and debugging tool that exercises the engine's whole lifecycle:
// schema declaration, indexing, search, aggregation, and cross-shard
// coordination.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanmcp/pkg/version"
)

// dataDir is the root command's persistent --data-dir flag, read by
// every subcommand that opens an index.
var dataDir string

// NewRootCmd creates the root command for the enginectl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "enginectl",
		Short:   "Inspect and drive an embedded search index from the command line",
		Version: version.Version,
		Long: `enginectl exercises the embeddable search engine's full lifecycle
for manual verification and debugging: declare a schema, add documents,
search, aggregate, and fan a query out across multiple local shards.`,
	}

	cmd.SetVersionTemplate("enginectl version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./.enginectl", "Directory backing the index")

	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAggCmd())
	cmd.AddCommand(newClusterCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
