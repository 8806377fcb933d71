package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Declare or inspect the schema persisted under --data-dir",
	}
	cmd.AddCommand(newSchemaInitCmd())
	cmd.AddCommand(newSchemaShowCmd())
	return cmd
}

func newSchemaInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the demonstration schema to --data-dir/schema.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := writeSchema(dataDir, demoSchema()); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote schema to %s\n", filepath.Join(dataDir, schemaFile))
			return err
		},
	}
}

func newSchemaShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the schema persisted under --data-dir",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(filepath.Join(dataDir, schemaFile))
			if err != nil {
				return fmt.Errorf("read %s: %w (run 'enginectl schema init' first)", schemaFile, err)
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		},
	}
}
