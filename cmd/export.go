package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newExportCmd creates the 'export' subcommand: the audit dump of the full
// ledger as a delimited table.
func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Exports the full known-links ledger as a semicolon-delimited table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			count, err := appInstance.GetEngine().ExportCatalogFile(out)
			if err != nil {
				return fmt.Errorf("export catalog: %w", err)
			}
			cmd.Printf("exported %d record(s) to %s\n", count, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "data/catalog_links.csv", "destination file for the catalog export")
	return cmd
}
