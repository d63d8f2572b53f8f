package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
)

// newDownloadCmd creates the 'download' subcommand: fetch the files behind
// the catalog to local storage.
func newDownloadCmd() *cobra.Command {
	var category string
	var newOnly bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Downloads discovered price table files to local storage",
		Long: `Runs discovery and fetches each catalog file into the configured output
directory. With --new-only the run is incremental: only files absent
from the ledger are fetched, and the ledger is updated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			filter := discovery.Category(strings.ToUpper(strings.TrimSpace(category)))
			engine := appInstance.GetEngine()

			var catalog discovery.Catalog
			if newOnly {
				catalog, err = engine.NewFilesSinceLastRun(cmd.Context(), filter)
			} else {
				catalog, err = engine.ScrapeAvailableFiles(cmd.Context(), filter)
			}
			if err != nil {
				return fmt.Errorf("download discovery: %w", err)
			}
			if len(catalog) == 0 {
				cmd.Println("nothing to download")
				return nil
			}

			saved, err := appInstance.GetDownloader().Download(cmd.Context(), catalog)
			if err != nil {
				return fmt.Errorf("download files: %w", err)
			}
			cmd.Printf("downloaded %d of %d file(s)\n", len(saved), len(catalog))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "restrict downloads to one category (empty = all)")
	cmd.Flags().BoolVar(&newOnly, "new-only", false, "download only files not yet in the ledger")
	return cmd
}
