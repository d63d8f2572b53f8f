package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
)

// newDiscoverCmd creates the 'discover' subcommand: one full scrape of the
// index page, printed as the catalog it produced.
func newDiscoverCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scrapes the index page and lists every discovered file",
		Long: `Fetches the configured ANVISA index page once, classifies every link,
and prints the resulting catalog. The ledger is not modified; use 'new'
for incremental detection.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			filter := discovery.Category(strings.ToUpper(strings.TrimSpace(category)))
			catalog, err := appInstance.GetEngine().ScrapeAvailableFiles(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("discover: %w", err)
			}

			printCatalog(cmd, catalog)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "restrict output to one category (empty = all)")
	return cmd
}

func printCatalog(cmd *cobra.Command, catalog discovery.Catalog) {
	if len(catalog) == 0 {
		cmd.Println("no files found")
		return
	}
	for _, rec := range catalog {
		cmd.Printf("%04d-%02d  %-5s  %s\n", rec.Year, rec.Month, rec.Category, rec.URL)
	}
	cmd.Printf("%d file(s)\n", len(catalog))
}
