package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
)

// newNewCmd creates the 'new' subcommand: incremental detection against the
// ledger. This is the command scheduled jobs run.
func newNewCmd() *cobra.Command {
	var category string
	var forceRefresh bool

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Lists files first seen on this run and records them in the ledger",
		Long: `Scrapes the index page, merges the catalog into the known-links ledger,
saves the ledger, and prints only the records whose URLs had never been
seen before. Running it twice in a row with an unchanged page prints
nothing the second time. With --force-refresh the ledger is cleared
first, so every discovered file reports as new again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			if forceRefresh {
				appInstance.GetLogger().Info("Forcing full rediscovery; clearing the ledger")
				appInstance.GetLedger().Clear()
			}

			filter := discovery.Category(strings.ToUpper(strings.TrimSpace(category)))
			fresh, err := appInstance.GetEngine().NewFilesSinceLastRun(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("detect new files: %w", err)
			}

			printCatalog(cmd, fresh)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "restrict detection to one category (empty = all)")
	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "clear the known-links ledger and treat every file as new")
	return cmd
}
