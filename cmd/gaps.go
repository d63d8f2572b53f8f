package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
	"github.com/lucianohb/cmed-crawler/internal/hybrid"
)

// newGapsCmd creates the 'gaps' subcommand: coverage analysis of an
// expected calendar range.
func newGapsCmd() *cobra.Command {
	var flags periodFlags
	var ledgerOnly bool

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Reports periods missing from the expected calendar range",
		Long: `Compares the expected monthly sequence against what has been observed
and lists the missing (year, month) pairs. By default both the legacy
snapshot source and the live page are consulted and cross-validated;
with --ledger-only the report is computed from the local ledger without
touching the network.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			category, start, end, err := flags.parse()
			if err != nil {
				return err
			}

			if ledgerOnly {
				report := appInstance.GetEngine().GapReport(category, start, end)
				hybrid.NewLogReporter(appInstance.GetLogger()).Report(report)
				printGapReport(cmd, report.Missing, report.CoveragePct)
				return nil
			}

			if end != nil {
				// The validation path always runs to the current period.
				appInstance.GetLogger().Warn("Ignoring --end-year/--end-month; validation runs to the current period")
			}
			report, err := appInstance.GetSource().ValidateAndReportGaps(cmd.Context(), category, start)
			if err != nil {
				return fmt.Errorf("validate gaps: %w", err)
			}
			hybrid.NewLogReporter(appInstance.GetLogger()).Report(report)
			printGapReport(cmd, report.Missing, report.CoveragePct)
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&ledgerOnly, "ledger-only", false, "compute gaps from the local ledger without scraping")
	return cmd
}

func printGapReport(cmd *cobra.Command, missing []discovery.Period, coverage float64) {
	cmd.Printf("coverage: %.2f%%\n", coverage)
	if len(missing) == 0 {
		cmd.Println("no missing periods")
		return
	}
	for _, p := range missing {
		cmd.Printf("missing: %s\n", p.String())
	}
}
