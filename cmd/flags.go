package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
)

// periodFlags is the flag set shared by every command that works on a
// category and a calendar range.
type periodFlags struct {
	category   string
	startYear  int
	startMonth int
	endYear    int
	endMonth   int
}

func (f *periodFlags) register(cmd *cobra.Command, withEnd bool) {
	cmd.Flags().StringVar(&f.category, "category", "PMC", "price list category (PMC, PMVG, PF)")
	cmd.Flags().IntVar(&f.startYear, "start-year", 2023, "first year of the expected range")
	cmd.Flags().IntVar(&f.startMonth, "start-month", 1, "first month of the expected range")
	if withEnd {
		cmd.Flags().IntVar(&f.endYear, "end-year", 0, "last year of the expected range (0 = current)")
		cmd.Flags().IntVar(&f.endMonth, "end-month", 0, "last month of the expected range (0 = current)")
	}
}

func (f *periodFlags) parse() (discovery.Category, discovery.Period, *discovery.Period, error) {
	category := discovery.Category(strings.ToUpper(strings.TrimSpace(f.category)))
	if category == "" {
		return "", discovery.Period{}, nil, fmt.Errorf("--category must be set")
	}
	if f.startMonth < 1 || f.startMonth > 12 {
		return "", discovery.Period{}, nil, fmt.Errorf("--start-month must be 1-12")
	}
	start := discovery.Period{Year: f.startYear, Month: f.startMonth}

	var end *discovery.Period
	if f.endYear != 0 || f.endMonth != 0 {
		if f.endYear == 0 || f.endMonth < 1 || f.endMonth > 12 {
			return "", discovery.Period{}, nil, fmt.Errorf("--end-year and --end-month must both be set and valid")
		}
		end = &discovery.Period{Year: f.endYear, Month: f.endMonth}
	}
	return category, start, end, nil
}
