package discovery

import (
	"math"
	"sort"
)

// PeriodRange returns the full inclusive calendar sequence from start to
// end in chronological order. A start after end yields an empty sequence.
func PeriodRange(start, end Period) []Period {
	if start.After(end) {
		return nil
	}
	var out []Period
	for p := start; !p.After(end); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// MissingPeriods subtracts the observed set from the expected sequence,
// preserving chronological order.
func MissingPeriods(expected []Period, observed map[Period]struct{}) []Period {
	var missing []Period
	for _, p := range expected {
		if _, ok := observed[p]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

// SortPeriods orders periods chronologically in place.
func SortPeriods(periods []Period) {
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Before(periods[j])
	})
}

// BuildGapReport computes coverage of the observed set against the expected
// range [start, end]. Observed periods outside the range do not count toward
// coverage.
func BuildGapReport(category Category, start, end Period, observed map[Period]struct{}) GapReport {
	expected := PeriodRange(start, end)
	inRange := make([]Period, 0, len(observed))
	for _, p := range expected {
		if _, ok := observed[p]; ok {
			inRange = append(inRange, p)
		}
	}
	missing := MissingPeriods(expected, observed)

	coverage := 0.0
	if len(expected) > 0 {
		coverage = float64(len(inRange)) / float64(len(expected)) * 100
		coverage = math.Round(coverage*100) / 100
	}
	return GapReport{
		Category:    category,
		Start:       start,
		End:         end,
		Expected:    len(expected),
		Observed:    inRange,
		Missing:     missing,
		CoveragePct: coverage,
	}
}
