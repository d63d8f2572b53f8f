// Package discovery defines core types shared across subsystems.
package discovery

import (
	"fmt"
	"sort"
	"time"
)

// Category identifies which price-table universe a discovered file belongs to.
type Category string

// Categories published by CMED. The matcher's pattern table is configurable,
// so additional categories can be introduced without code changes.
const (
	CategoryPMC  Category = "PMC"
	CategoryPMVG Category = "PMVG"
	CategoryPF   Category = "PF"
)

// monthNames maps month numbers to their Portuguese display names.
// Display only; the numeric month is authoritative.
var monthNames = [13]string{
	"",
	"janeiro", "fevereiro", "marco", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// MonthName returns the Portuguese display name for a month number,
// or the empty string when the month is out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month]
}

// Period is a (year, month) pair, the unit of gap analysis.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Before reports whether p is chronologically before other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// After reports whether p is chronologically after other.
func (p Period) After(other Period) bool {
	return other.Before(p)
}

// Next returns the following calendar period.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// String renders the period as MM/YYYY.
func (p Period) String() string {
	return fmt.Sprintf("%02d/%04d", p.Month, p.Year)
}

// LinkRecord is one discovered file reference. URL is the natural identity
// key: two records with the same URL refer to the same file.
type LinkRecord struct {
	Category    Category  `json:"category"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	MonthName   string    `json:"month_name"`
	URL         string    `json:"url"`
	CollectedAt time.Time `json:"collected_at"`
}

// Period returns the record's (year, month) pair.
func (r LinkRecord) Period() Period {
	return Period{Year: r.Year, Month: r.Month}
}

// Catalog is the ordered result set of one discovery run. It is created
// fresh per call and never persisted directly; the ledger is the persisted
// derivative.
type Catalog []LinkRecord

// Sort fixes the deterministic catalog order required for reproducible
// diffs: (year, month) ascending, then category, then URL.
func (c Catalog) Sort() {
	sort.Slice(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.URL < b.URL
	})
}

// FilterCategory returns the records belonging to the given category.
// An empty category returns the catalog unchanged.
func (c Catalog) FilterCategory(category Category) Catalog {
	if category == "" {
		return c
	}
	out := make(Catalog, 0, len(c))
	for _, rec := range c {
		if rec.Category == category {
			out = append(out, rec)
		}
	}
	return out
}

// Periods returns the set of distinct periods present in the catalog.
func (c Catalog) Periods() map[Period]struct{} {
	set := make(map[Period]struct{}, len(c))
	for _, rec := range c {
		set[rec.Period()] = struct{}{}
	}
	return set
}

// DedupeByPeriod collapses the catalog to one record per (category, year,
// month), keeping the first record in catalog order. Revisions published
// under distinct URLs for the same period are legitimate, so this is an
// explicit opt-in for consumers that key by period, never the default.
func (c Catalog) DedupeByPeriod() Catalog {
	type key struct {
		category Category
		period   Period
	}
	seen := make(map[key]struct{}, len(c))
	out := make(Catalog, 0, len(c))
	for _, rec := range c {
		k := key{category: rec.Category, period: rec.Period()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// GapReport summarizes coverage of a category against an expected calendar
// range. It is ephemeral: recomputed on demand, never persisted.
type GapReport struct {
	Category    Category `json:"category"`
	Start       Period   `json:"start"`
	End         Period   `json:"end"`
	Expected    int      `json:"expected_periods"`
	Observed    []Period `json:"observed_periods"`
	Missing     []Period `json:"missing_periods"`
	CoveragePct float64  `json:"coverage_percentage"`
}
