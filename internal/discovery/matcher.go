package discovery

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Drop reasons reported by Classify and exported via the
// discovery_links_dropped_total counter.
const (
	DropIrrelevant = "irrelevant"
	DropNoCategory = "no_category"
	DropNoDate     = "no_date"
)

// CategoryPattern binds a category to its ordered list of match patterns.
// Patterns are plain substrings checked against accent-stripped, lowercased
// text. The order of the table and of the patterns within each entry is part
// of the matcher contract: earlier entries shadow later ones, so reordering
// is a behavioral change.
type CategoryPattern struct {
	Category Category
	Patterns []string
}

// DefaultCategoryPatterns is the built-in pattern table for the CMED price
// lists. It can be replaced wholesale through configuration.
func DefaultCategoryPatterns() []CategoryPattern {
	return []CategoryPattern{
		{Category: CategoryPMC, Patterns: []string{
			"preco maximo ao consumidor",
			"pmc",
			"preco maximo",
			"xls_conformidade_site",
		}},
		{Category: CategoryPMVG, Patterns: []string{
			"compras publicas",
			"pmvg",
			"governo",
			"xls_conformidade_gov",
		}},
		{Category: CategoryPF, Patterns: []string{
			"preco fabrica",
			"pf",
		}},
	}
}

// Tokens in the URL path that identify conformidade spreadsheets as opposed
// to resolution documents published on the same page.
var conformidadeTokens = []string{
	"xls_conformidade_site",
	"xls_conformidade_gov",
	"xls_conformidade_portal",
	"lista_conformidade",
}

// Ordered date patterns applied to the URL. First match wins; the trailing
// patterns are deliberately broader than the leading ones.
var urlDatePatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{name: "yyyymmdd", re: regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)},
	{name: "yyyy_mm_", re: regexp.MustCompile(`(\d{4})_(\d{2})_`)},
	{name: "yyyymm_", re: regexp.MustCompile(`(\d{4})(\d{2})_`)},
	{name: "_yyyy_mm", re: regexp.MustCompile(`_(\d{4})_(\d{2})`)},
}

// monthSlashYear matches Portuguese "mês/ano" references such as "abril/23"
// or "janeiro/2024" in already-normalized text.
var monthSlashYear = regexp.MustCompile(
	`\b(janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\s*/\s*(\d{2,4})\b`)

var monthNumbers = map[string]int{
	"janeiro": 1, "fevereiro": 2, "marco": 3, "abril": 4,
	"maio": 5, "junho": 6, "julho": 7, "agosto": 8,
	"setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
}

// Matcher classifies raw links into catalog records using ordered heuristic
// pattern matching. Classification is a pure function of its inputs plus the
// injected clock, which only bounds the plausible year window.
type Matcher struct {
	categories []CategoryPattern
	clock      Clock
}

// NewMatcher builds a Matcher over the given pattern table. Patterns are
// normalized once at construction. A nil or empty table falls back to
// DefaultCategoryPatterns.
func NewMatcher(table []CategoryPattern, clock Clock) *Matcher {
	if len(table) == 0 {
		table = DefaultCategoryPatterns()
	}
	normalized := make([]CategoryPattern, 0, len(table))
	for _, entry := range table {
		patterns := make([]string, 0, len(entry.Patterns))
		for _, p := range entry.Patterns {
			p = NormalizeText(p)
			if p != "" {
				patterns = append(patterns, p)
			}
		}
		normalized = append(normalized, CategoryPattern{
			Category: entry.Category,
			Patterns: patterns,
		})
	}
	return &Matcher{categories: normalized, clock: clock}
}

// NormalizeText lowercases text and strips diacritics so that pattern tables
// can be written without accents ("preço" and "preco" compare equal).
func NormalizeText(text string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(chain, text)
	if err != nil {
		out = text
	}
	return strings.ToLower(out)
}

// Classify maps a raw link to a LinkRecord. The boolean is false when the
// link is discarded; the string then carries the drop reason.
func (m *Matcher) Classify(rawURL, anchorText, context string) (LinkRecord, bool, string) {
	urlLower := strings.ToLower(rawURL)
	if isResolutionLink(urlLower) {
		return LinkRecord{}, false, DropIrrelevant
	}
	if !looksLikeSpreadsheet(urlLower, anchorText) {
		return LinkRecord{}, false, DropIrrelevant
	}

	category, ok := m.DetectCategory(anchorText + " " + context + " " + rawURL)
	if !ok {
		return LinkRecord{}, false, DropNoCategory
	}

	period, ok := m.ExtractPeriod(rawURL, anchorText+" "+context)
	if !ok {
		// A category without a period is not actionable.
		return LinkRecord{}, false, DropNoDate
	}

	return LinkRecord{
		Category:    category,
		Year:        period.Year,
		Month:       period.Month,
		MonthName:   MonthName(period.Month),
		URL:         rawURL,
		CollectedAt: m.clock.Now(),
	}, true, ""
}

// DetectCategory runs the ordered category pattern table against the given
// text. The first category with any matching pattern wins.
func (m *Matcher) DetectCategory(text string) (Category, bool) {
	normalized := NormalizeText(text)
	for _, entry := range m.categories {
		for _, pattern := range entry.Patterns {
			if strings.Contains(normalized, pattern) {
				return entry.Category, true
			}
		}
	}
	return "", false
}

// ExtractPeriod pulls a (year, month) out of the URL first and the
// surrounding text second, using the ordered date pattern lists.
func (m *Matcher) ExtractPeriod(rawURL, text string) (Period, bool) {
	if p, ok := m.periodFromURL(rawURL); ok {
		return p, true
	}
	return m.periodFromText(text)
}

func (m *Matcher) periodFromURL(rawURL string) (Period, bool) {
	for _, pattern := range urlDatePatterns {
		match := pattern.re.FindStringSubmatch(rawURL)
		if match == nil {
			continue
		}
		p := Period{Year: atoi(match[1]), Month: atoi(match[2])}
		if m.plausible(p) {
			return p, true
		}
	}
	return Period{}, false
}

func (m *Matcher) periodFromText(text string) (Period, bool) {
	match := monthSlashYear.FindStringSubmatch(NormalizeText(text))
	if match == nil {
		return Period{}, false
	}
	year := atoi(match[2])
	if year < 100 {
		year += 2000
	}
	p := Period{Year: year, Month: monthNumbers[match[1]]}
	if !m.plausible(p) {
		return Period{}, false
	}
	return p, true
}

// plausible bounds the extracted date: months 1-12, years from 2000 through
// next year. Digit runs in URLs frequently encode other identifiers.
func (m *Matcher) plausible(p Period) bool {
	if p.Month < 1 || p.Month > 12 {
		return false
	}
	maxYear := m.clock.Now().Year() + 1
	return p.Year >= 2000 && p.Year <= maxYear
}

func isResolutionLink(urlLower string) bool {
	return strings.Contains(urlLower, "_reso_") || strings.Contains(urlLower, "resolucao")
}

func looksLikeSpreadsheet(urlLower, anchorText string) bool {
	if strings.Contains(urlLower, ".xls") {
		return true
	}
	if strings.Contains(strings.ToUpper(anchorText), "XLS") {
		return true
	}
	for _, token := range conformidadeTokens {
		if strings.Contains(urlLower, token) {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
