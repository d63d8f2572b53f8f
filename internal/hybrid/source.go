// Package hybrid routes link requests between the legacy static snapshot
// source and the live discovery engine around a configured cutoff year, and
// cross-validates the two.
package hybrid

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
)

// DynamicSource is the live side of the router: the discovery engine.
type DynamicSource interface {
	ScrapeAvailableFiles(ctx context.Context, categoryFilter discovery.Category) (discovery.Catalog, error)
}

// Reporter consumes gap reports. The alerting pipeline behind it is a
// collaborator, not part of this package.
type Reporter interface {
	Report(report discovery.GapReport)
}

// Config controls the routing boundary and where the legacy snapshots live.
type Config struct {
	// CutoffYear is the first year served by live discovery; years before
	// it come from static snapshots.
	CutoffYear int
	// SnippetsDir holds one pre-fetched HTML snapshot per category/year:
	// <dir>/<category>/<year>.html.
	SnippetsDir string
}

// Validate checks the routing configuration.
func (c Config) Validate() error {
	if c.CutoffYear < 2000 {
		return fmt.Errorf("hybrid.cutoff_year must be >= 2000")
	}
	return nil
}

// Source blends the snapshot source with the discovery engine.
type Source struct {
	cfg     Config
	engine  DynamicSource
	matcher *discovery.Matcher
	clock   discovery.Clock
	logger  *zap.Logger
}

// New builds a hybrid source.
func New(cfg Config, engine DynamicSource, matcher *discovery.Matcher, clock discovery.Clock, logger *zap.Logger) *Source {
	return &Source{
		cfg:     cfg,
		engine:  engine,
		matcher: matcher,
		clock:   clock,
		logger:  logger,
	}
}

// GetLinks returns one record per period in [start, end] for the category,
// snapshots below the cutoff and live discovery at or above it. A zero end
// defaults to the current calendar period. With preferDynamic the cutoff is
// bypassed and the engine serves the whole range, which is how the two
// sources get cross-validated.
//
// The merged view is period-keyed: when both sources cover a period, the
// snapshot record wins, since the static source is the more stable of the
// two.
func (s *Source) GetLinks(
	ctx context.Context,
	category discovery.Category,
	start, end discovery.Period,
	preferDynamic bool,
) (discovery.Catalog, error) {
	if (end == discovery.Period{}) {
		end = s.currentPeriod()
	}
	if start.After(end) {
		return discovery.Catalog{}, nil
	}

	byPeriod := make(map[discovery.Period]discovery.LinkRecord)

	if !preferDynamic {
		for _, rec := range s.snapshotRecords(category, start, end) {
			if _, ok := byPeriod[rec.Period()]; !ok {
				byPeriod[rec.Period()] = rec
			}
		}
	}

	dynamicFrom := discovery.Period{Year: s.cfg.CutoffYear, Month: 1}
	if preferDynamic || start.After(dynamicFrom) {
		dynamicFrom = start
	}
	if !dynamicFrom.After(end) {
		catalog, err := s.engine.ScrapeAvailableFiles(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("hybrid dynamic source: %w", err)
		}
		for _, rec := range inRange(catalog, dynamicFrom, end) {
			if _, ok := byPeriod[rec.Period()]; !ok {
				byPeriod[rec.Period()] = rec
			}
		}
	}

	merged := make(discovery.Catalog, 0, len(byPeriod))
	for _, rec := range byPeriod {
		merged = append(merged, rec)
	}
	merged.Sort()

	s.logger.Info("Hybrid links resolved",
		zap.String("category", string(category)),
		zap.String("start", start.String()),
		zap.String("end", end.String()),
		zap.Bool("prefer_dynamic", preferDynamic),
		zap.Int("periods", len(merged)),
	)
	return merged, nil
}

// ValidateAndReportGaps compares both sources' period sets from start to the
// current period and returns the gap report for the merged view. Divergences
// between the sources are warnings, never failures.
func (s *Source) ValidateAndReportGaps(
	ctx context.Context,
	category discovery.Category,
	start discovery.Period,
) (discovery.GapReport, error) {
	end := s.currentPeriod()

	merged, err := s.GetLinks(ctx, category, start, end, false)
	if err != nil {
		return discovery.GapReport{}, err
	}

	dynamic, err := s.engine.ScrapeAvailableFiles(ctx, category)
	if err != nil {
		return discovery.GapReport{}, fmt.Errorf("hybrid validation scrape: %w", err)
	}
	s.warnDivergences(category, start, end, dynamic)

	report := discovery.BuildGapReport(category, start, end, merged.Periods())
	s.logger.Info("Coverage validated",
		zap.String("category", string(category)),
		zap.Int("expected", report.Expected),
		zap.Int("observed", len(report.Observed)),
		zap.Int("missing", len(report.Missing)),
		zap.Float64("coverage_pct", report.CoveragePct),
	)
	return report, nil
}

// warnDivergences flags periods below the cutoff where the snapshot and the
// live page disagree.
func (s *Source) warnDivergences(
	category discovery.Category,
	start, end discovery.Period,
	dynamic discovery.Catalog,
) {
	legacyEnd := discovery.Period{Year: s.cfg.CutoffYear - 1, Month: 12}
	if legacyEnd.Before(start) {
		return
	}
	if end.Before(legacyEnd) {
		legacyEnd = end
	}

	snapshotPeriods := make(map[discovery.Period]struct{})
	for _, rec := range s.snapshotRecords(category, start, legacyEnd) {
		snapshotPeriods[rec.Period()] = struct{}{}
	}
	dynamicPeriods := inRange(dynamic, start, legacyEnd).Periods()

	for p := range snapshotPeriods {
		if _, ok := dynamicPeriods[p]; !ok {
			s.logger.Warn("Period present in snapshot but absent from live page",
				zap.String("category", string(category)),
				zap.String("period", p.String()),
			)
		}
	}
	for p := range dynamicPeriods {
		if _, ok := snapshotPeriods[p]; !ok {
			s.logger.Warn("Period present on live page but absent from snapshot",
				zap.String("category", string(category)),
				zap.String("period", p.String()),
			)
		}
	}
}

// snapshotRecords loads and parses every per-year snapshot that overlaps
// [start, end] below the cutoff. Missing or unreadable snapshots are
// logged and skipped.
func (s *Source) snapshotRecords(category discovery.Category, start, end discovery.Period) discovery.Catalog {
	if s.cfg.SnippetsDir == "" {
		return nil
	}

	lastLegacyYear := s.cfg.CutoffYear - 1
	var records discovery.Catalog
	for year := start.Year; year <= end.Year && year <= lastLegacyYear; year++ {
		path := filepath.Join(s.cfg.SnippetsDir, strings.ToLower(string(category)), fmt.Sprintf("%d.html", year))
		body, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("Snapshot unavailable", zap.String("path", path), zap.Error(err))
			continue
		}
		parsed, err := s.parseSnapshot(category, body)
		if err != nil {
			s.logger.Warn("Snapshot unparseable", zap.String("path", path), zap.Error(err))
			continue
		}
		records = append(records, parsed...)
	}
	// One record per period: snapshots are period-keyed by construction.
	records = inRange(records, start, end).DedupeByPeriod()
	records.Sort()
	return records
}

// parseSnapshot extracts price-table links from a static snapshot. The
// snapshot files are already segmented by category, so only the period needs
// extracting; anchors are typically a bare "XLS" with the month reference in
// the surrounding paragraph.
func (s *Source) parseSnapshot(category discovery.Category, body []byte) (discovery.Catalog, error) {
	triples, err := discovery.ExtractTriples("https://www.gov.br/", body)
	if err != nil {
		return nil, err
	}

	var records discovery.Catalog
	for _, triple := range triples {
		if record, ok, _ := s.matcher.Classify(triple.URL, triple.Anchor, triple.Context); ok {
			// The snapshot's segmentation is authoritative over whatever
			// category the matcher inferred from link text.
			record.Category = category
			record.MonthName = discovery.MonthName(record.Month)
			records = append(records, record)
			continue
		}
		record, ok := s.classifyUncategorized(category, triple)
		if ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// classifyUncategorized recovers snapshot links whose text carries a period
// but no category keyword at all.
func (s *Source) classifyUncategorized(category discovery.Category, triple discovery.LinkTriple) (discovery.LinkRecord, bool) {
	urlLower := strings.ToLower(triple.URL)
	if strings.Contains(urlLower, "_reso_") || strings.Contains(urlLower, "resolucao") {
		return discovery.LinkRecord{}, false
	}
	if !strings.Contains(urlLower, ".xls") &&
		!strings.Contains(strings.ToUpper(triple.Anchor), "XLS") {
		return discovery.LinkRecord{}, false
	}
	period, ok := s.matcher.ExtractPeriod(triple.URL, triple.Anchor+" "+triple.Context)
	if !ok {
		return discovery.LinkRecord{}, false
	}
	return discovery.LinkRecord{
		Category:    category,
		Year:        period.Year,
		Month:       period.Month,
		MonthName:   discovery.MonthName(period.Month),
		URL:         triple.URL,
		CollectedAt: s.clock.Now(),
	}, true
}

func (s *Source) currentPeriod() discovery.Period {
	now := s.clock.Now()
	return discovery.Period{Year: now.Year(), Month: int(now.Month())}
}

func inRange(catalog discovery.Catalog, start, end discovery.Period) discovery.Catalog {
	out := make(discovery.Catalog, 0, len(catalog))
	for _, rec := range catalog {
		p := rec.Period()
		if p.Before(start) || p.After(end) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
