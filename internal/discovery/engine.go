// Package discovery implements the incremental discovery engine for the
// CMED price table listings: one fetch of the index page, ordered heuristic
// classification of every hyperlink, and diffing against the first-seen
// ledger.
package discovery

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine orchestrates one discovery run: fetch, extract, classify, diff.
// It owns the ledger for its lifetime; concurrent invocations against the
// same persisted ledger file are unsupported.
type Engine struct {
	cfg     Config
	fetcher Fetcher
	matcher *Matcher
	store   LinkStore
	clock   Clock
	logger  *zap.Logger
}

// NewEngine wires a discovery engine from its collaborators.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	matcher *Matcher,
	store LinkStore,
	clock Clock,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:     cfg,
		fetcher: fetcher,
		matcher: matcher,
		store:   store,
		clock:   clock,
		logger:  logger,
	}
}

// Store exposes the engine's ledger for audit paths.
func (e *Engine) Store() LinkStore {
	return e.store
}

// ScrapeAvailableFiles fetches the index page and returns the catalog of
// classified price-table links, optionally filtered to one category. The
// only fatal condition is the fetch itself; a page with unexpected markup
// degrades to an empty catalog with a warning.
func (e *Engine) ScrapeAvailableFiles(ctx context.Context, categoryFilter Category) (Catalog, error) {
	runID := uuid.NewString()
	log := e.logger.With(zap.String("run_id", runID), zap.String("url", e.cfg.BaseURL))
	log.Info("Starting discovery run")

	TotalFetches.Inc()
	body, err := e.fetcher.Fetch(ctx, e.cfg.BaseURL)
	if err != nil {
		TotalFetchErrors.Inc()
		return nil, fmt.Errorf("scrape index page: %w", err)
	}

	triples, err := ExtractTriples(e.cfg.BaseURL, body)
	if err != nil {
		log.Warn("Index page markup unparseable; returning empty catalog", zap.Error(err))
		return Catalog{}, nil
	}
	if len(triples) == 0 {
		log.Warn("Index page contained no hyperlinks; returning empty catalog")
		return Catalog{}, nil
	}

	byURL := make(map[string]LinkRecord, len(triples))
	drops := map[string]int{}
	for _, triple := range triples {
		TotalLinksSeen.Inc()
		record, ok, reason := e.matcher.Classify(triple.URL, triple.Anchor, triple.Context)
		if !ok {
			TotalLinksDropped.WithLabelValues(reason).Inc()
			drops[reason]++
			if reason != DropIrrelevant {
				log.Debug("Link dropped",
					zap.String("reason", reason),
					zap.String("link", triple.URL),
					zap.String("anchor", triple.Anchor),
				)
			}
			continue
		}
		TotalLinksMatched.Inc()
		// In-run duplicates collapse by URL, last seen wins. This is a
		// pure in-memory rule, distinct from the ledger's first-seen rule.
		byURL[record.URL] = record
	}

	catalog := make(Catalog, 0, len(byURL))
	for _, record := range byURL {
		catalog = append(catalog, record)
	}
	catalog = catalog.FilterCategory(categoryFilter)
	catalog.Sort()

	log.Info("Discovery run finished",
		zap.Int("links_seen", len(triples)),
		zap.Int("records", len(catalog)),
		zap.Int("dropped_irrelevant", drops[DropIrrelevant]),
		zap.Int("dropped_no_category", drops[DropNoCategory]),
		zap.Int("dropped_no_date", drops[DropNoDate]),
	)
	return catalog, nil
}

// NewFilesSinceLastRun runs discovery, merges the catalog into the ledger,
// and returns exactly the records whose URLs were not known before. The
// ledger is saved before returning so the next invocation, even after a
// process restart, sees this run's state.
func (e *Engine) NewFilesSinceLastRun(ctx context.Context, category Category) (Catalog, error) {
	catalog, err := e.ScrapeAvailableFiles(ctx, category)
	if err != nil {
		return nil, err
	}

	added := e.store.Merge(catalog, e.clock.Now())
	TotalNewLinks.Add(float64(len(added)))

	if err := e.store.Save(); err != nil {
		// Durability is best-effort: the next run simply re-detects.
		e.logger.Warn("Failed to save ledger", zap.Error(err))
	}

	addedSet := make(map[string]struct{}, len(added))
	for _, u := range added {
		addedSet[u] = struct{}{}
	}
	fresh := make(Catalog, 0, len(added))
	for _, record := range catalog {
		if _, ok := addedSet[record.URL]; ok {
			fresh = append(fresh, record)
		}
	}

	if len(fresh) > 0 {
		e.logger.Info("New files discovered",
			zap.String("category", string(category)),
			zap.Int("count", len(fresh)),
		)
	} else {
		e.logger.Info("No new files since last run", zap.String("category", string(category)))
	}
	return fresh, nil
}

// FindMissingPeriods returns, in chronological order, the (year, month)
// pairs between start and end for which the ledger holds no file of the
// given category. A nil end defaults to the current calendar period. A
// start after end yields an empty sequence.
func (e *Engine) FindMissingPeriods(category Category, start Period, end *Period) []Period {
	resolved := e.resolveEnd(end)
	if start.After(resolved) {
		return nil
	}
	expected := PeriodRange(start, resolved)
	observed := e.store.PeriodsFor(category)
	missing := MissingPeriods(expected, observed)

	if len(missing) > 0 {
		e.logger.Warn("Missing periods detected",
			zap.String("category", string(category)),
			zap.Int("count", len(missing)),
			zap.String("first", missing[0].String()),
		)
	}
	return missing
}

// GapReport computes coverage of the ledger against [start, end] for one
// category.
func (e *Engine) GapReport(category Category, start Period, end *Period) GapReport {
	return BuildGapReport(category, start, e.resolveEnd(end), e.store.PeriodsFor(category))
}

// ExportCatalog writes the full ledger, not just the current run, as a
// semicolon-delimited table and returns the number of record rows. Audit
// path, not the hot path.
func (e *Engine) ExportCatalog(w io.Writer) (int, error) {
	records := e.store.Records()

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write([]string{"year", "month", "month_name", "category", "url", "collected_at"}); err != nil {
		return 0, fmt.Errorf("write catalog header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			strconv.Itoa(rec.Year),
			strconv.Itoa(rec.Month),
			rec.MonthName,
			string(rec.Category),
			rec.URL,
			rec.CollectedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write catalog row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush catalog: %w", err)
	}
	return len(records), nil
}

// ExportCatalogFile is the file-path convenience around ExportCatalog.
func (e *Engine) ExportCatalogFile(path string) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("Failed to close export file", zap.Error(cerr))
		}
	}()
	count, err := e.ExportCatalog(f)
	if err != nil {
		return 0, err
	}
	e.logger.Info("Catalog exported", zap.String("path", path), zap.Int("records", count))
	return count, nil
}

func (e *Engine) resolveEnd(end *Period) Period {
	if end != nil {
		return *end
	}
	now := e.clock.Now()
	return Period{Year: now.Year(), Month: int(now.Month())}
}
