// Package discovery_test exercises the engine against the real ledger.
package discovery_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
	"github.com/lucianohb/cmed-crawler/internal/ledger"
)

const enginePage = `<!DOCTYPE html>
<html><body><div id="content-core">
  <h2>Preço Máximo ao Consumidor</h2>
  <p>janeiro/23 <a href="/arquivos/pmc_202301.xlsx">PMC Janeiro/2023</a></p>
  <h3>Compras públicas</h3>
  <p>fevereiro/23 <a href="/arquivos/pmvg_202302.xlsx">PMVG Fevereiro/2023</a></p>
  <p><a href="/faq">Perguntas frequentes</a></p>
</div></body></html>`

type stubFetcher struct {
	body    []byte
	err     error
	fetches int
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.fetches++
	return f.body, f.err
}

type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time {
	return c.now
}

func newTestEngine(t *testing.T, fetcher *stubFetcher) (*discovery.Engine, *ledger.Ledger) {
	t.Helper()
	logger := zap.NewNop()
	clock := stubClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}

	store, err := ledger.Open(t.TempDir(), logger)
	require.NoError(t, err)

	cfg := discovery.Config{
		BaseURL:        "https://www.gov.br/anvisa/precos",
		CacheDir:       t.TempDir(),
		UserAgent:      "test-agent",
		RequestTimeout: 5 * time.Second,
	}
	matcher := discovery.NewMatcher(nil, clock)
	return discovery.NewEngine(cfg, fetcher, matcher, store, clock, logger), store
}

func TestScrapeAvailableFiles(t *testing.T) {
	t.Run("AllCategories", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubFetcher{body: []byte(enginePage)})
		catalog, err := engine.ScrapeAvailableFiles(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, catalog, 2)
		assert.Equal(t, discovery.CategoryPMC, catalog[0].Category)
		assert.Equal(t, discovery.CategoryPMVG, catalog[1].Category)
	})

	t.Run("CategoryFilter", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubFetcher{body: []byte(enginePage)})
		catalog, err := engine.ScrapeAvailableFiles(context.Background(), discovery.CategoryPMC)
		require.NoError(t, err)
		require.Len(t, catalog, 1)
		rec := catalog[0]
		assert.Equal(t, discovery.CategoryPMC, rec.Category)
		assert.Equal(t, 2023, rec.Year)
		assert.Equal(t, 1, rec.Month)
		assert.Equal(t, "https://www.gov.br/arquivos/pmc_202301.xlsx", rec.URL)
	})

	t.Run("DeterministicAcrossCalls", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubFetcher{body: []byte(enginePage)})
		first, err := engine.ScrapeAvailableFiles(context.Background(), "")
		require.NoError(t, err)
		second, err := engine.ScrapeAvailableFiles(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("DuplicateURLsCollapse", func(t *testing.T) {
		page := `<html><body><div id="content-core">
		  <p>janeiro/23 <a href="/pmc_202301.xlsx">PMC Janeiro/2023</a></p>
		  <p>janeiro/23 <a href="/pmc_202301.xlsx">PMC Janeiro/2023 (republicado)</a></p>
		</div></body></html>`
		engine, _ := newTestEngine(t, &stubFetcher{body: []byte(page)})
		catalog, err := engine.ScrapeAvailableFiles(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, catalog, 1)
	})

	t.Run("SamePeriodDistinctURLsPreserved", func(t *testing.T) {
		page := `<html><body><div id="content-core">
		  <p>janeiro/23 <a href="/pmc_202301.xlsx">PMC Janeiro/2023</a></p>
		  <p>janeiro/23 <a href="/pmc_202301_rev2.xlsx">PMC Janeiro/2023 rev2</a></p>
		</div></body></html>`
		engine, _ := newTestEngine(t, &stubFetcher{body: []byte(page)})
		catalog, err := engine.ScrapeAvailableFiles(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, catalog, 2, "period revisions under distinct URLs are distinct records")
	})

	t.Run("FetchErrorIsFatal", func(t *testing.T) {
		fetchErr := &discovery.FetchError{URL: "https://www.gov.br/anvisa/precos", StatusCode: 503}
		engine, _ := newTestEngine(t, &stubFetcher{err: fetchErr})
		_, err := engine.ScrapeAvailableFiles(context.Background(), "")
		require.Error(t, err)
		var fe *discovery.FetchError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("PageWithoutLinksDegradesToEmptyCatalog", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubFetcher{body: []byte("<html><body>manutenção</body></html>")})
		catalog, err := engine.ScrapeAvailableFiles(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, catalog)
	})
}

func TestNewFilesSinceLastRun(t *testing.T) {
	t.Run("FirstRunThenIdempotent", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubFetcher{body: []byte(enginePage)})

		first, err := engine.NewFilesSinceLastRun(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, first, 2, "empty ledger: everything is new")

		second, err := engine.NewFilesSinceLastRun(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, second, "unchanged page: nothing is new")
	})

	t.Run("DetectionSurvivesRestart", func(t *testing.T) {
		logger := zap.NewNop()
		clock := stubClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
		cacheDir := t.TempDir()
		cfg := discovery.Config{
			BaseURL:        "https://www.gov.br/anvisa/precos",
			CacheDir:       cacheDir,
			UserAgent:      "test-agent",
			RequestTimeout: 5 * time.Second,
		}
		matcher := discovery.NewMatcher(nil, clock)

		store, err := ledger.Open(cacheDir, logger)
		require.NoError(t, err)
		engine := discovery.NewEngine(cfg, &stubFetcher{body: []byte(enginePage)}, matcher, store, clock, logger)
		first, err := engine.NewFilesSinceLastRun(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, first, 2)

		// A fresh engine over the same cache dir simulates a process restart.
		store2, err := ledger.Open(cacheDir, logger)
		require.NoError(t, err)
		engine2 := discovery.NewEngine(cfg, &stubFetcher{body: []byte(enginePage)}, matcher, store2, clock, logger)
		second, err := engine2.NewFilesSinceLastRun(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, second)
	})

	t.Run("NewFileAppearsBetweenRuns", func(t *testing.T) {
		fetcher := &stubFetcher{body: []byte(enginePage)}
		engine, _ := newTestEngine(t, fetcher)

		_, err := engine.NewFilesSinceLastRun(context.Background(), "")
		require.NoError(t, err)

		fetcher.body = []byte(strings.Replace(enginePage,
			"</div>",
			`<p>março/23 <a href="/arquivos/pmc_202303.xlsx">PMC Março/2023</a></p></div>`, 1))
		fresh, err := engine.NewFilesSinceLastRun(context.Background(), "")
		require.NoError(t, err)
		require.Len(t, fresh, 1)
		assert.Equal(t, "https://www.gov.br/arquivos/pmc_202303.xlsx", fresh[0].URL)
	})
}

func TestFindMissingPeriods(t *testing.T) {
	seed := func(t *testing.T, store *ledger.Ledger, category discovery.Category, periods []discovery.Period) {
		t.Helper()
		catalog := make(discovery.Catalog, 0, len(periods))
		for _, p := range periods {
			catalog = append(catalog, discovery.LinkRecord{
				Category: category,
				Year:     p.Year,
				Month:    p.Month,
				URL:      "https://www.gov.br/" + string(category) + "_" + p.String(),
			})
		}
		store.Merge(catalog, time.Now())
	}

	t.Run("SingleGap", func(t *testing.T) {
		engine, store := newTestEngine(t, &stubFetcher{})
		var periods []discovery.Period
		for _, p := range discovery.PeriodRange(discovery.Period{Year: 2023, Month: 1}, discovery.Period{Year: 2023, Month: 12}) {
			if p != (discovery.Period{Year: 2023, Month: 3}) {
				periods = append(periods, p)
			}
		}
		seed(t, store, discovery.CategoryPMC, periods)

		end := discovery.Period{Year: 2023, Month: 12}
		missing := engine.FindMissingPeriods(discovery.CategoryPMC, discovery.Period{Year: 2023, Month: 1}, &end)
		assert.Equal(t, []discovery.Period{{Year: 2023, Month: 3}}, missing)
	})

	t.Run("OtherCategoryDoesNotCount", func(t *testing.T) {
		engine, store := newTestEngine(t, &stubFetcher{})
		seed(t, store, discovery.CategoryPMVG, []discovery.Period{{Year: 2023, Month: 1}})

		end := discovery.Period{Year: 2023, Month: 1}
		missing := engine.FindMissingPeriods(discovery.CategoryPMC, discovery.Period{Year: 2023, Month: 1}, &end)
		assert.Len(t, missing, 1)
	})

	t.Run("EndDefaultsToCurrentPeriod", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubFetcher{})
		missing := engine.FindMissingPeriods(discovery.CategoryPMC, discovery.Period{Year: 2025, Month: 1}, nil)
		// Clock is fixed at 2025-03: january through march.
		assert.Len(t, missing, 3)
	})

	t.Run("ReverseRangeIsEmpty", func(t *testing.T) {
		engine, _ := newTestEngine(t, &stubFetcher{})
		end := discovery.Period{Year: 2023, Month: 1}
		missing := engine.FindMissingPeriods(discovery.CategoryPMC, discovery.Period{Year: 2024, Month: 1}, &end)
		assert.Empty(t, missing)
	})
}

func TestExportCatalog(t *testing.T) {
	engine, _ := newTestEngine(t, &stubFetcher{body: []byte(enginePage)})
	_, err := engine.NewFilesSinceLastRun(context.Background(), "")
	require.NoError(t, err)

	var sb strings.Builder
	count, err := engine.ExportCatalog(&sb)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "year;month;month_name;category;url;collected_at", lines[0])
	assert.Contains(t, lines[1], "2023;1;janeiro;PMC;https://www.gov.br/arquivos/pmc_202301.xlsx")
	assert.Contains(t, lines[2], "2023;2;fevereiro;PMVG;https://www.gov.br/arquivos/pmvg_202302.xlsx")
}
