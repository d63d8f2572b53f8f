package discovery

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFetcherConfig(t *testing.T, baseURL string) Config {
	t.Helper()
	return Config{
		BaseURL:        baseURL,
		CacheDir:       t.TempDir(),
		UserAgent:      "cmed-crawler-test/1.0",
		RequestTimeout: 5 * time.Second,
	}
}

func TestCollyFetcherFetch(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "cmed-crawler-test/1.0", r.UserAgent())
			_, _ = w.Write([]byte("<html><body>precos</body></html>"))
		}))
		defer srv.Close()

		fetcher, err := NewCollyFetcher(newFetcherConfig(t, srv.URL), zap.NewNop())
		require.NoError(t, err)

		body, err := fetcher.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, []byte("<html><body>precos</body></html>"), body)
	})

	t.Run("RevisitAllowed", func(t *testing.T) {
		hits := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits++
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		fetcher, err := NewCollyFetcher(newFetcherConfig(t, srv.URL), zap.NewNop())
		require.NoError(t, err)

		// The index page is fetched once per run, so the same URL must be
		// fetchable repeatedly by the same fetcher.
		_, err = fetcher.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		_, err = fetcher.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, 2, hits)
	})

	t.Run("NotFound", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nada aqui", http.StatusNotFound)
		}))
		defer srv.Close()

		fetcher, err := NewCollyFetcher(newFetcherConfig(t, srv.URL), zap.NewNop())
		require.NoError(t, err)

		_, err = fetcher.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
		var fe *FetchError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, http.StatusNotFound, fe.StatusCode)
		assert.Equal(t, srv.URL, fe.URL)
	})

	t.Run("UnreachableHost", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))
		url := srv.URL
		srv.Close()

		fetcher, err := NewCollyFetcher(newFetcherConfig(t, url), zap.NewNop())
		require.NoError(t, err)

		_, err = fetcher.Fetch(context.Background(), url)
		require.Error(t, err)
		var fe *FetchError
		assert.True(t, errors.As(err, &fe))
	})

	t.Run("MalformedURL", func(t *testing.T) {
		fetcher, err := NewCollyFetcher(newFetcherConfig(t, "https://www.gov.br/"), zap.NewNop())
		require.NoError(t, err)

		_, err = fetcher.Fetch(context.Background(), "://bad")
		require.Error(t, err)
		var fe *FetchError
		assert.True(t, errors.As(err, &fe))
	})
}
