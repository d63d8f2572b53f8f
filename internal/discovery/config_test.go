package discovery

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseViper() *viper.Viper {
	v := viper.New()
	v.Set("discovery.base_url", "https://www.gov.br/anvisa/precos")
	v.Set("discovery.cache_dir", "data/cache/scraper")
	v.Set("discovery.user_agent", "cmed-crawler/1.0")
	v.Set("discovery.request_timeout", "30s")
	return v
}

func TestLoadConfig(t *testing.T) {
	t.Run("DefaultsToBuiltinPatternTable", func(t *testing.T) {
		cfg, err := LoadConfig(baseViper())
		require.NoError(t, err)
		assert.Equal(t, "https://www.gov.br/anvisa/precos", cfg.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
		assert.Equal(t, DefaultCategoryPatterns(), cfg.CategoryPatterns)
	})

	t.Run("PatternTableFromConfig", func(t *testing.T) {
		v := baseViper()
		v.Set("discovery.categories", []string{"pmvg", "pmc"})
		v.Set("discovery.category_patterns", map[string][]string{
			"pmc":  {"preco maximo"},
			"pmvg": {"governo"},
		})

		cfg, err := LoadConfig(v)
		require.NoError(t, err)
		require.Len(t, cfg.CategoryPatterns, 2)
		// The ordered list, not the map, fixes precedence.
		assert.Equal(t, CategoryPMVG, cfg.CategoryPatterns[0].Category)
		assert.Equal(t, []string{"governo"}, cfg.CategoryPatterns[0].Patterns)
		assert.Equal(t, CategoryPMC, cfg.CategoryPatterns[1].Category)
	})

	t.Run("MissingBaseURL", func(t *testing.T) {
		v := baseViper()
		v.Set("discovery.base_url", "  ")
		_, err := LoadConfig(v)
		assert.ErrorContains(t, err, "base_url")
	})

	t.Run("ZeroTimeout", func(t *testing.T) {
		v := baseViper()
		v.Set("discovery.request_timeout", "0s")
		_, err := LoadConfig(v)
		assert.ErrorContains(t, err, "request_timeout")
	})

	t.Run("CategoryWithoutPatterns", func(t *testing.T) {
		v := baseViper()
		v.Set("discovery.categories", []string{"pmc", "pf"})
		v.Set("discovery.category_patterns", map[string][]string{
			"pmc": {"preco maximo"},
		})
		_, err := LoadConfig(v)
		assert.ErrorContains(t, err, "category PF has no patterns")
	})
}
