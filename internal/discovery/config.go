package discovery

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every configuration knob that influences discovery. All
// values originate from Viper so the engine can be configured via files,
// env vars, or CLI flags.
type Config struct {
	BaseURL          string
	CacheDir         string
	UserAgent        string
	RequestTimeout   time.Duration
	CategoryPatterns []CategoryPattern
}

// LoadConfig constructs a Config by reading from Viper.
//
// The pattern table is rebuilt from two keys: discovery.categories, an
// ordered list of category names, and discovery.category_patterns, a map of
// category name to its ordered pattern list. Viper maps are unordered, so
// the explicit list is what fixes category precedence.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		BaseURL:          v.GetString("discovery.base_url"),
		CacheDir:         v.GetString("discovery.cache_dir"),
		UserAgent:        v.GetString("discovery.user_agent"),
		RequestTimeout:   v.GetDuration("discovery.request_timeout"),
		CategoryPatterns: loadCategoryPatterns(v),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("discovery.base_url must be set")
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		return fmt.Errorf("discovery.cache_dir must be set")
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("discovery.user_agent must be set")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("discovery.request_timeout must be > 0")
	}
	for _, entry := range c.CategoryPatterns {
		if entry.Category == "" {
			return fmt.Errorf("discovery.categories must not contain empty names")
		}
		if len(entry.Patterns) == 0 {
			return fmt.Errorf("category %s has no patterns", entry.Category)
		}
	}
	return nil
}

func loadCategoryPatterns(v *viper.Viper) []CategoryPattern {
	order := v.GetStringSlice("discovery.categories")
	patterns := v.GetStringMapStringSlice("discovery.category_patterns")
	if len(order) == 0 || len(patterns) == 0 {
		return DefaultCategoryPatterns()
	}
	table := make([]CategoryPattern, 0, len(order))
	for _, name := range order {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		table = append(table, CategoryPattern{
			Category: Category(strings.ToUpper(name)),
			Patterns: patterns[strings.ToLower(name)],
		})
	}
	return table
}
