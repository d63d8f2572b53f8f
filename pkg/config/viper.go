// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lucianohb/cmed-crawler/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. Designed to be called once at
// application startup.
func InitConfig() {
	// --- Set Search Paths ---
	viper.SetConfigName("config")
	viper.AddConfigPath(".")                   // Current working directory
	viper.AddConfigPath("/etc/cmed-crawler/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.cmed-crawler") // User-specific configuration

	// --- Set Defaults ---
	viper.SetDefault("discovery.base_url",
		"https://www.gov.br/anvisa/pt-br/assuntos/medicamentos/cmed/precos/anos-anteriores/anos-anteriores")
	viper.SetDefault("discovery.cache_dir", "data/cache/scraper")
	viper.SetDefault("discovery.user_agent",
		"cmed-crawler/1.0 (+https://github.com/lucianohb/cmed-crawler)")
	viper.SetDefault("discovery.request_timeout", "30s")

	// The pattern tables drive classification; order is precedence. The
	// defaults mirror discovery.DefaultCategoryPatterns and exist here so
	// operators can extend them from the config file when the site drifts.
	viper.SetDefault("discovery.categories", []string{"PMC", "PMVG", "PF"})
	viper.SetDefault("discovery.category_patterns", map[string][]string{
		"pmc": {
			"preco maximo ao consumidor",
			"pmc",
			"preco maximo",
			"xls_conformidade_site",
		},
		"pmvg": {
			"compras publicas",
			"pmvg",
			"governo",
			"xls_conformidade_gov",
		},
		"pf": {
			"preco fabrica",
			"pf",
		},
	})

	viper.SetDefault("hybrid.cutoff_year", 2025)
	viper.SetDefault("hybrid.snippets_dir", "tools/snippets")

	viper.SetDefault("download.output_dir", "data/raw")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen_addr", ":9090")

	// --- Environment Variables ---
	viper.SetEnvPrefix("CMED") // e.g., CMED_DISCOVERY_REQUEST_TIMEOUT=60s
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// --- Read Config File ---
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.L.Warn("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
