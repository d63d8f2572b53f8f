// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lucianohb/cmed-crawler/internal/clock/system"
	"github.com/lucianohb/cmed-crawler/internal/discovery"
	"github.com/lucianohb/cmed-crawler/internal/downloader"
	"github.com/lucianohb/cmed-crawler/internal/hybrid"
	"github.com/lucianohb/cmed-crawler/internal/ledger"
	"github.com/lucianohb/cmed-crawler/internal/logging"
)

// App holds the shared, long-lived services for the application: the
// discovery engine with its ledger, the hybrid source, and the download
// pipeline. It is initialized once at startup and injected into the CLI
// commands.
type App struct {
	logger     *zap.Logger
	engine     *discovery.Engine
	source     *hybrid.Source
	downloader *downloader.FileDownloader
	store      *ledger.Ledger
	metricsSrv *http.Server
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetEngine returns the discovery engine.
func (a *App) GetEngine() *discovery.Engine {
	return a.engine
}

// GetSource returns the hybrid link source.
func (a *App) GetSource() *hybrid.Source {
	return a.source
}

// GetDownloader returns the file download pipeline.
func (a *App) GetDownloader() *downloader.FileDownloader {
	return a.downloader
}

// GetLedger returns the known-links ledger.
func (a *App) GetLedger() *ledger.Ledger {
	return a.store
}

// NewApp creates and initializes a new App from the Viper configuration.
// It is the central point for service initialization and fails fast if any
// critical service cannot be built.
func NewApp(_ context.Context) (*App, error) {
	l := logging.L
	l.Info("Initializing application services...")

	cfg, err := discovery.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load discovery config: %w", err)
	}
	hybridCfg := hybrid.Config{
		CutoffYear:  viper.GetInt("hybrid.cutoff_year"),
		SnippetsDir: viper.GetString("hybrid.snippets_dir"),
	}
	if err := hybridCfg.Validate(); err != nil {
		return nil, fmt.Errorf("load hybrid config: %w", err)
	}

	clk := system.New()
	matcher := discovery.NewMatcher(cfg.CategoryPatterns, clk)

	store, err := ledger.Open(cfg.CacheDir, l)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	fetcher, err := discovery.NewCollyFetcher(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	engine := discovery.NewEngine(cfg, fetcher, matcher, store, clk, l)
	source := hybrid.New(hybridCfg, engine, matcher, clk, l)

	dl, err := downloader.New(fetcher, viper.GetString("download.output_dir"), l)
	if err != nil {
		return nil, fmt.Errorf("init downloader: %w", err)
	}

	a := &App{
		logger:     l,
		engine:     engine,
		source:     source,
		downloader: dl,
		store:      store,
	}

	if viper.GetBool("metrics.enabled") {
		a.metricsSrv = startMetricsServer(viper.GetString("metrics.listen_addr"), l)
	}

	l.Info("Application services initialized successfully.")
	return a, nil
}

func startMetricsServer(addr string, l *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Info("Starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("Error shutting down metrics server", zap.Error(err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		// Best effort: logging itself might be failing.
		a.logger.Warn("Error syncing logger on shutdown", zap.Error(err))
	}
}
