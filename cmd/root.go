// Package cmd defines and implements the CLI commands for the cmed-crawler executable.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lucianohb/cmed-crawler/internal/app"
	"github.com/lucianohb/cmed-crawler/internal/discovery"
	"github.com/lucianohb/cmed-crawler/internal/downloader"
	"github.com/lucianohb/cmed-crawler/internal/hybrid"
	"github.com/lucianohb/cmed-crawler/internal/ledger"
	"github.com/lucianohb/cmed-crawler/internal/logging"
	"github.com/lucianohb/cmed-crawler/pkg/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands will use.
// This allows us to inject a mock app during tests.
type App interface {
	Close()
	GetLogger() *zap.Logger
	GetEngine() *discovery.Engine
	GetSource() *hybrid.Source
	GetDownloader() *downloader.FileDownloader
	GetLedger() *ledger.Ledger
}

// newApp is the application factory. It's a variable so we can
// replace it with a mock factory in our tests.
var newApp func(ctx context.Context) (App, error) = func(ctx context.Context) (App, error) {
	return app.NewApp(ctx)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cmed-crawler",
		Short: "Tracks CMED drug price table publications on the ANVISA site.",
		Long: `cmed-crawler discovers the price table files published on the ANVISA/CMED
historical prices page, keeps a durable ledger of every file it has seen,
and reports which monthly periods are new or missing. Downstream pipelines
consume its catalog to download and process the spreadsheets.`,

		// This hook runs AFTER config is loaded but BEFORE the subcommand's
		// RunE. The application container is built here and injected.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		// This hook ensures services are shut down gracefully.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	// Initialize Viper configuration.
	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cmed-crawler/config.yaml)")

	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newGapsCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newDownloadCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger()

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}
