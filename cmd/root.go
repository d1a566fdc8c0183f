// Package cmd defines the game-catalog command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/game-catalog/internal/app"
	"github.com/JakeFAU/game-catalog/internal/catalog"
	"github.com/JakeFAU/game-catalog/internal/config"
	"github.com/JakeFAU/game-catalog/internal/logging"
	"github.com/JakeFAU/game-catalog/internal/netdiag"
)

// envKeyType is the key for storing the loaded environment in the context.
type envKeyType string

const envKey envKeyType = "env"

// env is what every subcommand gets after the root pre-run hook.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// App is the part of the application the commands drive. Tests swap in a fake.
type App interface {
	Serve(ctx context.Context) error
	Scrape(ctx context.Context) (catalog.PipelineResult, error)
	Close()
}

// DNSChecker runs resolver diagnostics.
type DNSChecker interface {
	ResolveDebug(ctx context.Context, host string) netdiag.Report
}

// newApp is the application factory.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	return app.Build(ctx, cfg, logger)
}

// newResolver builds the dns-check resolver without the rest of the app.
var newResolver = func(cfg config.Config, logger *zap.Logger) DNSChecker {
	return netdiag.New(netdiag.Config{Nameservers: cfg.Scraper.SmartDNS}, logger)
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "game-catalog",
		Short: "Scrapes a game storefront and keeps a relational catalog in sync.",
		Long: `game-catalog fetches the storefront browse page, enriches each listed game
from its detail page and upserts the results by slug. It also serves the
catalog over HTTP and runs scrapes in the background on request.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, &env{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKey).(*env); ok {
				_ = e.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); CATALOG_* env vars override it")

	cmd.AddCommand(newServeCmd(), newScrapeCmd(), newDNSCheckCmd())
	return cmd
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not loaded")
	}
	return e, nil
}

// Execute runs the root command with SIGINT/SIGTERM cancellation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
