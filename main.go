package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sjsage522/wikicatalog/config"
	"sjsage522/wikicatalog/helpers"
	"sjsage522/wikicatalog/internal"
	"sjsage522/wikicatalog/internal/crawler"
	"sjsage522/wikicatalog/logger"
	"sjsage522/wikicatalog/services/worker"

	apperrors "sjsage522/wikicatalog/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		only      []string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "wikicatalog",
		Short: "wikicatalog builds the discount and vehicle catalogs from the ARZ wiki",
		Long: `wikicatalog walks the wiki's discount table and vehicle listing once and
writes discounts.json and vehicles.json into the output directory.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize logger first
			logger.Init()

			cfg, err := config.LoadConfig()
			if err != nil {
				logger.Default.Error().Err(err).Msg("Failed to load configuration")
				return err
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if err := cfg.Validate(); err != nil {
				logger.Default.Error().Err(err).Msg("Invalid configuration")
				return err
			}

			return run(cmd.Context(), cfg, only)
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, fmt.Sprintf("build only the named catalogs (%s, %s)", crawler.NameDiscounts, crawler.NameVehicles))
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory the catalogs are written to (overrides OUTPUT_DIR)")
	return cmd
}

// run wires the services and builds every selected catalog once
func run(ctx context.Context, cfg *config.Config, only []string) error {
	log := logger.Default

	log.Info().
		Str("environment", cfg.Environment).
		Str("output_dir", cfg.OutputDir).
		Str("cache_backend", cfg.Cache.Backend).
		Msg("Starting catalog run")

	deps, err := internal.NewDependencies(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize services")
		return err
	}
	defer deps.Close()

	crawlers, err := crawler.CreateCrawlers(cfg, deps.Fetcher, only)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create crawlers")
		return err
	}
	log.Info().Int("crawler_count", len(crawlers)).Msg("Created crawlers")

	w := worker.NewWorker(crawlers, deps.Publisher, helpers.NewLogger(cfg.ErrorLogFile))
	if err := w.Run(ctx); err != nil {
		if apperrors.IsTerminal(err) {
			log.Error().Err(err).Msg("Catalog source unreachable, previous output kept")
			return err
		}
		log.Error().Err(err).Msg("Catalog run finished with errors")
		return err
	}

	log.Info().Msg("Catalog run finished")
	return nil
}
