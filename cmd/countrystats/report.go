package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scholargraph/countrystats/internal/charts"
	"github.com/scholargraph/countrystats/internal/config"
	"github.com/scholargraph/countrystats/internal/observability"
	"github.com/scholargraph/countrystats/internal/openalex"
	"github.com/scholargraph/countrystats/internal/report"
	"github.com/scholargraph/countrystats/internal/store"
)

// reportFlags are command line overrides applied on top of the loaded
// configuration.
type reportFlags struct {
	country   string
	yearFrom  int
	yearTo    int
	email     string
	dataDir   string
	chartsDir string
}

func newReportCmd() *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the report pipeline",
		Long: `Run the full report pipeline: fetch national totals, open access
statistics, knowledge field breakdowns, top authors, top institutions,
and international collaboration, then assemble a summary. Each step
writes a JSON document; most also render PNG charts. A failed step is
logged and skipped so the remaining steps still run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.country, "country", "", "ISO 3166-1 alpha-2 country code (default from config)")
	cmd.Flags().IntVar(&flags.yearFrom, "year-from", 0, "first publication year of the window")
	cmd.Flags().IntVar(&flags.yearTo, "year-to", 0, "last publication year of the window")
	cmd.Flags().StringVar(&flags.email, "email", "", "contact email for the OpenAlex polite pool")
	cmd.Flags().StringVar(&flags.dataDir, "data-dir", "", "directory for JSON documents")
	cmd.Flags().StringVar(&flags.chartsDir, "charts-dir", "", "directory for PNG charts")

	return cmd
}

func runReport(cmd *cobra.Command, flags reportFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Output.DataDir)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	renderer, err := charts.NewRenderer(cfg.Output.ChartsDir)
	if err != nil {
		return fmt.Errorf("init chart renderer: %w", err)
	}

	client := openalex.New(openalex.Config{
		BaseURL:   cfg.OpenAlex.BaseURL,
		Email:     cfg.OpenAlex.Email,
		Timeout:   cfg.OpenAlex.Timeout,
		RateLimit: cfg.OpenAlex.RateLimit,
		BurstSize: cfg.OpenAlex.BurstSize,
	})

	metrics := observability.NewMetrics("countrystats")

	gen := report.New(report.Params{
		Config:  cfg.Report,
		Client:  client,
		Store:   st,
		Charts:  renderer,
		Metrics: metrics,
		Logger:  logger,
	})

	runErr := gen.Run(ctx)

	if cfg.Metrics.Enabled {
		if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn().Err(err).Str("path", cfg.Metrics.TextfilePath).Msg("failed to write metrics textfile")
		}
	}

	if runErr != nil {
		return fmt.Errorf("report run: %w", runErr)
	}
	return nil
}

// applyFlags overrides loaded configuration with any flags that were set.
func applyFlags(cfg *config.Config, flags reportFlags) {
	if flags.country != "" {
		cfg.Report.CountryCode = strings.ToUpper(flags.country)
	}
	if flags.yearFrom != 0 {
		cfg.Report.YearFrom = flags.yearFrom
	}
	if flags.yearTo != 0 {
		cfg.Report.YearTo = flags.yearTo
	}
	if flags.email != "" {
		cfg.OpenAlex.Email = flags.email
	}
	if flags.dataDir != "" {
		cfg.Output.DataDir = flags.dataDir
	}
	if flags.chartsDir != "" {
		cfg.Output.ChartsDir = flags.chartsDir
	}
}
