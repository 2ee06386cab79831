// Command processor runs a dataset refresh from the command line: clean
// the source CSV, rebuild the SQLite database and write the export
// artifacts. The server picks the database up on its next start.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"plstats/internal/classify"
	"plstats/internal/cleaning"
	"plstats/internal/cohort"
	"plstats/internal/config"
	"plstats/internal/exporter"
	"plstats/internal/infrastructure"
	"plstats/internal/pipeline"
	"plstats/internal/stats"
	"plstats/internal/store"
)

func main() {
	csvPath := flag.String("csv", "", "source CSV path (overrides configuration)")
	dbPath := flag.String("db", "", "output database path (overrides configuration)")
	outDir := flag.String("out", "", "artifact output directory (overrides configuration)")
	xlsx := flag.Bool("xlsx", true, "write the summary workbook")
	flag.Parse()

	if err := run(*csvPath, *dbPath, *outDir, *xlsx); err != nil {
		slog.Error("refresh failed", "error", err)
		os.Exit(1)
	}
}

func run(csvPath, dbPath, outDir string, xlsx bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if csvPath == "" {
		csvPath = cfg.Paths.CSVFile
	}
	if dbPath == "" {
		dbPath = cfg.Paths.Database
	}
	if outDir == "" {
		outDir = cfg.Paths.OutputDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	if providers != nil {
		defer providers.Shutdown(context.Background())
	}

	tables, err := classify.NewTables(cfg.Classification)
	if err != nil {
		return fmt.Errorf("build classification tables: %w", err)
	}

	src, err := cleaning.OpenCSV(csvPath)
	if err != nil {
		return err
	}
	defer src.Close()

	refresher := pipeline.NewRefresher(
		cleaning.NewCleaner(cfg.Cleaning, tables, logger),
		store.NewWriter(logger),
		cohort.NewHolder(logger),
		exporter.New(outDir, stats.NewEngine(cfg.Query.MinSampleSize), logger),
		dbPath,
		logger,
	)

	refresher.SetWorkbook(xlsx)

	if providers != nil && providers.Meter != nil {
		metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
		if err != nil {
			return fmt.Errorf("create metrics: %w", err)
		}
		refresher.SetMetrics(metrics)
	}

	result, err := refresher.Run(ctx, src)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "refresh finished",
		slog.String("build_id", result.BuildID),
		slog.Int("input", result.Cleaning.Input),
		slog.Int("kept", result.Records),
		slog.Float64("retention", result.Cleaning.Retention),
		slog.Duration("duration", result.Duration))
	return nil
}
