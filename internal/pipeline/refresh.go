// Package pipeline orchestrates a dataset refresh: clean the source CSV,
// persist the canonical records, publish the new snapshot and write the
// export artifacts. A refresh that fails leaves the previous snapshot and
// database untouched.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"plstats/internal/cleaning"
	"plstats/internal/cohort"
	"plstats/internal/exporter"
	"plstats/internal/infrastructure"
	"plstats/internal/store"
)

// Refresher runs dataset refreshes.
type Refresher struct {
	cleaner  *cleaning.Cleaner
	writer   *store.Writer
	holder   *cohort.Holder
	exporter *exporter.Exporter
	dbPath   string
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
	workbook bool
}

// NewRefresher creates a Refresher. The logger must not be nil.
func NewRefresher(cleaner *cleaning.Cleaner, writer *store.Writer, holder *cohort.Holder, exp *exporter.Exporter, dbPath string, logger *slog.Logger) *Refresher {
	return &Refresher{
		cleaner:  cleaner,
		writer:   writer,
		holder:   holder,
		exporter: exp,
		dbPath:   dbPath,
		logger:   logger.With(slog.String("component", "refresher")),
		workbook: true,
	}
}

// SetWorkbook controls whether the refresh writes the summary workbook.
// Enabled by default.
func (r *Refresher) SetWorkbook(enabled bool) {
	r.workbook = enabled
}

// SetMetrics enables refresh metrics recording. A nil receiver value stays
// silent, so the CLI can run without telemetry.
func (r *Refresher) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	r.metrics = metrics
}

// Result summarizes one refresh run.
type Result struct {
	BuildID  string           `json:"build_id"`
	Cleaning cleaning.Summary `json:"cleaning"`
	Records  int              `json:"records"`
	Duration time.Duration    `json:"duration"`
}

// Run performs one refresh from src. The new snapshot is published only
// after the records are cleaned and persisted; export artifacts are written
// afterwards, in parallel.
func (r *Refresher) Run(ctx context.Context, src cleaning.Source) (*Result, error) {
	start := time.Now()
	buildID := uuid.New().String()
	logger := r.logger.With(slog.String("build_id", buildID))

	logger.InfoContext(ctx, "refresh started")

	records, summary, err := r.cleaner.Run(ctx, src)
	if err != nil {
		logger.ErrorContext(ctx, "refresh failed during cleaning", slog.String("error", err.Error()))
		return nil, err
	}

	if err := r.writer.Write(ctx, r.dbPath, records); err != nil {
		logger.ErrorContext(ctx, "refresh failed during persist", slog.String("error", err.Error()))
		return nil, err
	}

	snap := cohort.NewSnapshot(records)
	r.holder.Publish(snap)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.exporter.WritePercentiles(gctx, snap) })
	g.Go(func() error { return r.exporter.WriteMetadata(gctx, snap) })
	if r.workbook {
		g.Go(func() error { return r.exporter.WriteWorkbook(gctx, snap) })
	}
	if err := g.Wait(); err != nil {
		// The snapshot is already live; stale artifacts are reported, not
		// rolled back.
		logger.ErrorContext(ctx, "refresh export failed", slog.String("error", err.Error()))
		return nil, err
	}

	result := &Result{
		BuildID:  buildID,
		Cleaning: summary,
		Records:  len(records),
		Duration: time.Since(start),
	}
	if r.metrics != nil {
		r.metrics.RefreshesTotal.Add(ctx, 1)
		r.metrics.RefreshDuration.Record(ctx, result.Duration.Seconds())
		r.metrics.SnapshotRecords.Add(ctx, int64(result.Records))
	}
	logger.InfoContext(ctx, "refresh complete",
		slog.Int("records", result.Records),
		slog.Duration("duration", result.Duration))
	return result, nil
}
