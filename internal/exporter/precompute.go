package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"plstats/internal/cohort"
	"plstats/internal/stats"
	"plstats/pkg/contracts/domain"
)

// Exporter writes refresh artifacts under an output directory.
type Exporter struct {
	outputDir string
	engine    *stats.Engine
	logger    *slog.Logger
}

// New creates an Exporter. The logger must not be nil.
func New(outputDir string, engine *stats.Engine, logger *slog.Logger) *Exporter {
	return &Exporter{
		outputDir: outputDir,
		engine:    engine,
		logger:    logger.With(slog.String("component", "exporter")),
	}
}

// PrecomputedEntry is one cohort's percentile curves in percentiles.json.
type PrecomputedEntry struct {
	Percentiles domain.PercentileCurves `json:"percentiles"`
	SampleSize  int                     `json:"sample_size"`
}

// CohortKey builds the percentiles.json key for one cohort combination.
func CohortKey(sex, equipment, weightClass, ageDiv, tested string) string {
	return strings.Join([]string{sex, equipment, weightClass, ageDiv, tested}, "_")
}

// WritePercentiles precomputes percentile curves for every cohort
// combination present in the snapshot and writes them to percentiles.json.
// Combinations below the minimum sample size are omitted rather than
// written empty.
func (e *Exporter) WritePercentiles(ctx context.Context, snap *cohort.Snapshot) error {
	start := time.Now()
	md := snap.Metadata()

	entries := make(map[string]PrecomputedEntry)
	for _, sex := range []string{string(domain.SexMale), string(domain.SexFemale)} {
		for _, equipment := range md.EquipmentTypes {
			for _, weightClass := range md.WeightClasses[sex] {
				for _, ageDiv := range md.AgeDivisions {
					for _, tested := range md.TestedStatuses {
						if err := ctx.Err(); err != nil {
							return err
						}

						filters := domain.FilterSet{
							Sex: sex, Equipment: equipment, WeightClass: weightClass,
							AgeDiv: ageDiv, Tested: tested,
						}
						rows := snap.Select(filters)
						curves, sampleSize, err := e.engine.Percentiles(rows)
						if err != nil {
							// Below the sample floor; skip the combination.
							continue
						}
						entries[CohortKey(sex, equipment, weightClass, ageDiv, tested)] = PrecomputedEntry{
							Percentiles: curves,
							SampleSize:  sampleSize,
						}
					}
				}
			}
		}
	}

	path := filepath.Join(e.outputDir, "percentiles.json")
	if err := e.writeJSON(path, entries); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "percentiles exported",
		slog.String("path", path),
		slog.Int("cohorts", len(entries)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// WriteMetadata writes the snapshot metadata to metadata.json.
func (e *Exporter) WriteMetadata(ctx context.Context, snap *cohort.Snapshot) error {
	path := filepath.Join(e.outputDir, "metadata.json")
	if err := e.writeJSON(path, snap.Metadata()); err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "metadata exported", slog.String("path", path))
	return nil
}

// writeJSON marshals v and atomically replaces path with it.
func (e *Exporter) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
