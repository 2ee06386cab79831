package cleaning

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"plstats/internal/classify"
	"plstats/internal/config"
	"plstats/pkg/contracts/domain"
)

// Drop reasons reported in the cleaning summary. Counted per record; a
// record is attributed to the first rule that rejects it.
const (
	DropNoLifts     = "no_lifts"
	DropBodyweight  = "bodyweight_out_of_range"
	DropTotalTooLow = "total_too_low"
	DropInvalidSex  = "invalid_sex"
	DropEquipment   = "unknown_equipment"
	DropUnparseable = "unparseable_fields"
)

// Summary reports what a cleaning run did with its input.
type Summary struct {
	Input     int            `json:"input"`
	Kept      int            `json:"kept"`
	Dropped   map[string]int `json:"dropped"`
	Retention float64        `json:"retention"`
}

// Cleaner converts raw records into canonical ones, applying the drop
// rules and default fills in order.
type Cleaner struct {
	cfg    config.CleaningConfig
	tables *classify.Tables
	logger *slog.Logger
}

// NewCleaner creates a Cleaner. The logger must not be nil.
func NewCleaner(cfg config.CleaningConfig, tables *classify.Tables, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		cfg:    cfg,
		tables: tables,
		logger: logger.With(slog.String("component", "cleaner")),
	}
}

// Run drains the source, returning the kept canonical records and a
// summary of the pass. The context is checked between records so a
// cancelled refresh stops promptly.
func (c *Cleaner) Run(ctx context.Context, src Source) ([]domain.CanonicalRecord, Summary, error) {
	summary := Summary{Dropped: make(map[string]int)}
	var kept []domain.CanonicalRecord

	for {
		if err := ctx.Err(); err != nil {
			return nil, Summary{}, err
		}

		raw, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Summary{}, err
		}

		summary.Input++
		record, reason := c.Clean(raw)
		if reason != "" {
			summary.Dropped[reason]++
			continue
		}
		summary.Kept++
		kept = append(kept, record)
	}

	if summary.Input > 0 {
		summary.Retention = float64(summary.Kept) / float64(summary.Input)
	}

	c.logger.InfoContext(ctx, "cleaning pass complete",
		slog.Int("input", summary.Input),
		slog.Int("kept", summary.Kept),
		slog.Float64("retention", summary.Retention),
		slog.Any("dropped", summary.Dropped))

	return kept, summary, nil
}

// Clean applies the drop rules and defaults to one raw record. The
// returned reason is empty when the record is kept.
func (c *Cleaner) Clean(raw domain.RawRecord) (domain.CanonicalRecord, string) {
	squat, okS := parseLift(raw.Best3SquatKg)
	bench, okB := parseLift(raw.Best3BenchKg)
	deadlift, okD := parseLift(raw.Best3DeadliftKg)

	// At least one lift must be recorded as a successful attempt.
	if squat <= 0 && bench <= 0 && deadlift <= 0 {
		return domain.CanonicalRecord{}, DropNoLifts
	}
	if !okS || !okB || !okD {
		return domain.CanonicalRecord{}, DropUnparseable
	}

	bodyweight, err := strconv.ParseFloat(raw.BodyweightKg, 64)
	if err != nil {
		return domain.CanonicalRecord{}, DropUnparseable
	}
	if bodyweight < c.cfg.MinBodyweightKg || bodyweight > c.cfg.MaxBodyweightKg {
		return domain.CanonicalRecord{}, DropBodyweight
	}

	total, err := strconv.ParseFloat(raw.TotalKg, 64)
	if err != nil {
		return domain.CanonicalRecord{}, DropUnparseable
	}
	if total < c.cfg.MinTotalKg {
		return domain.CanonicalRecord{}, DropTotalTooLow
	}

	sex := domain.Sex(strings.ToUpper(raw.Sex))
	if sex != domain.SexMale && sex != domain.SexFemale {
		return domain.CanonicalRecord{}, DropInvalidSex
	}

	equipment, ok := c.tables.Equipment(raw.Equipment)
	if !ok {
		return domain.CanonicalRecord{}, DropEquipment
	}

	age := c.cfg.DefaultAge
	if raw.Age != "" {
		if parsed, err := strconv.ParseFloat(raw.Age, 64); err == nil && parsed > 0 {
			age = parsed
		}
	}

	record := domain.CanonicalRecord{
		Sex:          sex,
		Equipment:    equipment,
		Age:          age,
		BodyweightKg: bodyweight,
		SquatKg:      clampLift(squat),
		BenchKg:      clampLift(bench),
		DeadliftKg:   clampLift(deadlift),
		TotalKg:      total,
		Tested:       normalizeTested(raw.Tested),
		Country:      raw.Country,
		State:        raw.State,
		Federation:   raw.Federation,
		Date:         raw.Date,
		MeetName:     raw.MeetName,
		Year:         parseYear(raw.Date),
		WeightClass:  c.tables.WeightClass(bodyweight, sex),
		AgeDiv:       c.tables.AgeDivision(age),
	}
	return record, ""
}

// parseLift parses a lift cell. Empty cells and failed attempts (negative
// values in the dataset) both read as zero; ok is false only for cells
// that are non-empty yet not numeric.
func parseLift(cell string) (float64, bool) {
	if cell == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	if v < 0 {
		return 0, true
	}
	return v, true
}

func clampLift(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// normalizeTested maps the dataset's Tested column onto the two canonical
// statuses. Only an explicit "Yes" counts as tested.
func normalizeTested(cell string) domain.TestedStatus {
	if strings.EqualFold(strings.TrimSpace(cell), "yes") {
		return domain.Tested
	}
	return domain.Untested
}

// parseYear extracts the meet year from an ISO date cell. Zero means the
// date was missing or malformed.
func parseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < 1900 || year > 2200 {
		return 0
	}
	return year
}
