package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"plstats/internal/cohort"
	"plstats/pkg/contracts/domain"
)

var workbookHeader = []string{
	"Weight Class", "Sample Size",
	"Squat Mean", "Squat Median", "Squat Max",
	"Bench Mean", "Bench Median", "Bench Max",
	"Deadlift Mean", "Deadlift Median", "Deadlift Max",
	"Total Mean", "Total Median", "Total Max",
}

// WriteWorkbook writes summary.xlsx: one sheet per sex, one row per weight
// class with summary statistics across all equipment and divisions.
func (e *Exporter) WriteWorkbook(ctx context.Context, snap *cohort.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	md := snap.Metadata()
	for _, sex := range []string{string(domain.SexMale), string(domain.SexFemale)} {
		if err := ctx.Err(); err != nil {
			return err
		}

		sheet := sheetName(sex)
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeRow(f, sheet, 1, toCells(workbookHeader)); err != nil {
			return err
		}

		row := 2
		for _, weightClass := range md.WeightClasses[sex] {
			result := e.engine.Statistics(snap.Select(domain.FilterSet{
				Sex: sex, WeightClass: weightClass,
			}))
			if result.SampleSize == 0 {
				continue
			}

			cells := []any{
				weightClass, result.SampleSize,
				result.Squat.Mean, result.Squat.Median, result.Squat.Max,
				result.Bench.Mean, result.Bench.Median, result.Bench.Max,
				result.Deadlift.Mean, result.Deadlift.Median, result.Deadlift.Max,
				result.Total.Mean, result.Total.Median, result.Total.Max,
			}
			if err := writeRow(f, sheet, row, cells); err != nil {
				return err
			}
			row++
		}
	}
	f.DeleteSheet("Sheet1")

	if err := os.MkdirAll(e.outputDir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(e.outputDir, "summary.xlsx")
	// excelize infers the workbook format from the file extension, so the
	// temp file must keep the .xlsx suffix.
	tmp := path + ".tmp.xlsx"
	if err := f.SaveAs(tmp); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace workbook: %w", err)
	}

	e.logger.InfoContext(ctx, "workbook exported", slog.String("path", path))
	return nil
}

func sheetName(sex string) string {
	if sex == string(domain.SexFemale) {
		return "Women"
	}
	return "Men"
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
