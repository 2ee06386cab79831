package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plstats/internal/classify"
	"plstats/internal/cleaning"
	"plstats/internal/cohort"
	"plstats/internal/config"
	"plstats/internal/exporter"
	"plstats/internal/shared/testutil"
	"plstats/internal/stats"
	"plstats/internal/store"
	"plstats/pkg/contracts/domain"
)

func rawRecord(total float64) domain.RawRecord {
	return domain.RawRecord{
		Sex:             "M",
		Equipment:       "Raw",
		Age:             "28",
		BodyweightKg:    "82.5",
		Best3SquatKg:    strconv.FormatFloat(total*0.4, 'f', 1, 64),
		Best3BenchKg:    strconv.FormatFloat(total*0.25, 'f', 1, 64),
		Best3DeadliftKg: strconv.FormatFloat(total*0.35, 'f', 1, 64),
		TotalKg:         strconv.FormatFloat(total, 'f', 1, 64),
		Tested:          "Yes",
		Country:         "USA",
		Federation:      "USAPL",
		Date:            "2023-06-10",
	}
}

func newRefresher(t *testing.T) (*Refresher, *cohort.Holder, string, string) {
	t.Helper()
	logger, _ := testutil.NewTestLogger()

	tables, err := classify.NewTables(config.DefaultClassification())
	require.NoError(t, err)
	cleaner := cleaning.NewCleaner(config.CleaningConfig{
		MinTotalKg: 100, MinBodyweightKg: 40, MaxBodyweightKg: 200, DefaultAge: 25,
	}, tables, logger)

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lifts.db")
	outDir := filepath.Join(dir, "out")
	holder := cohort.NewHolder(logger)
	exp := exporter.New(outDir, stats.NewEngine(10), logger)

	return NewRefresher(cleaner, store.NewWriter(logger), holder, exp, dbPath, logger), holder, dbPath, outDir
}

func TestRunPublishesAndExports(t *testing.T) {
	refresher, holder, dbPath, outDir := newRefresher(t)

	raws := make([]domain.RawRecord, 0, 13)
	for i := 0; i < 12; i++ {
		raws = append(raws, rawRecord(300 + float64(i)*10))
	}
	bad := rawRecord(400)
	bad.BodyweightKg = "250"
	raws = append(raws, bad)

	result, err := refresher.Run(context.Background(), cleaning.NewSliceSource(raws))

	require.NoError(t, err)
	assert.NotEmpty(t, result.BuildID)
	assert.Equal(t, 12, result.Records)
	assert.Equal(t, 13, result.Cleaning.Input)
	assert.Equal(t, 1, result.Cleaning.Dropped[cleaning.DropBodyweight])

	require.NotNil(t, holder.Current())
	assert.Equal(t, 12, holder.Current().Len())

	for _, name := range []string{"percentiles.json", "metadata.json", "summary.xlsx"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestRunWithoutWorkbook(t *testing.T) {
	refresher, _, _, outDir := newRefresher(t)
	refresher.SetWorkbook(false)

	raws := make([]domain.RawRecord, 0, 12)
	for i := 0; i < 12; i++ {
		raws = append(raws, rawRecord(300 + float64(i)*10))
	}

	_, err := refresher.Run(context.Background(), cleaning.NewSliceSource(raws))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "percentiles.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "summary.xlsx"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunFailureKeepsOldSnapshot(t *testing.T) {
	refresher, holder, _, _ := newRefresher(t)

	previous := cohort.NewSnapshot([]domain.CanonicalRecord{{Sex: domain.SexMale, Equipment: "Raw"}})
	holder.Publish(previous)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := refresher.Run(ctx, cleaning.NewSliceSource([]domain.RawRecord{rawRecord(300)}))

	require.Error(t, err)
	assert.Same(t, previous, holder.Current())
}
