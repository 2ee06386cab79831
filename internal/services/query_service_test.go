package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plstats/internal/cohort"
	"plstats/internal/config"
	"plstats/internal/errors"
	"plstats/internal/shared/testutil"
	"plstats/internal/stats"
	"plstats/pkg/contracts/domain"
)

func queryConfig() config.QueryConfig {
	return config.QueryConfig{MinSampleSize: 10, DefaultBins: 50, MaxBins: 200}
}

// newPublishedService builds a query service over a snapshot of n complete
// male Raw records with totals 100, 110, ...
func newPublishedService(t *testing.T, n int) *QueryService {
	t.Helper()
	logger, _ := testutil.NewTestLogger()
	holder := cohort.NewHolder(logger)

	records := make([]domain.CanonicalRecord, n)
	for i := range records {
		total := 100.0 + float64(i)*10
		records[i] = domain.CanonicalRecord{
			Sex: domain.SexMale, Equipment: "Raw", WeightClass: "83", AgeDiv: "Open",
			Tested: domain.Tested, Country: "USA", State: "TX", Federation: "USAPL",
			Year: 2023, SquatKg: total * 0.4, BenchKg: total * 0.25,
			DeadliftKg: total * 0.35, TotalKg: total, BodyweightKg: 82, Age: 28,
		}
	}
	holder.Publish(cohort.NewSnapshot(records))

	return NewQueryService(holder, stats.NewEngine(10), queryConfig(), logger)
}

func TestPercentilesHappyPath(t *testing.T) {
	svc := newPublishedService(t, 12)

	result, err := svc.Percentiles(context.Background(), domain.FilterSet{Sex: "M"})

	require.NoError(t, err)
	assert.Equal(t, 12, result.SampleSize)
	assert.Len(t, result.Percentiles.Total, 99)
	assert.Equal(t, "M", result.Filters.Sex)
}

func TestPercentilesInsufficientData(t *testing.T) {
	svc := newPublishedService(t, 5)

	_, err := svc.Percentiles(context.Background(), domain.FilterSet{})

	require.Error(t, err)
	assert.True(t, errors.IsInsufficientData(err))
}

func TestPercentilesInvalidSexFilter(t *testing.T) {
	svc := newPublishedService(t, 12)

	_, err := svc.Percentiles(context.Background(), domain.FilterSet{Sex: "X"})

	require.Error(t, err)
	assert.True(t, errors.IsInvalidFilter(err))
}

func TestPercentilesNonNumericYear(t *testing.T) {
	svc := newPublishedService(t, 12)

	_, err := svc.Percentiles(context.Background(), domain.FilterSet{Year: "soon"})

	require.Error(t, err)
	assert.True(t, errors.IsInvalidFilter(err))
}

func TestPercentilesNoSnapshot(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	svc := NewQueryService(cohort.NewHolder(logger), stats.NewEngine(10), queryConfig(), logger)

	_, err := svc.Percentiles(context.Background(), domain.FilterSet{})

	require.Error(t, err)
	assert.True(t, errors.IsSourceDataError(err))
}

func TestDistributionDefaultsAndBounds(t *testing.T) {
	svc := newPublishedService(t, 20)

	result, err := svc.Distribution(context.Background(), domain.FilterSet{}, 0)
	require.NoError(t, err)
	require.Contains(t, result.Distributions, "total")
	assert.Len(t, result.Distributions["total"].Bins, 50)

	result, err = svc.Distribution(context.Background(), domain.FilterSet{}, 25)
	require.NoError(t, err)
	assert.Len(t, result.Distributions["total"].Bins, 25)

	_, err = svc.Distribution(context.Background(), domain.FilterSet{}, 500)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidFilter(err))

	_, err = svc.Distribution(context.Background(), domain.FilterSet{}, -1)
	require.Error(t, err)
	assert.True(t, errors.IsInvalidFilter(err))
}

func TestStatisticsNotGated(t *testing.T) {
	svc := newPublishedService(t, 3)

	result, err := svc.Statistics(context.Background(), domain.FilterSet{})

	require.NoError(t, err)
	assert.Equal(t, 3, result.SampleSize)
	assert.Greater(t, result.Total.Mean, 0.0)
}

func TestStatisticsEmptyCohort(t *testing.T) {
	svc := newPublishedService(t, 12)

	result, err := svc.Statistics(context.Background(), domain.FilterSet{Sex: "F"})

	require.NoError(t, err)
	assert.Zero(t, result.SampleSize)
	assert.Zero(t, result.Total.Mean)
}

func TestRank(t *testing.T) {
	svc := newPublishedService(t, 11)

	// Totals run 100..200; a 155 total beats 6 of the 11 records.
	result, err := svc.Rank(context.Background(), domain.FilterSet{},
		domain.LiftValues{Total: 155})

	require.NoError(t, err)
	assert.InDelta(t, 54.5, result.Total, 0.1)
}

func TestRankRejectsNegativeLifts(t *testing.T) {
	svc := newPublishedService(t, 11)

	_, err := svc.Rank(context.Background(), domain.FilterSet{}, domain.LiftValues{Squat: -1})

	require.Error(t, err)
	assert.True(t, errors.IsInvalidFilter(err))
}

func TestMetadata(t *testing.T) {
	svc := newPublishedService(t, 12)

	md, err := svc.Metadata(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 12, md.TotalRecords)
	assert.Equal(t, []string{"USA"}, md.Countries)
}

func TestFilterOptions(t *testing.T) {
	svc := newPublishedService(t, 12)

	options, err := svc.FilterOptions(context.Background(), domain.DimState, domain.FilterSet{Country: "USA"})
	require.NoError(t, err)
	assert.Equal(t, []string{"TX"}, options)

	options, err = svc.FilterOptions(context.Background(), domain.DimState, domain.FilterSet{Country: "Canada"})
	require.NoError(t, err)
	assert.Empty(t, options)
	assert.NotNil(t, options)

	_, err = svc.FilterOptions(context.Background(), "bogus", domain.FilterSet{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidFilter(err))
}

func TestHealthCheck(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	holder := cohort.NewHolder(logger)
	svc := NewHealthService("1.0.0", "build-1", holder, logger)

	status := svc.Check(context.Background())
	assert.Equal(t, "degraded", status.Status)
	assert.False(t, status.Dataset.Loaded)

	records := []domain.CanonicalRecord{{Sex: domain.SexMale, Equipment: "Raw", Year: 2023}}
	holder.Publish(cohort.NewSnapshot(records))

	status = svc.Check(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.True(t, status.Dataset.Loaded)
	assert.Equal(t, 1, status.Dataset.Records)
	assert.Equal(t, "1.0.0", status.Version)
}
