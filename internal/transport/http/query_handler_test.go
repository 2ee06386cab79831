package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plstats/internal/cohort"
	"plstats/internal/config"
	apierrors "plstats/internal/errors"
	"plstats/internal/services"
	"plstats/internal/shared/testutil"
	"plstats/internal/stats"
	"plstats/pkg/contracts/domain"
)

func newTestServer(t *testing.T, records int) *httptest.Server {
	t.Helper()
	logger, _ := testutil.NewTestLogger()
	holder := cohort.NewHolder(logger)

	rows := make([]domain.CanonicalRecord, records)
	for i := range rows {
		total := 100.0 + float64(i)*10
		rows[i] = domain.CanonicalRecord{
			Sex: domain.SexMale, Equipment: "Raw", WeightClass: "83", AgeDiv: "Open",
			Tested: domain.Tested, Country: "USA", State: "TX", Federation: "USAPL",
			Year: 2023, SquatKg: total * 0.4, BenchKg: total * 0.25,
			DeadliftKg: total * 0.35, TotalKg: total, BodyweightKg: 82, Age: 28,
		}
	}
	holder.Publish(cohort.NewSnapshot(rows))

	svc := services.NewQueryService(holder, stats.NewEngine(10),
		config.QueryConfig{MinSampleSize: 10, DefaultBins: 50, MaxBins: 200}, logger)
	handler := NewQueryHandler(svc, logger, apierrors.NewErrorHandler(logger))

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server
}

func getJSON(t *testing.T, server *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestGetPercentiles(t *testing.T) {
	server := newTestServer(t, 15)

	var result domain.PercentileResult
	code := getJSON(t, server, "/percentiles?sex=M&equipment=Raw", &result)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 15, result.SampleSize)
	assert.Len(t, result.Percentiles.Total, 99)
	assert.Equal(t, "M", result.Filters.Sex)
}

func TestGetPercentilesInsufficientData(t *testing.T) {
	server := newTestServer(t, 4)

	resp, err := http.Get(server.URL + "/percentiles")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var problem map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&problem))
	assert.Equal(t, "/errors/insufficient-data", problem["type"])
	assert.EqualValues(t, 4, problem["sample_size"])
	assert.EqualValues(t, 10, problem["min_required"])
}

func TestGetPercentilesRejectsUnknownParam(t *testing.T) {
	server := newTestServer(t, 15)

	code := getJSON(t, server, "/percentiles?sexx=M", nil)

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetPercentilesRejectsBadFilterValue(t *testing.T) {
	server := newTestServer(t, 15)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, server, "/percentiles?sex=X", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, server, "/percentiles?year=soon", nil))
}

func TestGetDistribution(t *testing.T) {
	server := newTestServer(t, 30)

	var result domain.DistributionResult
	code := getJSON(t, server, "/distribution?bins=20", &result)

	require.Equal(t, http.StatusOK, code)
	require.Contains(t, result.Distributions, "squat")
	assert.Len(t, result.Distributions["squat"].Bins, 20)
	assert.Equal(t, 30, result.SampleSize)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, server, "/distribution?bins=abc", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, server, "/distribution?bins=9999", nil))
}

func TestGetStatistics(t *testing.T) {
	server := newTestServer(t, 5)

	var result domain.StatisticsResult
	code := getJSON(t, server, "/statistics", &result)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 5, result.SampleSize)
	assert.Greater(t, result.Total.Mean, 0.0)
}

func TestGetRank(t *testing.T) {
	server := newTestServer(t, 11)

	var result domain.RankResult
	code := getJSON(t, server, "/rank?total=155", &result)

	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 54.5, result.Total, 0.1)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, server, "/rank?total=heavy", nil))
}

func TestGetMetadata(t *testing.T) {
	server := newTestServer(t, 11)

	var md domain.Metadata
	code := getJSON(t, server, "/metadata", &md)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 11, md.TotalRecords)
	assert.Equal(t, []string{"USA"}, md.Countries)
}

func TestGetFilterOptions(t *testing.T) {
	server := newTestServer(t, 11)

	var result struct {
		Dimension string   `json:"dimension"`
		Options   []string `json:"options"`
	}
	code := getJSON(t, server, "/filter-options/state?country=USA", &result)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "state", result.Dimension)
	assert.Equal(t, []string{"TX"}, result.Options)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, server, "/filter-options/bogus", nil))
}

func TestHealthEndpoint(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	holder := cohort.NewHolder(logger)
	handler := NewHealthHandler(services.NewHealthService("test", "", holder, logger), logger)

	server := httptest.NewServer(handler.Routes())
	defer server.Close()

	var status services.HealthStatus
	code := getJSON(t, server, "/", &status)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", status.Status)
}
