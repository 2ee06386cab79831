package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plstats/internal/config"
	"plstats/internal/infrastructure"
	"plstats/internal/services"
	"plstats/internal/shared/testutil"
	"plstats/internal/store"
	"plstats/pkg/contracts/domain"
)

// newTestApp assembles an Application without touching global logger or
// telemetry state.
func newTestApp(t *testing.T) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger()

	cfg := &config.Config{}
	cfg.Server.Port = 0
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Query = config.QueryConfig{MinSampleSize: 10, DefaultBins: 50, MaxBins: 200}
	cfg.Paths.Database = filepath.Join(t.TempDir(), "lifts.db")

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: &infrastructure.OTelProviders{Logger: logger},
		buildID:       "test-build",
	}
	app.initializeServices()
	app.setupRouter()
	app.createServer()
	return app
}

func TestRouterServesHealthWithoutSnapshot(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status services.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
}

func TestRouterServes503BeforeSnapshot(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/percentiles", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterSetsRequestID(t *testing.T) {
	app := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestLoadSnapshotFromDatabase(t *testing.T) {
	app := newTestApp(t)
	logger, _ := testutil.NewTestLogger()

	records := []domain.CanonicalRecord{
		{Sex: domain.SexMale, Equipment: "Raw", WeightClass: "83", AgeDiv: "Open",
			Tested: domain.Tested, SquatKg: 180, BenchKg: 120, DeadliftKg: 220, TotalKg: 520},
	}
	require.NoError(t, store.NewWriter(logger).Write(context.Background(), app.Config.Paths.Database, records))

	require.NoError(t, app.LoadSnapshot(context.Background()))

	snap := app.Holder.Current()
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Len())
}

func TestLoadSnapshotMissingDatabaseIsNotFatal(t *testing.T) {
	app := newTestApp(t)

	require.NoError(t, app.LoadSnapshot(context.Background()))
	assert.Nil(t, app.Holder.Current())
}
