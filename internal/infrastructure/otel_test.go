package infrastructure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plstats/internal/shared/testutil"
)

func TestInitializeOTelDisabled(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	cfg := &OTelConfig{
		ServiceName:    "plstats-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "none",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}

	providers, err := InitializeOTel(cfg, logger)

	require.NoError(t, err)
	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTelRejectsUnknownExporters(t *testing.T) {
	logger, _ := testutil.NewTestLogger()

	_, err := InitializeOTel(&OTelConfig{TraceExporter: "carrier-pigeon", EnableTracing: true}, logger)
	assert.Error(t, err)

	_, err = InitializeOTel(&OTelConfig{MetricExporter: "carrier-pigeon", EnableMetrics: true}, logger)
	assert.Error(t, err)
}

func TestTraceIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = WithTraceID(ctx, "abc-123")
	assert.Equal(t, "abc-123", GetTraceID(ctx))

	ensured := EnsureTraceID(context.Background())
	assert.NotEmpty(t, GetTraceID(ensured))

	// Already present, must not be replaced.
	assert.Equal(t, "abc-123", GetTraceID(EnsureTraceID(ctx)))
}
