package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLSTATS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100.0, cfg.Cleaning.MinTotalKg)
	assert.Equal(t, 40.0, cfg.Cleaning.MinBodyweightKg)
	assert.Equal(t, 200.0, cfg.Cleaning.MaxBodyweightKg)
	assert.Equal(t, 25.0, cfg.Cleaning.DefaultAge)
	assert.Equal(t, 10, cfg.Query.MinSampleSize)
	assert.Equal(t, 50, cfg.Query.DefaultBins)
	assert.Len(t, cfg.Classification.AgeBands, 8)
	assert.Equal(t, "Raw", cfg.Classification.EquipmentMap["Raw"])
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PLSTATS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PLSTATS_SERVER_PORT", "9090")
	t.Setenv("PLSTATS_QUERY_MIN_SAMPLE_SIZE", "25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Query.MinSampleSize)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
classification:
  equipment_map:
    Raw: Raw
  weight_classes_m: [83, 999]
  weight_classes_f: [72, 999]
  age_bands:
    - name: Open
      upper: 0
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	t.Setenv("PLSTATS_CONFIG", configPath)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []float64{83, 999}, cfg.Classification.WeightClassesM)
	require.Len(t, cfg.Classification.AgeBands, 1)
	assert.Equal(t, "Open", cfg.Classification.AgeBands[0].Name)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:         ServerConfig{Port: 8080},
			Cleaning:       CleaningConfig{MinTotalKg: 100, MinBodyweightKg: 40, MaxBodyweightKg: 200, DefaultAge: 25},
			Classification: DefaultClassification(),
			Query:          QueryConfig{MinSampleSize: 10, DefaultBins: 50, MaxBins: 200},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: "invalid server port",
		},
		{
			name:    "inverted bodyweight bounds",
			mutate:  func(c *Config) { c.Cleaning.MinBodyweightKg = 300 },
			wantErr: "bodyweight bounds inverted",
		},
		{
			name:    "zero sample size",
			mutate:  func(c *Config) { c.Query.MinSampleSize = 0 },
			wantErr: "sample size",
		},
		{
			name:    "bins above max",
			mutate:  func(c *Config) { c.Query.DefaultBins = 500 },
			wantErr: "bins",
		},
		{
			name:    "short weight class table",
			mutate:  func(c *Config) { c.Classification.WeightClassesF = []float64{999} },
			wantErr: "weight class tables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
