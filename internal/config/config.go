package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server" envconfig:"SERVER"`
	Logging        LoggingConfig        `yaml:"logging" envconfig:"LOGGING"`
	Paths          PathsConfig          `yaml:"paths" envconfig:"PATHS"`
	Cleaning       CleaningConfig       `yaml:"cleaning" envconfig:"CLEANING"`
	Classification ClassificationConfig `yaml:"classification"`
	Query          QueryConfig          `yaml:"query" envconfig:"QUERY"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration.
type PathsConfig struct {
	CSVFile   string `yaml:"csv_file" envconfig:"CSV_FILE" default:"data/openpowerlifting.csv"`
	Database  string `yaml:"database" envconfig:"DATABASE" default:"data/powerlifting.db"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"json_output"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// CleaningConfig bounds the record cleaning step. Rows outside these limits
// are dropped, not clamped.
type CleaningConfig struct {
	MinTotalKg      float64 `yaml:"min_total_kg" envconfig:"MIN_TOTAL_KG" default:"100"`
	MinBodyweightKg float64 `yaml:"min_bodyweight_kg" envconfig:"MIN_BODYWEIGHT_KG" default:"40"`
	MaxBodyweightKg float64 `yaml:"max_bodyweight_kg" envconfig:"MAX_BODYWEIGHT_KG" default:"200"`
	DefaultAge      float64 `yaml:"default_age" envconfig:"DEFAULT_AGE" default:"25"`
}

// AgeBand is one entry of the age-division partition. Upper is the exclusive
// upper bound of the band; the final band uses an Upper of 0 to mean
// unbounded.
type AgeBand struct {
	Name  string  `yaml:"name"`
	Upper float64 `yaml:"upper"`
}

// ClassificationConfig carries the categorical tables used to derive weight
// class and age division. These are explicit configuration rather than
// package-level state so tests can substitute alternate tables.
type ClassificationConfig struct {
	// EquipmentMap maps raw source equipment values to canonical labels.
	// Rows whose equipment is absent from the map are dropped.
	EquipmentMap map[string]string `yaml:"equipment_map"`
	// Weight class thresholds per sex, ascending, ending with the open-ended
	// sentinel 999 which renders as "<previous>+".
	WeightClassesM []float64 `yaml:"weight_classes_m"`
	WeightClassesF []float64 `yaml:"weight_classes_f"`
	// AgeBands is the disjoint contiguous age partition, walked in order.
	AgeBands []AgeBand `yaml:"age_bands"`
}

// QueryConfig bounds the aggregation engines.
type QueryConfig struct {
	MinSampleSize int `yaml:"min_sample_size" envconfig:"MIN_SAMPLE_SIZE" default:"10"`
	DefaultBins   int `yaml:"default_bins" envconfig:"DEFAULT_BINS" default:"50"`
	MaxBins       int `yaml:"max_bins" envconfig:"MAX_BINS" default:"200"`
}

// DefaultClassification returns the IPF tables the service ships with.
func DefaultClassification() ClassificationConfig {
	return ClassificationConfig{
		EquipmentMap: map[string]string{
			"Raw":        "Raw",
			"Wraps":      "Wraps",
			"Single-ply": "Single-ply",
			"Multi-ply":  "Multi-ply",
		},
		WeightClassesM: []float64{59, 66, 74, 83, 93, 105, 120, 999},
		WeightClassesF: []float64{47, 52, 57, 63, 72, 84, 999},
		AgeBands: []AgeBand{
			{Name: "Youth", Upper: 14},
			{Name: "Sub-Junior", Upper: 19},
			{Name: "Junior", Upper: 24},
			{Name: "Open", Upper: 40},
			{Name: "Masters 1", Upper: 50},
			{Name: "Masters 2", Upper: 60},
			{Name: "Masters 3", Upper: 70},
			{Name: "Masters 4", Upper: 0},
		},
	}
}

// Load loads configuration from an optional YAML file overlaid by
// environment variables, then validates the result.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("PLSTATS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	if len(cfg.Classification.AgeBands) == 0 {
		cfg.Classification = DefaultClassification()
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs merges file config with env config; env takes precedence.
func mergeConfigs(fileCfg, envCfg Config) Config {
	if envCfg.Server.Port == 0 {
		envCfg.Server.Port = fileCfg.Server.Port
	}
	if envCfg.Server.ReadTimeout == 0 {
		envCfg.Server.ReadTimeout = fileCfg.Server.ReadTimeout
	}
	if envCfg.Server.WriteTimeout == 0 {
		envCfg.Server.WriteTimeout = fileCfg.Server.WriteTimeout
	}
	if envCfg.Paths.CSVFile == "" {
		envCfg.Paths.CSVFile = fileCfg.Paths.CSVFile
	}
	if envCfg.Paths.Database == "" {
		envCfg.Paths.Database = fileCfg.Paths.Database
	}
	if envCfg.Paths.OutputDir == "" {
		envCfg.Paths.OutputDir = fileCfg.Paths.OutputDir
	}
	if len(fileCfg.Classification.AgeBands) > 0 {
		envCfg.Classification = fileCfg.Classification
	}
	return envCfg
}

func configFilePath() string {
	if p := os.Getenv("PLSTATS_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

// validate checks configuration invariants that would otherwise surface as
// confusing behavior deep inside the pipeline.
func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cleaning.MinBodyweightKg >= c.Cleaning.MaxBodyweightKg {
		return fmt.Errorf("bodyweight bounds inverted: [%v, %v]",
			c.Cleaning.MinBodyweightKg, c.Cleaning.MaxBodyweightKg)
	}
	if c.Cleaning.MinTotalKg < 0 {
		return fmt.Errorf("negative minimum total: %v", c.Cleaning.MinTotalKg)
	}
	if c.Query.MinSampleSize < 1 {
		return fmt.Errorf("minimum sample size must be positive, got %d", c.Query.MinSampleSize)
	}
	if c.Query.DefaultBins < 1 || c.Query.DefaultBins > c.Query.MaxBins {
		return fmt.Errorf("default bins %d outside [1, %d]", c.Query.DefaultBins, c.Query.MaxBins)
	}
	if len(c.Classification.WeightClassesM) < 2 || len(c.Classification.WeightClassesF) < 2 {
		return fmt.Errorf("weight class tables need at least two thresholds")
	}
	return nil
}
