// Package config assembles the engine configuration: ambient settings from
// environment variables (optionally a .env file) and per-run algorithm
// settings from a yaml file. Nothing configuration-derived ever feeds seed
// derivation except what the caller puts into the run key.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"edgecheck/domain/core"
	"edgecheck/internal/nullcache"
)

// Config is the ambient (environment-scoped) configuration.
type Config struct {
	CacheDir       string
	CacheDisabled  bool
	EnableStepdown bool
	LogLevel       string
	Workers        int
}

// Load reads ambient configuration from the environment. A .env file in the
// working directory is honored when present; its absence is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	return &Config{
		CacheDir:       getEnvOrDefault("EDGECHECK_CACHE_DIR", ".edgecheck-cache"),
		CacheDisabled:  os.Getenv(nullcache.DisableEnvVar) != "",
		EnableStepdown: getEnvBoolOrDefault("EDGECHECK_ENABLE_STEPDOWN", false),
		LogLevel:       getEnvOrDefault("EDGECHECK_LOG_LEVEL", "info"),
		Workers:        getEnvIntOrDefault("EDGECHECK_WORKERS", 1),
	}, nil
}

// RunConfig is the per-run algorithm configuration, loaded from yaml. These
// are the knobs the upstream pipeline owns: replicate counts, bootstrap
// method, FDR level, CSCV geometry.
type RunConfig struct {
	RunKey         string  `yaml:"run_key"`
	DatasetID      string  `yaml:"dataset_id"`
	AlgoVersion    string  `yaml:"algo_version"`
	NSim           int     `yaml:"n_sim"`
	Method         string  `yaml:"method"`
	AvgBlockLength float64 `yaml:"avg_block_length"`
	Statistic      string  `yaml:"statistic"`
	Horizon        string  `yaml:"horizon"`
	TargetFDR      float64 `yaml:"target_fdr"`
	FDRProcedure   string  `yaml:"fdr_procedure"`
	TrialCount     int     `yaml:"trial_count"`
	BarsPerYear    float64 `yaml:"bars_per_year"`
	CSCVSplits     int     `yaml:"cscv_splits"`
	CSCVMaxSplits  int     `yaml:"cscv_max_splits"`
}

// DefaultRunConfig returns the documented defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		AlgoVersion:    "1",
		NSim:           1000,
		Method:         "stationary",
		AvgBlockLength: 8,
		Statistic:      "sharpe",
		TargetFDR:      0.05,
		FDRProcedure:   "bh",
		TrialCount:     1,
		BarsPerYear:    252,
		CSCVSplits:     8,
	}
}

// LoadRunConfig reads and validates a yaml run config, layering the file
// over defaults.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run config: %w", err)
	}

	cfg := DefaultRunConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse run config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies the hard-fail misconfiguration checks.
func (c *RunConfig) Validate() error {
	if _, err := core.ParseRunKey(c.RunKey); err != nil {
		return core.NewMisconfiguredError("run config", err.Error())
	}
	if c.NSim <= 0 {
		return core.NewMisconfiguredError("run config", "n_sim must be positive")
	}
	if c.TargetFDR <= 0 || c.TargetFDR >= 1 {
		return core.NewMisconfiguredError("run config", "target_fdr must be in (0,1)")
	}
	if c.CSCVSplits < 2 || c.CSCVSplits%2 != 0 {
		return core.NewMisconfiguredError("run config", "cscv_splits must be even and >= 2")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
