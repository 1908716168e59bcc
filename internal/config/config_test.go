package config

import (
	"os"
	"path/filepath"
	"testing"

	"edgecheck/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRunConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRunConfigDefaults(t *testing.T) {
	path := writeRunConfig(t, "run_key: btc-momentum-v3\ndataset_id: btc-1h\n")

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "btc-momentum-v3", cfg.RunKey)
	assert.Equal(t, 1000, cfg.NSim)
	assert.Equal(t, "stationary", cfg.Method)
	assert.Equal(t, 8.0, cfg.AvgBlockLength)
	assert.Equal(t, 0.05, cfg.TargetFDR)
	assert.Equal(t, "bh", cfg.FDRProcedure)
}

func TestLoadRunConfigOverrides(t *testing.T) {
	path := writeRunConfig(t, `
run_key: eth-reversal-v1
dataset_id: eth-4h
n_sim: 250
method: fixed_block
avg_block_length: 12
target_fdr: 0.1
fdr_procedure: by
cscv_splits: 10
cscv_max_splits: 100
`)

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.NSim)
	assert.Equal(t, "fixed_block", cfg.Method)
	assert.Equal(t, 12.0, cfg.AvgBlockLength)
	assert.Equal(t, "by", cfg.FDRProcedure)
	assert.Equal(t, 10, cfg.CSCVSplits)
	assert.Equal(t, 100, cfg.CSCVMaxSplits)
}

func TestLoadRunConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing run key", "dataset_id: x\n"},
		{"path-like run key", "run_key: /tmp/run\n"},
		{"zero n_sim", "run_key: r\nn_sim: 0\n"},
		{"bad fdr", "run_key: r\ntarget_fdr: 1.5\n"},
		{"odd cscv splits", "run_key: r\ncscv_splits: 7\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadRunConfig(writeRunConfig(t, tc.content))
			assert.ErrorIs(t, err, core.ErrMisconfigured)
		})
	}
}

func TestLoadAmbientDefaults(t *testing.T) {
	t.Setenv("EDGECHECK_CACHE_DIR", "")
	t.Setenv("EDGECHECK_CACHE_DISABLE", "")
	t.Setenv("EDGECHECK_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".edgecheck-cache", cfg.CacheDir)
	assert.False(t, cfg.CacheDisabled)
	assert.Equal(t, 1, cfg.Workers)
}

func TestLoadAmbientOverrides(t *testing.T) {
	t.Setenv("EDGECHECK_CACHE_DIR", "/data/cache")
	t.Setenv("EDGECHECK_CACHE_DISABLE", "1")
	t.Setenv("EDGECHECK_ENABLE_STEPDOWN", "true")
	t.Setenv("EDGECHECK_WORKERS", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/cache", cfg.CacheDir)
	assert.True(t, cfg.CacheDisabled)
	assert.True(t, cfg.EnableStepdown)
	assert.Equal(t, 8, cfg.Workers)
}
