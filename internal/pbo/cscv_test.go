package pbo

import (
	"math"
	"math/rand"
	"testing"

	"edgecheck/domain/core"
	"edgecheck/internal/bootstrap"
	"edgecheck/internal/seed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noiseMatrix(seedVal int64, t, j int) [][]float64 {
	rng := rand.New(rand.NewSource(seedVal))
	m := make([][]float64, t)
	for i := range m {
		row := make([]float64, j)
		for s := range row {
			row[s] = rng.NormFloat64() * 0.01
		}
		m[i] = row
	}
	return m
}

func TestEstimateBounds(t *testing.T) {
	m := noiseMatrix(3, 240, 8)
	res, err := Estimate(m, Config{SplitCount: 6, Statistic: bootstrap.SharpeStat}, nil)
	require.NoError(t, err)

	assert.Empty(t, res.SkippedReason)
	assert.GreaterOrEqual(t, res.PBO, 0.0)
	assert.LessOrEqual(t, res.PBO, 1.0)
	assert.Equal(t, 20, res.SplitsTotal) // C(6,3)
	assert.Equal(t, 20, res.SplitsEvaluated)
	assert.False(t, res.Subsampled)
	assert.NotEmpty(t, res.Explanation)
}

func TestEstimateInsufficientData(t *testing.T) {
	m := noiseMatrix(3, 10, 4)
	res, err := Estimate(m, Config{SplitCount: 6, Statistic: bootstrap.SharpeStat}, nil)
	require.NoError(t, err)

	assert.True(t, math.IsNaN(res.PBO))
	assert.Equal(t, core.ReasonInsufficientData, res.SkippedReason)
	assert.NotEmpty(t, res.Explanation)
}

func TestEstimateValidation(t *testing.T) {
	m := noiseMatrix(3, 100, 4)

	_, err := Estimate(m, Config{SplitCount: 5, Statistic: bootstrap.SharpeStat}, nil)
	assert.ErrorIs(t, err, core.ErrMisconfigured, "odd split count must hard-fail")

	_, err = Estimate(m, Config{SplitCount: 6}, nil)
	assert.ErrorIs(t, err, core.ErrMisconfigured, "nil statistic must hard-fail")

	ragged := noiseMatrix(3, 100, 4)
	ragged[50] = ragged[50][:2]
	_, err = Estimate(ragged, Config{SplitCount: 6, Statistic: bootstrap.SharpeStat}, nil)
	assert.ErrorIs(t, err, core.ErrMisconfigured, "ragged matrix must hard-fail")
}

func TestSubsamplingRequiresRNG(t *testing.T) {
	m := noiseMatrix(3, 400, 6)
	cfg := Config{SplitCount: 10, MaxSplits: 50, Statistic: bootstrap.SharpeStat}

	_, err := Estimate(m, cfg, nil)
	assert.ErrorIs(t, err, core.ErrDeterminismViolation,
		"subsampling without an explicit rng must hard-fail")

	spec := seed.Spec{RunKey: "pbo-run", Salt: seed.SaltCSCVSplits, Version: "1"}
	res, err := Estimate(m, cfg, spec.RNG())
	require.NoError(t, err)
	assert.Equal(t, 50, res.SplitsEvaluated)
	assert.Equal(t, 252, res.SplitsTotal) // C(10,5)
	assert.True(t, res.Subsampled)
}

func TestSubsamplingDeterministic(t *testing.T) {
	m := noiseMatrix(9, 400, 6)
	cfg := Config{SplitCount: 10, MaxSplits: 40, Statistic: bootstrap.SharpeStat}
	spec := seed.Spec{RunKey: "pbo-run", Salt: seed.SaltCSCVSplits, Version: "1"}

	a, err := Estimate(m, cfg, spec.RNG())
	require.NoError(t, err)
	b, err := Estimate(m, cfg, spec.RNG())
	require.NoError(t, err)

	assert.Equal(t, a.PBO, b.PBO)
	assert.Equal(t, a.SplitsEvaluated, b.SplitsEvaluated)
}

// An all-noise family should look materially more overfit than a family with
// one genuinely better strategy, averaged across seeded trials.
func TestNoiseFamilyMoreOverfitThanPlantedEdge(t *testing.T) {
	const trials = 20
	cfg := Config{SplitCount: 6, Statistic: bootstrap.SharpeStat}

	var noiseSum, edgeSum float64
	for trial := 0; trial < trials; trial++ {
		noise := noiseMatrix(int64(100+trial), 240, 8)
		res, err := Estimate(noise, cfg, nil)
		require.NoError(t, err)
		noiseSum += res.PBO

		edge := noiseMatrix(int64(200+trial), 240, 8)
		for i := range edge {
			edge[i][0] += 0.004 // weak planted edge in strategy 0
		}
		res, err = Estimate(edge, cfg, nil)
		require.NoError(t, err)
		edgeSum += res.PBO
	}

	assert.Greater(t, noiseSum/trials, edgeSum/trials,
		"planted edge should reduce average PBO below all-noise level")
}
