package calibration

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastHarness() *Harness {
	return New("calibration-ci", FastMode(), zerolog.Nop())
}

// Empirical Type-I error of the Reality Check under null scenarios must stay
// near nominal. Fast mode uses wide tolerance; all randomness is seeded, so
// these are regressions, not flaky statistical tests.
func TestRCTypeIErrorNearNominal(t *testing.T) {
	h := fastHarness()
	alpha := 0.10

	for _, scenario := range []Scenario{ScenarioIID, ScenarioAR1, ScenarioCrossCorrelated} {
		rate, err := h.RCRejectionRate(context.Background(), scenario, alpha)
		require.NoError(t, err)
		assert.LessOrEqual(t, rate, alpha+2*h.Mode.Tolerance,
			"scenario %s rejects far above nominal", scenario)
	}
}

func TestRCPowerUnderMeanShift(t *testing.T) {
	h := fastHarness()
	alpha := 0.10

	nullRate, err := h.RCRejectionRate(context.Background(), ScenarioIID, alpha)
	require.NoError(t, err)
	shiftRate, err := h.RCRejectionRate(context.Background(), ScenarioMeanShift, alpha)
	require.NoError(t, err)

	assert.Greater(t, shiftRate, nullRate,
		"planted mean shift should be rejected more often than pure noise")
	assert.Greater(t, shiftRate, 0.5, "power under a strong planted shift is implausibly low")
}

// Under i.i.d. uniform p-values the BH discovery rate at q=0.05 must not
// grossly exceed nominal: <= 0.15 over >= 20 trials in fast mode.
func TestBHErrorRateGuard(t *testing.T) {
	h := fastHarness()
	require.GreaterOrEqual(t, h.Mode.Trials, 20)

	rate, err := h.BHFamilywiseErrorRate(0.05, 50)
	require.NoError(t, err)
	assert.LessOrEqual(t, rate, 0.15)
}

func TestPBONoiseNearHalf(t *testing.T) {
	h := fastHarness()

	avg, err := h.AveragePBO(8, 6, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, avg, 0.2, "all-noise PBO should hover near one half")
}

func TestPBOPlantedEdgeBelowNoise(t *testing.T) {
	h := fastHarness()

	noise, err := h.AveragePBO(8, 6, 0)
	require.NoError(t, err)
	edged, err := h.AveragePBO(8, 6, 0.004)
	require.NoError(t, err)

	assert.Greater(t, noise, edged,
		"a weak planted edge should lower average PBO below the all-noise level")
}

// Slow mode: tight tolerances, opt-in (skipped under -short).
func TestSlowCalibration(t *testing.T) {
	if testing.Short() {
		t.Skip("slow calibration is opt-in; run without -short")
	}

	h := New("calibration-slow", SlowMode(), zerolog.Nop())
	alpha := 0.05

	rate, err := h.RCRejectionRate(context.Background(), ScenarioIID, alpha)
	require.NoError(t, err)
	assert.InDelta(t, alpha, rate, alpha+h.Mode.Tolerance)

	bh, err := h.BHFamilywiseErrorRate(0.05, 100)
	require.NoError(t, err)
	assert.LessOrEqual(t, bh, 0.05+2*h.Mode.Tolerance)

	pboAvg, err := h.AveragePBO(10, 8, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, pboAvg, 0.1)
}
