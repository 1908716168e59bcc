package calibration

import (
	"context"
	"fmt"

	"edgecheck/domain/core"
	"edgecheck/domain/family"
	"edgecheck/internal/bootstrap"
	"edgecheck/internal/fdr"
	"edgecheck/internal/pbo"
	"edgecheck/internal/realitycheck"
	"edgecheck/internal/seed"

	"github.com/rs/zerolog"
)

// Mode bundles trial counts with the tolerance they justify. Fast is small
// and wide enough to run on every CI pass; Slow is opt-in and tight.
type Mode struct {
	Name       string
	Trials     int
	NSim       int
	Length     int
	Hypotheses int
	Tolerance  float64
}

// FastMode is CI-safe: few trials, wide tolerance.
func FastMode() Mode {
	return Mode{Name: "fast", Trials: 20, NSim: 60, Length: 120, Hypotheses: 3, Tolerance: 0.10}
}

// SlowMode is opt-in: larger samples, tight tolerance.
func SlowMode() Mode {
	return Mode{Name: "slow", Trials: 200, NSim: 300, Length: 500, Hypotheses: 5, Tolerance: 0.03}
}

// Harness drives every mechanism as a black box over seeded synthetic
// trials. All randomness derives from (RunKey, calibration salt, trial id),
// so a harness run is exactly reproducible.
type Harness struct {
	RunKey core.RunKey
	Mode   Mode
	engine *realitycheck.Engine
}

// New creates a harness.
func New(runKey core.RunKey, mode Mode, log zerolog.Logger) *Harness {
	return &Harness{
		RunKey: runKey,
		Mode:   mode,
		engine: realitycheck.NewEngine(log),
	}
}

func (h *Harness) trialSpec(mechanism string, scenario Scenario, trial int) seed.Spec {
	return seed.Spec{
		RunKey:  h.RunKey,
		Salt:    seed.SaltCalibration,
		FoldID:  fmt.Sprintf("%s|%s|%d", mechanism, scenario, trial),
		Version: "1",
	}
}

// RCRejectionRate measures how often the Reality Check rejects at level
// alpha under the given scenario. Under a null scenario this is the
// empirical Type-I error and should sit near alpha; under mean_shift it is
// power and should sit well above it.
func (h *Harness) RCRejectionRate(ctx context.Context, scenario Scenario, alpha float64) (float64, error) {
	rejections := 0
	for trial := 0; trial < h.Mode.Trials; trial++ {
		dataSpec := h.trialSpec("rc_data", scenario, trial)
		series := generateSeries(dataSpec.RNG(), scenario, h.Mode.Hypotheses, h.Mode.Length)

		hyps := make([]family.Hypothesis, len(series))
		for i, s := range series {
			hyps[i] = family.Hypothesis{
				ID:       core.HypothesisID(fmt.Sprintf("h%02d", i)),
				Observed: bootstrap.MeanStat(s),
				Series:   s,
			}
		}
		fam, err := family.New(core.FamilyID(fmt.Sprintf("cal-%s-%d", scenario, trial)), hyps)
		if err != nil {
			return 0, err
		}

		nullSpec := h.trialSpec("rc_null", scenario, trial)
		gen, err := bootstrap.NewNullGenerator(fam, bootstrap.MeanStat, bootstrap.Config{
			NSim:           h.Mode.NSim,
			Method:         bootstrap.MethodStationary,
			AvgBlockLength: 8,
		}, nullSpec)
		if err != nil {
			return 0, err
		}

		res, err := h.engine.Run(ctx, fam, gen, nullSpec, realitycheck.Config{})
		if err != nil {
			return 0, err
		}
		if res.RCPValue <= alpha {
			rejections++
		}
	}
	return float64(rejections) / float64(h.Mode.Trials), nil
}

// BHFamilywiseErrorRate measures how often BH makes at least one discovery
// on an all-null uniform p-value family. Under the global null this equals
// the FDR and must not grossly exceed q.
func (h *Harness) BHFamilywiseErrorRate(q float64, familySize int) (float64, error) {
	trialsWithDiscovery := 0
	for trial := 0; trial < h.Mode.Trials; trial++ {
		spec := h.trialSpec("bh_null", ScenarioIID, trial)
		ps := uniformPValues(spec.RNG(), familySize)

		raw := make(map[string]float64, familySize)
		for i, p := range ps {
			raw[fmt.Sprintf("h%03d", i)] = p
		}
		set, err := fdr.Adjust(raw, fdr.ProcedureBH, q)
		if err != nil {
			return 0, err
		}
		if len(set.Discoveries()) > 0 {
			trialsWithDiscovery++
		}
	}
	return float64(trialsWithDiscovery) / float64(h.Mode.Trials), nil
}

// AveragePBO runs CSCV over seeded noise matrices (optionally with a planted
// edge on strategy 0) and returns the mean PBO across trials.
func (h *Harness) AveragePBO(strategies, splitCount int, plantedEdge float64) (float64, error) {
	sum := 0.0
	evaluated := 0
	for trial := 0; trial < h.Mode.Trials; trial++ {
		spec := h.trialSpec("pbo", ScenarioIID, trial)
		rng := spec.RNG()

		rows := h.Mode.Length
		matrix := make([][]float64, rows)
		for t := 0; t < rows; t++ {
			row := make([]float64, strategies)
			for s := range row {
				row[s] = rng.NormFloat64() * 0.01
			}
			row[0] += plantedEdge
			matrix[t] = row
		}

		res, err := pbo.Estimate(matrix, pbo.Config{
			SplitCount: splitCount,
			Statistic:  bootstrap.SharpeStat,
		}, nil)
		if err != nil {
			return 0, err
		}
		if res.SkippedReason != core.ReasonNone {
			continue
		}
		sum += res.PBO
		evaluated++
	}
	if evaluated == 0 {
		return 0, core.ErrInsufficientData
	}
	return sum / float64(evaluated), nil
}
