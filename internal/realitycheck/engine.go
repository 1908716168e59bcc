// Package realitycheck implements White's Reality Check over a hypothesis
// family: the best observed statistic is compared against the bootstrap null
// distribution of the best statistic, with an optional Romano-Wolf stepdown
// for per-hypothesis adjusted p-values.
package realitycheck

import (
	"context"
	"math"

	"edgecheck/domain/core"
	"edgecheck/domain/family"
	"edgecheck/domain/result"
	"edgecheck/internal/seed"

	"github.com/rs/zerolog"
)

// ReplicateSource yields per-replicate null statistic vectors aligned to the
// family's canonical hypothesis order. bootstrap.NullGenerator satisfies it;
// the cache layer substitutes a replay source on hit.
type ReplicateSource interface {
	NSim() int
	FamilySize() int
	Replicate(b int) []float64
}

// Config controls one Reality Check run.
type Config struct {
	// EnableStepdown computes Romano-Wolf adjusted p-values. Requires the
	// full replicate matrix, so it is unavailable when replaying a cached
	// max-only distribution.
	EnableStepdown bool
	// Workers bounds concurrent replicate generation. Values below 2 mean
	// serial. Parallel and serial runs are bit-identical because every
	// replicate is seeded from its own index, never from a goroutine.
	Workers int
}

// Engine runs Reality Checks. It holds no mutable state between calls; the
// logger is the only collaborator.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates an engine logging through the given logger.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log}
}

// Run executes the Reality Check for one family. Identical (family, replicate
// stream, config) inputs produce byte-identical rc_p_value and
// null_max_distribution.
func (e *Engine) Run(ctx context.Context, fam *family.Family, gen ReplicateSource, spec seed.Spec, cfg Config) (*result.RCResult, error) {
	if gen.FamilySize() != fam.Size() {
		return nil, core.NewHypothesisSetError(fam.Size(), gen.FamilySize())
	}

	prov := spec.Provenance()
	res := &result.RCResult{
		FamilyID:      fam.ID(),
		HypothesisIDs: fam.IDs(),
		RequestedNSim: gen.NSim(),
		Seed: result.SeedProvenance{
			RunKey:   prov.RunKey,
			Salt:     prov.Salt,
			FoldID:   prov.FoldID,
			Version:  prov.Version,
			RootSeed: prov.RootSeed,
		},
		CreatedAt: core.Now(),
	}

	observedMax, anyFinite := finiteMax(fam.Observed())
	if !anyFinite {
		res.ObservedMax = math.NaN()
		res.RCPValue = math.NaN()
		res.SkippedReason = core.ReasonNonFiniteInput
		res.RWSkippedReason = core.ReasonNonFiniteInput
		e.log.Warn().Str("family", fam.ID().String()).Msg("reality check skipped: no finite observed statistics")
		return res, nil
	}
	res.ObservedMax = observedMax

	rows, err := collectRows(ctx, gen, cfg.Workers)
	if err != nil {
		return nil, err
	}

	// A replicate is usable only when every entry is finite; unusable rows
	// count toward the shortfall and are never padded or fabricated.
	usable := rows[:0]
	nullMax := make([]float64, 0, len(rows))
	for _, row := range rows {
		m, ok := finiteRowMax(row)
		if !ok {
			continue
		}
		usable = append(usable, row)
		nullMax = append(nullMax, m)
	}

	res.ActualNSim = len(usable)
	if res.ActualNSim < res.RequestedNSim {
		res.ShortfallWarning = true
		e.log.Warn().
			Str("family", fam.ID().String()).
			Int("requested_n_sim", res.RequestedNSim).
			Int("actual_n_sim", res.ActualNSim).
			Msg("null replicate shortfall")
	}

	if res.ActualNSim == 0 {
		res.RCPValue = math.NaN()
		res.SkippedReason = core.ReasonInsufficientData
		if cfg.EnableStepdown {
			res.RWSkippedReason = core.ReasonInsufficientData
		}
		return res, nil
	}

	countGE := 0
	for _, m := range nullMax {
		if m >= observedMax {
			countGE++
		}
	}
	// Conservative add-one Monte Carlo estimator: exact under the null for
	// any replicate count.
	res.RCPValue = float64(1+countGE) / float64(res.ActualNSim+1)
	res.NullMaxDistribution = nullMax

	if cfg.EnableStepdown {
		e.stepdown(fam, usable, res)
	}
	return res, nil
}

// collectRows materializes all replicate rows, optionally in parallel. Row b
// always lands in slot b, so worker count never affects the output.
func collectRows(ctx context.Context, gen ReplicateSource, workers int) ([][]float64, error) {
	n := gen.NSim()
	rows := make([][]float64, n)

	if workers > 1 {
		return parallelRows(ctx, gen, rows, workers)
	}

	for b := 0; b < n; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows[b] = gen.Replicate(b)
	}
	return rows, nil
}

// finiteMax returns the max over finite entries and whether any existed.
func finiteMax(values []float64) (float64, bool) {
	best := math.Inf(-1)
	found := false
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

// finiteRowMax returns the row max, rejecting rows with any non-finite entry.
func finiteRowMax(row []float64) (float64, bool) {
	best := math.Inf(-1)
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		if v > best {
			best = v
		}
	}
	return best, len(row) > 0
}
