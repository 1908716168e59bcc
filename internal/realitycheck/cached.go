package realitycheck

import (
	"context"
	"math"

	"edgecheck/domain/core"
	"edgecheck/domain/family"
	"edgecheck/domain/result"
	"edgecheck/internal/nullcache"
	"edgecheck/internal/seed"
)

// RunCached is Run behind the null distribution cache. On a hit the p-value
// is recomputed from the persisted null-max array without touching the
// generator; on a miss it runs normally and persists the distribution when
// it survived in full (a shortfall run is never cached, since the stored
// array length must equal the requested n_sim exactly).
//
// A cached array holds max statistics only, so Romano-Wolf cannot run on the
// hit path; a stepdown request is then recorded as skipped rather than
// silently recomputed.
func (e *Engine) RunCached(ctx context.Context, fam *family.Family, gen ReplicateSource, spec seed.Spec, cfg Config, cache *nullcache.Cache, key nullcache.Key) (*result.RCResult, error) {
	if gen.FamilySize() != fam.Size() {
		return nil, core.NewHypothesisSetError(fam.Size(), gen.FamilySize())
	}

	if nullMax, ok := cache.Get(key); ok {
		return e.replay(fam, spec, cfg, nullMax), nil
	}

	res, err := e.Run(ctx, fam, gen, spec, cfg)
	if err != nil {
		return nil, err
	}
	if res.SkippedReason == core.ReasonNone && !res.ShortfallWarning {
		if err := cache.Put(key, res.NullMaxDistribution); err != nil {
			e.log.Warn().Err(err).Str("family", fam.ID().String()).Msg("failed to persist null distribution")
		}
	}
	return res, nil
}

// replay rebuilds an RCResult from a cached null-max array.
func (e *Engine) replay(fam *family.Family, spec seed.Spec, cfg Config, nullMax []float64) *result.RCResult {
	prov := spec.Provenance()
	res := &result.RCResult{
		FamilyID:      fam.ID(),
		HypothesisIDs: fam.IDs(),
		RequestedNSim: len(nullMax),
		ActualNSim:    len(nullMax),
		Seed: result.SeedProvenance{
			RunKey:   prov.RunKey,
			Salt:     prov.Salt,
			FoldID:   prov.FoldID,
			Version:  prov.Version,
			RootSeed: prov.RootSeed,
		},
		NullMaxDistribution: nullMax,
		CreatedAt:           core.Now(),
	}

	observedMax, anyFinite := finiteMax(fam.Observed())
	if !anyFinite {
		res.ObservedMax = math.NaN()
		res.RCPValue = math.NaN()
		res.SkippedReason = core.ReasonNonFiniteInput
		res.RWSkippedReason = core.ReasonNonFiniteInput
		return res
	}
	res.ObservedMax = observedMax

	countGE := 0
	for _, m := range nullMax {
		if m >= observedMax {
			countGE++
		}
	}
	res.RCPValue = float64(1+countGE) / float64(len(nullMax)+1)

	if cfg.EnableStepdown {
		res.RWSkippedReason = core.ReasonCachedMaxOnly
		e.log.Info().Str("family", fam.ID().String()).Msg("romano-wolf unavailable on cached max-only distribution")
	}
	return res
}
