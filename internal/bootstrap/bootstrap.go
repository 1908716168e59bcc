// Package bootstrap builds joint null distributions for hypothesis families
// by block-resampling the shared time index and recomputing each hypothesis'
// statistic on the resampled values. One index sequence per replicate is
// applied to every hypothesis, which preserves cross-hypothesis dependence.
package bootstrap

import (
	"math"
	"math/rand"

	"edgecheck/domain/core"
	"edgecheck/domain/family"
	"edgecheck/internal/seed"
)

// Method selects the block-resampling scheme.
type Method string

const (
	// MethodStationary draws Geometric(1/avg_block_length) block lengths and
	// wraps at the series end.
	MethodStationary Method = "stationary"
	// MethodFixedBlock uses a constant block length and truncates at the
	// series end.
	MethodFixedBlock Method = "fixed_block"
)

// ParseMethod validates a method name. Unknown methods are a hard
// misconfiguration, never a silent default.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodStationary:
		return MethodStationary, nil
	case MethodFixedBlock:
		return MethodFixedBlock, nil
	default:
		return "", core.ErrUnknownMethod
	}
}

// Config parameterizes one null-generation run.
type Config struct {
	NSim           int
	Method         Method
	AvgBlockLength float64
}

// Validate checks the config for hard misconfigurations.
func (c Config) Validate() error {
	if c.NSim <= 0 {
		return core.NewMisconfiguredError("bootstrap", "n_sim must be positive")
	}
	if _, err := ParseMethod(string(c.Method)); err != nil {
		return err
	}
	if c.AvgBlockLength < 1 {
		return core.NewMisconfiguredError("bootstrap", "avg_block_length must be >= 1")
	}
	return nil
}

// NullGenerator produces per-replicate null statistic vectors for one family.
// The whole distribution is reproducible solely from (run_key, salt, fold_id,
// n_sim): replicate b's RNG is seeded from the b-th sub-seed of the base
// stream, so replicates are mutually independent and may be generated in any
// order or in parallel without changing a single bit.
type NullGenerator struct {
	fam      *family.Family
	stat     Statistic
	cfg      Config
	subSeeds []int64
	centers  []float64
}

// NewNullGenerator validates config and derives the per-replicate sub-seeds.
// Each hypothesis' replicate statistics are centered at the statistic of its
// original series: the bootstrap distributes around the sample value, so the
// centered deviations are the draws from the null.
func NewNullGenerator(fam *family.Family, stat Statistic, cfg Config, spec seed.Spec) (*NullGenerator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stat == nil {
		return nil, core.NewMisconfiguredError("bootstrap", "nil statistic")
	}

	hs := fam.Hypotheses()
	centers := make([]float64, len(hs))
	for i, h := range hs {
		centers[i] = stat(h.Series)
	}

	return &NullGenerator{
		fam:      fam,
		stat:     stat,
		cfg:      cfg,
		subSeeds: spec.SubSeeds(cfg.NSim),
		centers:  centers,
	}, nil
}

// NSim returns the requested replicate count.
func (g *NullGenerator) NSim() int { return g.cfg.NSim }

// FamilySize returns the per-replicate vector length.
func (g *NullGenerator) FamilySize() int { return g.fam.Size() }

// Replicate computes null statistic vector b in canonical hypothesis order.
// Degenerate input (shared index shorter than 2 points) soft-fails with an
// all-NaN row; callers treat NaN as "no evidence".
func (g *NullGenerator) Replicate(b int) []float64 {
	hs := g.fam.Hypotheses()
	row := make([]float64, len(hs))

	length := g.fam.SeriesLength()
	if length < 2 {
		for i := range row {
			row[i] = math.NaN()
		}
		return row
	}

	rng := rand.New(rand.NewSource(g.subSeeds[b]))
	idx := resampleIndices(rng, length, g.cfg.Method, g.cfg.AvgBlockLength)

	resampled := make([]float64, length)
	for i, h := range hs {
		for j, k := range idx {
			resampled[j] = h.Series[k]
		}
		row[i] = g.stat(resampled) - g.centers[i]
	}
	return row
}

// resampleIndices draws one resampled time index of exactly length elements.
func resampleIndices(rng *rand.Rand, length int, method Method, avgBlockLength float64) []int {
	idx := make([]int, 0, length)
	switch method {
	case MethodStationary:
		p := 1.0 / avgBlockLength
		for len(idx) < length {
			start := rng.Intn(length)
			block := geometricLength(rng, p)
			for k := 0; k < block && len(idx) < length; k++ {
				idx = append(idx, (start+k)%length)
			}
		}
	case MethodFixedBlock:
		block := int(math.Round(avgBlockLength))
		if block < 1 {
			block = 1
		}
		for len(idx) < length {
			start := rng.Intn(length)
			for k := 0; k < block && start+k < length && len(idx) < length; k++ {
				idx = append(idx, start+k)
			}
		}
	}
	return idx
}

// geometricLength draws a block length with mean 1/p using the closed-form
// inverse CDF, so it costs one uniform draw regardless of the outcome.
func geometricLength(rng *rand.Rand, p float64) int {
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64
	}
	l := 1 + int(math.Floor(math.Log(u)/math.Log(1-p)))
	if l < 1 {
		l = 1
	}
	return l
}
