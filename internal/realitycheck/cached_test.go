package realitycheck

import (
	"context"
	"math/rand"
	"testing"

	"edgecheck/domain/core"
	"edgecheck/domain/family"
	"edgecheck/internal/bootstrap"
	"edgecheck/internal/nullcache"
	"edgecheck/internal/seed"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	inner ReplicateSource
	calls int
}

func (c *countingSource) NSim() int       { return c.inner.NSim() }
func (c *countingSource) FamilySize() int { return c.inner.FamilySize() }
func (c *countingSource) Replicate(b int) []float64 {
	c.calls++
	return c.inner.Replicate(b)
}

func cachedFixture(t *testing.T) (*family.Family, bootstrap.Config, seed.Spec, nullcache.Key) {
	t.Helper()
	rng := rand.New(rand.NewSource(31))
	mk := func() []float64 {
		s := make([]float64, 100)
		for i := range s {
			s[i] = rng.NormFloat64()
		}
		return s
	}
	fam, err := family.New("fam-c", []family.Hypothesis{
		{ID: "h1", Observed: 0.15, Series: mk()},
		{ID: "h2", Observed: 0.02, Series: mk()},
	})
	require.NoError(t, err)

	cfg := bootstrap.Config{NSim: 30, Method: bootstrap.MethodStationary, AvgBlockLength: 8}
	spec := seed.Spec{RunKey: "cached-run", Salt: seed.SaltRCNull, FoldID: "5d", Version: "1"}
	key := nullcache.Key{
		AlgoVersion: "1",
		FamilyID:    fam.ID(),
		DatasetID:   "btc-1h",
		Metric:      "sharpe",
		Horizon:     "5d",
		NSim:        cfg.NSim,
		Seed:        spec.Root(),
		Method:      string(cfg.Method),
		BlockParam:  cfg.AvgBlockLength,
	}
	return fam, cfg, spec, key
}

func TestRunCachedMissThenHit(t *testing.T) {
	fam, bcfg, spec, key := cachedFixture(t)
	cache, err := nullcache.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	eng := NewEngine(zerolog.Nop())

	gen, err := bootstrap.NewNullGenerator(fam, bootstrap.SharpeStat, bcfg, spec)
	require.NoError(t, err)
	src := &countingSource{inner: gen}

	first, err := eng.RunCached(context.Background(), fam, src, spec, Config{}, cache, key)
	require.NoError(t, err)
	assert.Equal(t, bcfg.NSim, src.calls, "miss path must generate every replicate")

	src.calls = 0
	second, err := eng.RunCached(context.Background(), fam, src, spec, Config{}, cache, key)
	require.NoError(t, err)
	assert.Zero(t, src.calls, "hit path must not regenerate replicates")

	assert.Equal(t, first.RCPValue, second.RCPValue)
	assert.Equal(t, first.NullMaxDistribution, second.NullMaxDistribution)
}

func TestRunCachedHitSkipsStepdown(t *testing.T) {
	fam, bcfg, spec, key := cachedFixture(t)
	cache, err := nullcache.New(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	eng := NewEngine(zerolog.Nop())

	gen, err := bootstrap.NewNullGenerator(fam, bootstrap.SharpeStat, bcfg, spec)
	require.NoError(t, err)

	// Populate the cache, then ask for stepdown on the hit path.
	_, err = eng.RunCached(context.Background(), fam, gen, spec, Config{}, cache, key)
	require.NoError(t, err)

	res, err := eng.RunCached(context.Background(), fam, gen, spec, Config{EnableStepdown: true}, cache, key)
	require.NoError(t, err)
	assert.Nil(t, res.RWAdjustedPValues)
	assert.Equal(t, core.ReasonCachedMaxOnly, res.RWSkippedReason)
}

func TestRunCachedDisabledCacheAlwaysRecomputes(t *testing.T) {
	fam, bcfg, spec, key := cachedFixture(t)
	cache, err := nullcache.New(t.TempDir(), zerolog.Nop(), nullcache.WithDisabled(true))
	require.NoError(t, err)
	eng := NewEngine(zerolog.Nop())

	for i := 0; i < 2; i++ {
		gen, err := bootstrap.NewNullGenerator(fam, bootstrap.SharpeStat, bcfg, spec)
		require.NoError(t, err)
		src := &countingSource{inner: gen}
		_, err = eng.RunCached(context.Background(), fam, src, spec, Config{}, cache, key)
		require.NoError(t, err)
		assert.Equal(t, bcfg.NSim, src.calls, "disabled cache must recompute on pass %d", i)
	}
}

// Cross-process determinism stand-in: two fully independent construction
// paths (fresh family, generator, engine, cache dir) with the same seed
// material produce identical p-values.
func TestRunCachedCrossInstanceDeterminism(t *testing.T) {
	run := func() float64 {
		fam, bcfg, spec, key := cachedFixture(t)
		cache, err := nullcache.New(t.TempDir(), zerolog.Nop())
		require.NoError(t, err)
		gen, err := bootstrap.NewNullGenerator(fam, bootstrap.SharpeStat, bcfg, spec)
		require.NoError(t, err)
		res, err := NewEngine(zerolog.Nop()).RunCached(context.Background(), fam, gen, spec, Config{}, cache, key)
		require.NoError(t, err)
		return res.RCPValue
	}
	assert.Equal(t, run(), run())
}
