// Package pbo estimates the probability of backtest overfitting via
// combinatorially symmetric cross-validation (CSCV): the time axis is cut
// into S contiguous blocks, every balanced split of blocks into train/test
// halves is evaluated, and PBO is the fraction of splits where the
// in-sample-best strategy lands in the bottom half out-of-sample.
package pbo

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"edgecheck/domain/core"
	"edgecheck/domain/result"
	"edgecheck/internal/bootstrap"

	"gonum.org/v1/gonum/stat/combin"
)

// minRowsPerBlock: blocks shorter than this carry too little signal for the
// ranking statistic to mean anything.
const minRowsPerBlock = 4

// Config parameterizes one CSCV run.
type Config struct {
	// SplitCount is S, the number of contiguous time blocks. Must be even
	// and >= 2.
	SplitCount int
	// MaxSplits caps the number of evaluated combinations; 0 means all
	// C(S, S/2). When the cap binds, an explicit rng is mandatory.
	MaxSplits int
	// Statistic ranks strategies within each half.
	Statistic bootstrap.Statistic
}

// Estimate computes PBO for a T×J return matrix (T time rows, J strategies).
//
// When MaxSplits forces subsampling, rng must be non-nil: there is no silent
// default seed, omitting it is a hard usage error. Serial determinism of the
// subsample follows from the caller deriving rng via seed.Spec with the
// cscv_splits salt.
func Estimate(matrix [][]float64, cfg Config, rng *rand.Rand) (*result.PBOResult, error) {
	if cfg.SplitCount < 2 || cfg.SplitCount%2 != 0 {
		return nil, core.NewMisconfiguredError("cscv", "split count must be even and >= 2")
	}
	if cfg.Statistic == nil {
		return nil, core.NewMisconfiguredError("cscv", "nil ranking statistic")
	}

	t := len(matrix)
	if t == 0 {
		return skip(cfg, "return matrix is empty")
	}
	j := len(matrix[0])
	for i, row := range matrix {
		if len(row) != j {
			return nil, core.NewMisconfiguredError("cscv", fmt.Sprintf("ragged matrix: row %d has %d columns, want %d", i, len(row), j))
		}
	}
	if j < 2 {
		return nil, core.NewMisconfiguredError("cscv", "need at least 2 strategies")
	}
	if t < cfg.SplitCount*minRowsPerBlock {
		return skip(cfg, fmt.Sprintf("need at least %d rows for %d blocks, got %d",
			cfg.SplitCount*minRowsPerBlock, cfg.SplitCount, t))
	}

	combos := combin.Combinations(cfg.SplitCount, cfg.SplitCount/2)
	total := len(combos)

	subsampled := false
	if cfg.MaxSplits > 0 && total > cfg.MaxSplits {
		if rng == nil {
			return nil, core.ErrMissingSeed
		}
		combos = subsample(combos, cfg.MaxSplits, rng)
		subsampled = true
	}

	bounds := blockBounds(t, cfg.SplitCount)

	occurrences := 0
	for _, trainBlocks := range combos {
		trainIdx, testIdx := splitIndices(bounds, trainBlocks, cfg.SplitCount)

		trainStats := halfStats(matrix, trainIdx, j, cfg.Statistic)
		best := argmax(trainStats)

		testStats := halfStats(matrix, testIdx, j, cfg.Statistic)
		if bottomHalf(testStats, best) {
			occurrences++
		}
	}

	pbo := float64(occurrences) / float64(len(combos))
	return &result.PBOResult{
		PBO:             pbo,
		SplitsEvaluated: len(combos),
		SplitsTotal:     total,
		Subsampled:      subsampled,
		Explanation: fmt.Sprintf(
			"in %d of %d CSCV splits the in-sample-best strategy ranked in the bottom half out-of-sample",
			occurrences, len(combos)),
	}, nil
}

func skip(cfg Config, why string) (*result.PBOResult, error) {
	return &result.PBOResult{
		PBO:           math.NaN(),
		SkippedReason: core.ReasonInsufficientData,
		Explanation:   "PBO not estimated: " + why,
	}, nil
}

// subsample picks k combinations deterministically from the given rng and
// restores enumeration order so iteration stays stable.
func subsample(combos [][]int, k int, rng *rand.Rand) [][]int {
	idx := rng.Perm(len(combos))[:k]
	sort.Ints(idx)
	out := make([][]int, k)
	for i, n := range idx {
		out[i] = combos[n]
	}
	return out
}

// blockBounds cuts T rows into S contiguous [start,end) blocks; the last
// block absorbs the remainder.
func blockBounds(t, s int) [][2]int {
	size := t / s
	bounds := make([][2]int, s)
	for i := 0; i < s; i++ {
		start := i * size
		end := start + size
		if i == s-1 {
			end = t
		}
		bounds[i] = [2]int{start, end}
	}
	return bounds
}

func splitIndices(bounds [][2]int, trainBlocks []int, s int) (train, test []int) {
	inTrain := make([]bool, s)
	for _, b := range trainBlocks {
		inTrain[b] = true
	}
	for i, bd := range bounds {
		for r := bd[0]; r < bd[1]; r++ {
			if inTrain[i] {
				train = append(train, r)
			} else {
				test = append(test, r)
			}
		}
	}
	return train, test
}

// halfStats computes the ranking statistic for every strategy over one half.
func halfStats(matrix [][]float64, rows []int, j int, stat bootstrap.Statistic) []float64 {
	col := make([]float64, len(rows))
	out := make([]float64, j)
	for s := 0; s < j; s++ {
		for i, r := range rows {
			col[i] = matrix[r][s]
		}
		out[s] = stat(col)
	}
	return out
}

// argmax returns the index of the largest finite statistic; NaN ranks worst.
func argmax(stats []float64) int {
	best := 0
	for i := 1; i < len(stats); i++ {
		if math.IsNaN(stats[best]) || (!math.IsNaN(stats[i]) && stats[i] > stats[best]) {
			best = i
		}
	}
	return best
}

// bottomHalf reports whether strategy best ranks at the median or worse
// out-of-sample. NaN test statistics beat nothing.
func bottomHalf(testStats []float64, best int) bool {
	j := len(testStats)
	rank := 1
	bestStat := testStats[best]
	if math.IsNaN(bestStat) {
		return true
	}
	for i, v := range testStats {
		if i == best {
			continue
		}
		if !math.IsNaN(v) && v > bestStat {
			rank++
		}
	}
	return float64(rank) >= (float64(j)+1)/2
}
