package realitycheck

import (
	"sort"

	"edgecheck/domain/core"
	"edgecheck/domain/family"
	"edgecheck/domain/result"
)

// stepdown computes Romano-Wolf adjusted p-values from the full replicate
// matrix. Hypotheses are visited in decreasing observed-statistic order; at
// each step the Reality Check is restricted to the not-yet-rejected set, and
// the resulting p-values are monotonized along the stepdown order before
// mapping back to hypothesis ids.
//
// All observed statistics must be finite. A non-finite entry records a skip
// reason instead of emitting a misleading adjusted p-value.
func (e *Engine) stepdown(fam *family.Family, rows [][]float64, res *result.RCResult) {
	if !fam.AllObservedFinite() {
		res.RWSkippedReason = core.ReasonNonFiniteInput
		e.log.Warn().Str("family", fam.ID().String()).Msg("romano-wolf skipped: non-finite observed statistic")
		return
	}

	observed := fam.Observed()
	ids := fam.IDs()
	h := len(observed)

	order := make([]int, h)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return observed[order[a]] > observed[order[b]]
	})

	remaining := make([]bool, h)
	for i := range remaining {
		remaining[i] = true
	}

	adjusted := make([]float64, h)
	denom := float64(len(rows) + 1)
	prev := 0.0
	for _, j := range order {
		countGE := 0
		for _, row := range rows {
			if restrictedMax(row, remaining) >= observed[j] {
				countGE++
			}
		}
		p := float64(1+countGE) / denom
		// Monotonize: adjusted p-values never decrease along the stepdown.
		if p < prev {
			p = prev
		}
		adjusted[j] = p
		prev = p
		remaining[j] = false
	}

	out := make(map[string]float64, h)
	for i, id := range ids {
		out[id] = adjusted[i]
	}
	res.RWAdjustedPValues = out
}

// restrictedMax is the row max over the still-remaining hypothesis set.
func restrictedMax(row []float64, remaining []bool) float64 {
	best := row[0]
	first := true
	for i, v := range row {
		if !remaining[i] {
			continue
		}
		if first || v > best {
			best = v
			first = false
		}
	}
	return best
}
