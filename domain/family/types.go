package family

import (
	"math"
	"sort"

	"edgecheck/domain/core"
)

// Hypothesis is one candidate in a multiple-testing family: a stable id
// (e.g. "mom_12|5d"), the observed scalar statistic, and the time-indexed
// series the bootstrap resamples to rebuild that statistic under the null.
// The series is caller-owned and read-only here.
type Hypothesis struct {
	ID       core.HypothesisID
	Observed float64
	Series   []float64
}

// Family is an ordered set of hypotheses sharing one null-generation run.
// Construction canonicalizes to lexicographic id order; every consumer
// (observed stats, null replicate rows, adjusted p-value maps) aligns to that
// order, which removes silent misalignment between vectors.
type Family struct {
	id         core.FamilyID
	hypotheses []Hypothesis
	length     int
}

// New validates and canonicalizes a family. All series must share one length
// (they are indexed positionally against a single validated time axis);
// duplicate ids and empty families are misconfigurations.
func New(id core.FamilyID, hypotheses []Hypothesis) (*Family, error) {
	if len(hypotheses) == 0 {
		return nil, core.NewMisconfiguredError("family", "no hypotheses")
	}

	hs := make([]Hypothesis, len(hypotheses))
	copy(hs, hypotheses)
	sort.Slice(hs, func(i, j int) bool { return hs[i].ID < hs[j].ID })

	length := len(hs[0].Series)
	seen := make(map[core.HypothesisID]bool, len(hs))
	for _, h := range hs {
		if h.ID == "" {
			return nil, core.NewMisconfiguredError("family", "empty hypothesis id")
		}
		if seen[h.ID] {
			return nil, core.NewMisconfiguredError("family", "duplicate hypothesis id "+h.ID.String())
		}
		seen[h.ID] = true
		if len(h.Series) != length {
			return nil, core.ErrSeriesMisaligned
		}
	}

	return &Family{id: id, hypotheses: hs, length: length}, nil
}

// ID returns the family identifier.
func (f *Family) ID() core.FamilyID { return f.id }

// Size returns the number of hypotheses.
func (f *Family) Size() int { return len(f.hypotheses) }

// SeriesLength returns the shared series length.
func (f *Family) SeriesLength() int { return f.length }

// IDs returns hypothesis ids in canonical (lexicographic) order.
func (f *Family) IDs() []string {
	ids := make([]string, len(f.hypotheses))
	for i, h := range f.hypotheses {
		ids[i] = h.ID.String()
	}
	return ids
}

// Observed returns observed statistics aligned to canonical order.
func (f *Family) Observed() []float64 {
	obs := make([]float64, len(f.hypotheses))
	for i, h := range f.hypotheses {
		obs[i] = h.Observed
	}
	return obs
}

// Hypotheses returns the canonical-order hypothesis slice. Callers must not
// mutate the returned series.
func (f *Family) Hypotheses() []Hypothesis { return f.hypotheses }

// Hash returns the canonical family content hash used in cache keys.
func (f *Family) Hash() core.FamilyHash {
	return core.ComputeFamilyHash(f.IDs())
}

// AllObservedFinite reports whether every observed statistic is finite.
// Romano-Wolf refuses to run otherwise.
func (f *Family) AllObservedFinite() bool {
	for _, h := range f.hypotheses {
		if math.IsNaN(h.Observed) || math.IsInf(h.Observed, 0) {
			return false
		}
	}
	return true
}
