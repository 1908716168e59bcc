// Package fdr controls the false discovery rate over a raw p-value family
// with the Benjamini-Hochberg or Benjamini-Yekutieli procedure.
package fdr

import (
	"math"
	"sort"

	"edgecheck/domain/core"
	"edgecheck/domain/result"
)

// Procedure selects the FDR correction.
type Procedure string

const (
	// ProcedureBH is Benjamini-Hochberg: valid under independence or
	// positive regression dependence (PRDS).
	ProcedureBH Procedure = "bh"
	// ProcedureBY is Benjamini-Yekutieli: BH with the harmonic correction
	// c_n, valid under arbitrary dependence. Always >= BH elementwise.
	ProcedureBY Procedure = "by"
)

// ParseProcedure validates a procedure name.
func ParseProcedure(s string) (Procedure, error) {
	switch Procedure(s) {
	case ProcedureBH:
		return ProcedureBH, nil
	case ProcedureBY:
		return ProcedureBY, nil
	default:
		return "", core.NewMisconfiguredError("fdr", "unknown procedure "+s)
	}
}

// Adjust computes adjusted p-values and discoveries at target FDR q.
//
// NaN raw p-values follow a fixed policy that parity implementations must
// replicate exactly: they stay in the denominator n, are excluded from
// ranking, carry NaN adjusted p-values, and are never discoveries.
func Adjust(raw map[string]float64, proc Procedure, q float64) (*result.AdjustedPValueSet, error) {
	if len(raw) == 0 {
		return nil, core.NewMisconfiguredError("fdr", "empty p-value family")
	}
	if q <= 0 || q >= 1 {
		return nil, core.NewMisconfiguredError("fdr", "target FDR must be in (0,1)")
	}
	if _, err := ParseProcedure(string(proc)); err != nil {
		return nil, err
	}
	for id, p := range raw {
		if math.IsNaN(p) {
			continue
		}
		if p < 0 || p > 1 {
			return nil, core.NewMisconfiguredError("fdr", "raw p-value out of [0,1] for "+id)
		}
	}

	n := len(raw)

	type ranked struct {
		id string
		p  float64
	}
	finite := make([]ranked, 0, n)
	for id, p := range raw {
		if !math.IsNaN(p) {
			finite = append(finite, ranked{id, p})
		}
	}
	sort.Slice(finite, func(i, j int) bool {
		if finite[i].p != finite[j].p {
			return finite[i].p < finite[j].p
		}
		return finite[i].id < finite[j].id
	})

	// BY multiplies by the harmonic number over the full family size,
	// NaN entries included.
	correction := 1.0
	if proc == ProcedureBY {
		correction = 0
		for j := 1; j <= n; j++ {
			correction += 1 / float64(j)
		}
	}

	adjusted := make([]float64, len(finite))
	for i, r := range finite {
		rank := float64(i + 1)
		adjusted[i] = math.Min(1, r.p*float64(n)*correction/rank)
	}
	// Monotonize from the largest rank down so adjusted values are
	// non-decreasing in raw-p rank order.
	for i := len(adjusted) - 2; i >= 0; i-- {
		if adjusted[i] > adjusted[i+1] {
			adjusted[i] = adjusted[i+1]
		}
	}

	byID := make(map[string]result.AdjustedPValue, n)
	for i, r := range finite {
		byID[r.id] = result.AdjustedPValue{
			HypothesisID: r.id,
			RawP:         r.p,
			AdjustedP:    adjusted[i],
			Discovery:    adjusted[i] <= q,
		}
	}
	for id, p := range raw {
		if math.IsNaN(p) {
			byID[id] = result.AdjustedPValue{
				HypothesisID: id,
				RawP:         p,
				AdjustedP:    math.NaN(),
				Discovery:    false,
			}
		}
	}

	ids := make([]string, 0, n)
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rows := make([]result.AdjustedPValue, len(ids))
	for i, id := range ids {
		rows[i] = byID[id]
	}

	return &result.AdjustedPValueSet{
		Procedure: string(proc),
		TargetFDR: q,
		Rows:      rows,
	}, nil
}
