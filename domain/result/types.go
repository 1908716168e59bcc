package result

import (
	"encoding/json"

	"edgecheck/domain/core"
)

// SeedProvenance records exactly how a null distribution's seed was derived,
// so any reader of a persisted result can regenerate it bit-for-bit.
type SeedProvenance struct {
	RunKey   core.RunKey `json:"run_key"`
	Salt     string      `json:"salt"`
	FoldID   string      `json:"fold_id,omitempty"`
	Version  string      `json:"version"`
	RootSeed uint64      `json:"root_seed"`
}

// RCResult is the immutable outcome of one Reality Check run over a family.
// NullMaxDistribution holds the per-replicate max statistics in replicate
// order; HypothesisIDs is the canonical sorted order every vector aligns to.
type RCResult struct {
	FamilyID            core.FamilyID      `json:"family_id"`
	HypothesisIDs       []string           `json:"hypothesis_ids"`
	ObservedMax         float64            `json:"observed_max"`
	RCPValue            float64            `json:"rc_p_value"`
	NullMaxDistribution []float64          `json:"null_max_distribution"`
	RequestedNSim       int                `json:"requested_n_sim"`
	ActualNSim          int                `json:"actual_n_sim"`
	ShortfallWarning    bool               `json:"shortfall_warning,omitempty"`
	SkippedReason       core.ReasonCode    `json:"skipped_reason,omitempty"`
	Seed                SeedProvenance     `json:"seed"`
	RWAdjustedPValues   map[string]float64 `json:"rw_adjusted_p_values,omitempty"`
	RWSkippedReason     core.ReasonCode    `json:"rw_skipped_reason,omitempty"`
	CreatedAt           core.Timestamp     `json:"created_at"`
}

// ToJSON renders the result for the downstream report renderer.
func (r *RCResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// AdjustedPValue is one row of an AdjustedPValueSet.
type AdjustedPValue struct {
	HypothesisID string  `json:"hypothesis_id"`
	RawP         float64 `json:"raw_p"`
	AdjustedP    float64 `json:"adjusted_p"`
	Discovery    bool    `json:"discovery"`
}

// AdjustedPValueSet is the BH/BY output table: one row per hypothesis, in
// canonical id order. Adjusted values are in [0,1] and monotone
// non-decreasing in raw-p rank order; NaN raw p-values carry NaN adjusted
// p-values and are never discoveries.
type AdjustedPValueSet struct {
	Procedure string           `json:"procedure"`
	TargetFDR float64          `json:"target_fdr"`
	Rows      []AdjustedPValue `json:"rows"`
}

// Discoveries returns the hypothesis ids flagged as discoveries.
func (s *AdjustedPValueSet) Discoveries() []string {
	var ids []string
	for _, row := range s.Rows {
		if row.Discovery {
			ids = append(ids, row.HypothesisID)
		}
	}
	return ids
}

// Lookup returns the row for a hypothesis id, if present.
func (s *AdjustedPValueSet) Lookup(id string) (AdjustedPValue, bool) {
	for _, row := range s.Rows {
		if row.HypothesisID == id {
			return row, true
		}
	}
	return AdjustedPValue{}, false
}

// PBOResult is the CSCV probability-of-backtest-overfitting estimate.
// PBO is NaN when SkippedReason is set; the renderer must show "N/A", not 0.
type PBOResult struct {
	PBO             float64         `json:"pbo"`
	SplitsEvaluated int             `json:"splits_evaluated"`
	SplitsTotal     int             `json:"splits_total"`
	Subsampled      bool            `json:"subsampled"`
	SkippedReason   core.ReasonCode `json:"skipped_reason,omitempty"`
	Explanation     string          `json:"explanation"`
}

// DeflatedSharpeResult reports the selection-bias-adjusted Sharpe ratio.
// This is a screening heuristic, not a sized test; it complements but never
// replaces the Reality Check.
type DeflatedSharpeResult struct {
	RawSharpe        float64         `json:"raw_sharpe"`
	AnnualizedSharpe float64         `json:"annualized_sharpe"`
	SharpeStdErr     float64         `json:"sharpe_std_err"`
	ExpectedMaxNull  float64         `json:"expected_max_null"`
	DeflatedSharpe   float64         `json:"deflated_sharpe"`
	DeflatedProb     float64         `json:"deflated_prob"`
	TrialCount       int             `json:"trial_count"`
	Observations     int             `json:"observations"`
	SkippedReason    core.ReasonCode `json:"skipped_reason,omitempty"`
	Message          string          `json:"message,omitempty"`
}
