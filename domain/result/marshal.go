package result

import (
	"encoding/json"
	"math"
)

// NaN is the in-memory encoding for "no evidence", but encoding/json refuses
// non-finite floats. Degraded values therefore serialize as null, which the
// renderer shows as "N/A — insufficient data", visually distinct from a real
// computed value of 0.

func finitePtr(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// MarshalJSON renders non-finite summary fields as null.
func (r RCResult) MarshalJSON() ([]byte, error) {
	type alias RCResult
	return json.Marshal(&struct {
		alias
		ObservedMax *float64 `json:"observed_max"`
		RCPValue    *float64 `json:"rc_p_value"`
	}{
		alias:       alias(r),
		ObservedMax: finitePtr(r.ObservedMax),
		RCPValue:    finitePtr(r.RCPValue),
	})
}

// MarshalJSON renders NaN p-values as null.
func (a AdjustedPValue) MarshalJSON() ([]byte, error) {
	type alias AdjustedPValue
	return json.Marshal(&struct {
		alias
		RawP      *float64 `json:"raw_p"`
		AdjustedP *float64 `json:"adjusted_p"`
	}{
		alias:     alias(a),
		RawP:      finitePtr(a.RawP),
		AdjustedP: finitePtr(a.AdjustedP),
	})
}

// MarshalJSON renders a skipped PBO as null.
func (p PBOResult) MarshalJSON() ([]byte, error) {
	type alias PBOResult
	return json.Marshal(&struct {
		alias
		PBO *float64 `json:"pbo"`
	}{
		alias: alias(p),
		PBO:   finitePtr(p.PBO),
	})
}

// MarshalJSON renders every degraded Sharpe field as null.
func (d DeflatedSharpeResult) MarshalJSON() ([]byte, error) {
	type alias DeflatedSharpeResult
	return json.Marshal(&struct {
		alias
		RawSharpe        *float64 `json:"raw_sharpe"`
		AnnualizedSharpe *float64 `json:"annualized_sharpe"`
		SharpeStdErr     *float64 `json:"sharpe_std_err"`
		ExpectedMaxNull  *float64 `json:"expected_max_null"`
		DeflatedSharpe   *float64 `json:"deflated_sharpe"`
		DeflatedProb     *float64 `json:"deflated_prob"`
	}{
		alias:            alias(d),
		RawSharpe:        finitePtr(d.RawSharpe),
		AnnualizedSharpe: finitePtr(d.AnnualizedSharpe),
		SharpeStdErr:     finitePtr(d.SharpeStdErr),
		ExpectedMaxNull:  finitePtr(d.ExpectedMaxNull),
		DeflatedSharpe:   finitePtr(d.DeflatedSharpe),
		DeflatedProb:     finitePtr(d.DeflatedProb),
	})
}
