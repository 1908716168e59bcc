// Package sharpe computes the Deflated Sharpe Ratio: the observed Sharpe
// discounted for having searched many candidate strategies before reporting
// the best one. It is a screening heuristic, not a sized test; it complements
// the Reality Check and never replaces it.
package sharpe

import (
	"fmt"
	"math"

	"edgecheck/domain/core"
	"edgecheck/domain/result"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minObservations below which the estimate is meaningless.
const minObservations = 10

// Input describes one PnL series and its selection context.
type Input struct {
	// Returns is the per-bar PnL series of the reported strategy.
	Returns []float64
	// BarsPerYear annualizes the raw Sharpe for reporting.
	BarsPerYear float64
	// TrialCount estimates how many candidates were searched before this
	// one was reported. More trials deflate harder.
	TrialCount int
}

// Deflate computes the selection-bias-adjusted Sharpe ratio.
//
// The Sharpe variance uses the asymptotic skew/kurtosis-adjusted form
// Var[SR] = (1 - skew*SR + ((kurt-1)/4)*SR^2) / (T-1), so fat tails and skew
// widen the null band relative to the naive i.i.d. Gaussian case. The
// formula is a documented heuristic validated only through the calibration
// harness; changing it requires re-validating calibration.
//
// Degenerate input degrades to NaN with an explicit reason, never a panic.
func Deflate(in Input) result.DeflatedSharpeResult {
	res := result.DeflatedSharpeResult{
		TrialCount:   in.TrialCount,
		Observations: len(in.Returns),
	}

	if len(in.Returns) < minObservations {
		return degrade(res, core.ReasonInsufficientData,
			fmt.Sprintf("need at least %d observations, got %d", minObservations, len(in.Returns)))
	}

	mean, err := stats.Mean(in.Returns)
	if err != nil {
		return degrade(res, core.ReasonInsufficientData, err.Error())
	}
	sd, err := stats.StandardDeviationSample(in.Returns)
	if err != nil || sd < 1e-12 {
		return degrade(res, core.ReasonZeroVariance, "series variance is (near) zero")
	}

	sr := mean / sd
	res.RawSharpe = sr
	if in.BarsPerYear > 0 {
		res.AnnualizedSharpe = sr * math.Sqrt(in.BarsPerYear)
	}

	skew := stat.Skew(in.Returns, nil)
	kurt := stat.ExKurtosis(in.Returns, nil) + 3

	t := float64(len(in.Returns))
	varSR := (1 - skew*sr + (kurt-1)/4*sr*sr) / (t - 1)
	if !(varSR > 0) || math.IsNaN(varSR) {
		return degrade(res, core.ReasonZeroVariance, "non-positive Sharpe variance estimate")
	}
	se := math.Sqrt(varSR)
	res.SharpeStdErr = se

	expMax := 0.0
	if in.TrialCount > 1 {
		expMax = se * math.Sqrt(2*math.Log(float64(in.TrialCount)))
	}
	res.ExpectedMaxNull = expMax

	res.DeflatedSharpe = (sr - expMax) / se
	res.DeflatedProb = distuv.UnitNormal.CDF(res.DeflatedSharpe)
	return res
}

func degrade(res result.DeflatedSharpeResult, reason core.ReasonCode, msg string) result.DeflatedSharpeResult {
	res.RawSharpe = math.NaN()
	res.AnnualizedSharpe = math.NaN()
	res.SharpeStdErr = math.NaN()
	res.ExpectedMaxNull = math.NaN()
	res.DeflatedSharpe = math.NaN()
	res.DeflatedProb = math.NaN()
	res.SkippedReason = reason
	res.Message = msg
	return res
}
