package bootstrap

import (
	"math"

	"edgecheck/domain/core"

	"github.com/montanaflynn/stats"
)

// Statistic recomputes one hypothesis' scalar statistic from a (resampled)
// series. Implementations must be pure and must return NaN rather than panic
// on degenerate input.
type Statistic func(values []float64) float64

// MeanStat is the sample mean.
func MeanStat(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return math.NaN()
	}
	return m
}

// SharpeStat is the per-bar Sharpe ratio, mean over sample standard
// deviation. Zero-variance input yields NaN.
func SharpeStat(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return math.NaN()
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil || sd == 0 {
		return math.NaN()
	}
	return m / sd
}

// TStat is the one-sample t statistic against a zero mean.
func TStat(values []float64) float64 {
	sr := SharpeStat(values)
	if math.IsNaN(sr) {
		return sr
	}
	return sr * math.Sqrt(float64(len(values)))
}

// ParseStatistic maps a config name to a Statistic. Unknown names are a hard
// misconfiguration.
func ParseStatistic(name string) (Statistic, error) {
	switch name {
	case "mean":
		return MeanStat, nil
	case "sharpe":
		return SharpeStat, nil
	case "t_stat":
		return TStat, nil
	default:
		return nil, core.NewMisconfiguredError("statistic", "unknown statistic "+name)
	}
}
