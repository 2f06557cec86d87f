package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the rolling window for display.
type Summary struct {
	Count        int       `json:"count"`
	Values       []float64 `json:"values"`
	Mean         float64   `json:"mean"`
	StdDev       float64   `json:"stddev"`
	Min          float64   `json:"min"`
	Max          float64   `json:"max"`
	Range        float64   `json:"range"`
	LogReturns   []float64 `json:"log_returns"`
	RealizedVol  float64   `json:"realized_vol"`
	LastReturnPc float64   `json:"last_return_pct"`
}

// ComputeLogReturns computes r_t = ln(v_t / v_{t-1}). Non-positive values
// yield a zero return. Returns nil for fewer than two values.
func ComputeLogReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility is the sample standard deviation of the last window
// log returns, not annualized. Returns 0 when there are too few returns.
func RealizedVolatility(logReturns []float64, window int) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	return stat.StdDev(logReturns[len(logReturns)-window:], nil)
}

// Summarize builds a Summary; values is copied.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values), Values: append([]float64{}, values...)}
	if len(values) == 0 {
		return s
	}
	s.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		s.StdDev = math.Sqrt(stat.PopVariance(values, nil))
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Range = s.Max - s.Min
	s.LogReturns = ComputeLogReturns(values)
	s.RealizedVol = RealizedVolatility(s.LogReturns, len(s.LogReturns))
	if n := len(values); n > 1 && values[n-2] != 0 {
		s.LastReturnPc = (values[n-1] - values[n-2]) / values[n-2] * 100
	}
	return s
}
