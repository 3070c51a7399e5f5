package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MinFitSamples is the sample count below which a Weibull fit is considered
// statistically unreliable. The fit itself still runs; callers surface the
// condition as a warning rather than a failure.
const MinFitSamples = 10

// WeibullParams holds a fitted two-parameter Weibull distribution over wind
// speed: shape k and scale λ in m/s.
type WeibullParams struct {
	Shape float64 `json:"shape"`
	Scale float64 `json:"scale"`
}

// FitWeibull fits shape and scale to a wind-speed sample with the
// method-of-moments estimator
//
//	k = (σ/μ)^-1.086
//	λ = μ / Γ(1 + 1/k)
//
// NaN samples are dropped and exact zeros excluded before fitting, since the
// Weibull support is (0, ∞). Negative samples mean corrupted input and fail
// the fit. An input with no positive samples cannot be fitted at all.
// Degenerate outcomes, e.g. a zero-variance sample driving k to infinity,
// are detected and returned as a numerical error instead of bogus parameters.
func FitWeibull(speeds []float64) (WeibullParams, error) {
	valid := make([]float64, 0, len(speeds))
	for _, v := range speeds {
		switch {
		case math.IsNaN(v):
		case v < 0:
			return WeibullParams{}, fmt.Errorf("weibull fit: negative speed %.3f in input: %w", v, ErrDataQuality)
		case v == 0:
		default:
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return WeibullParams{}, fmt.Errorf(
			"weibull fit: no positive samples among %d inputs: %w", len(speeds), ErrDataQuality)
	}

	mean := stat.Mean(valid, nil)
	std := stat.StdDev(valid, nil)
	shape := math.Pow(std/mean, -1.086)
	scale := mean / math.Gamma(1+1/shape)
	if !finitePositive(shape) || !finitePositive(scale) {
		return WeibullParams{}, fmt.Errorf(
			"weibull fit degenerate (shape=%g, scale=%g) from %d samples: %w", shape, scale, len(valid), ErrNumerical)
	}
	return WeibullParams{Shape: shape, Scale: scale}, nil
}

// PDF evaluates the fitted probability density at speed v.
func (p WeibullParams) PDF(v float64) float64 {
	if v < 0 {
		return 0
	}
	return distuv.Weibull{K: p.Shape, Lambda: p.Scale}.Prob(v)
}

// CDF evaluates the cumulative distribution at speed v.
func (p WeibullParams) CDF(v float64) float64 {
	if v < 0 {
		return 0
	}
	return distuv.Weibull{K: p.Shape, Lambda: p.Scale}.CDF(v)
}

// Mean returns the distribution mean λ·Γ(1 + 1/k).
func (p WeibullParams) Mean() float64 {
	return distuv.Weibull{K: p.Shape, Lambda: p.Scale}.Mean()
}

func finitePositive(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x > 0
}
