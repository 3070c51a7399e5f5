package domain

import (
	"fmt"
	"math"
	"slices"
)

// DefaultShearExponent is the fixed power-law exponent used when only one
// reference height is available. 0.14 is the conventional neutral-stability
// open-terrain value.
const DefaultShearExponent = 0.14

// ShearExponent estimates the power-law exponent implied by speeds at two
// heights: α = ln(v2/v1) / ln(h2/h1). Non-positive speeds make the exponent
// undefined; NaN is returned and propagates so downstream fitting can filter
// affected samples instead of aborting.
func ShearExponent(v1, v2, h1, h2 float64) float64 {
	if v1 <= 0 || v2 <= 0 {
		return math.NaN()
	}
	return math.Log(v2/v1) / math.Log(h2/h1)
}

// ExtrapolateBetween estimates the speed series at a target height from two
// reference-height series, applying per time step the shear exponent implied
// by that step's speed pair. Samples where either reference speed is
// non-positive come out NaN.
//
// The computation uses the direct speed-ratio form
//
//	v(z) = v1 · (v2/v1)^(ln(z/h1)/ln(h2/h1))
//
// which is algebraically identical to recomputing α first and numerically
// more stable; both forms agree to floating-point tolerance.
func ExtrapolateBetween(lower, upper TimeSeries, h1, h2, target float64) (TimeSeries, error) {
	if h1 <= 0 || h2 <= 0 || h1 == h2 {
		return TimeSeries{}, fmt.Errorf("reference heights %g m and %g m: %w", h1, h2, ErrConfiguration)
	}
	if target <= 0 {
		return TimeSeries{}, fmt.Errorf("target height %g m: %w", target, ErrConfiguration)
	}
	if !sameTimestamps(lower, upper) {
		return TimeSeries{}, fmt.Errorf(
			"reference series timestamps differ (%d vs %d samples): %w", lower.Len(), upper.Len(), ErrDataQuality)
	}

	exponent := math.Log(target/h1) / math.Log(h2/h1)
	out := TimeSeries{Times: slices.Clone(lower.Times), Values: make([]float64, len(lower.Values))}
	for i := range lower.Values {
		v1, v2 := lower.Values[i], upper.Values[i]
		if v1 <= 0 || v2 <= 0 {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = v1 * math.Pow(v2/v1, exponent)
	}
	return out, nil
}

// ExtrapolatePowerLaw scales a single reference-height series to the target
// height with a fixed exponent: v(z) = v_ref · (z/h_ref)^α. NaN samples
// propagate.
func ExtrapolatePowerLaw(ref TimeSeries, refHeight, target, alpha float64) (TimeSeries, error) {
	if refHeight <= 0 {
		return TimeSeries{}, fmt.Errorf("reference height %g m: %w", refHeight, ErrConfiguration)
	}
	if target <= 0 {
		return TimeSeries{}, fmt.Errorf("target height %g m: %w", target, ErrConfiguration)
	}
	ratio := math.Pow(target/refHeight, alpha)
	return ref.Map(func(v float64) float64 { return v * ratio }), nil
}
