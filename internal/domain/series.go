package domain

import (
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TimeSeries is an ordered sequence of (timestamp, value) samples produced by
// interpolation or derived computation. Timestamps mirror the source field's
// time axis exactly; there is no resampling.
type TimeSeries struct {
	Times  []time.Time
	Values []float64
}

// Len returns the number of samples.
func (s TimeSeries) Len() int { return len(s.Values) }

// SubsetYears returns the samples whose UTC year lies in the inclusive
// [start, end] range, preserving order. An empty result is not an error.
func (s TimeSeries) SubsetYears(start, end int) TimeSeries {
	var out TimeSeries
	for i, when := range s.Times {
		if y := when.UTC().Year(); y < start || y > end {
			continue
		}
		out.Times = append(out.Times, when)
		out.Values = append(out.Values, s.Values[i])
	}
	return out
}

// ValidValues returns the non-NaN values in order.
func (s TimeSeries) ValidValues() []float64 {
	out := make([]float64, 0, len(s.Values))
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Map returns a new series with fn applied to every value, keeping the time
// axis.
func (s TimeSeries) Map(fn func(float64) float64) TimeSeries {
	out := TimeSeries{Times: slices.Clone(s.Times), Values: make([]float64, len(s.Values))}
	for i, v := range s.Values {
		out.Values[i] = fn(v)
	}
	return out
}

// sameTimestamps reports whether two series share an identical time axis.
func sameTimestamps(a, b TimeSeries) bool {
	if len(a.Times) != len(b.Times) || len(a.Values) != len(b.Values) {
		return false
	}
	return slices.EqualFunc(a.Times, b.Times, time.Time.Equal)
}

// SeriesStats summarises a series over its valid (non-NaN) samples. All
// moments are zero, not NaN, when no valid sample exists, so the struct stays
// JSON-encodable; Count tells the two cases apart.
type SeriesStats struct {
	Count int     `json:"count"` // valid samples
	NaN   int     `json:"nan"`   // samples dropped as NaN
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Stats computes summary statistics over the valid samples.
func (s TimeSeries) Stats() SeriesStats {
	valid := s.ValidValues()
	st := SeriesStats{Count: len(valid), NaN: len(s.Values) - len(valid)}
	if len(valid) == 0 {
		return st
	}
	st.Mean = stat.Mean(valid, nil)
	if len(valid) > 1 {
		st.Std = stat.StdDev(valid, nil)
	}
	st.Min = slices.Min(valid)
	st.Max = slices.Max(valid)
	return st
}
