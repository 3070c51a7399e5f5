package domain

import (
	"fmt"
	"math"
	"slices"
)

// Defaults for the presentation-data builders, matching the conventional
// 16-sector rose and 30-bin speed histogram.
const (
	DefaultRoseSectors   = 16
	DefaultHistogramBins = 30
)

// RoseSector is one directional bin of a wind rose. Sectors start at north
// and proceed clockwise: sector s covers [s·360/n, (s+1)·360/n) degrees.
type RoseSector struct {
	From      float64 `json:"from_deg"` // inclusive
	To        float64 `json:"to_deg"`   // exclusive
	Count     int     `json:"count"`
	Frequency float64 `json:"frequency"`  // fraction of valid direction samples
	MeanSpeed float64 `json:"mean_speed"` // zero when the sector holds no valid speed
}

// WindRose bins a direction series into equal sectors and reports per-sector
// frequencies and mean speeds. The two series must share a time axis.
// Frequencies sum to 1 over the valid direction samples; NaN directions are
// skipped, and NaN speeds are skipped from the sector means only.
func WindRose(dirs, speeds TimeSeries, sectors int) ([]RoseSector, error) {
	if sectors < 1 {
		return nil, fmt.Errorf("wind rose: %d sectors: %w", sectors, ErrConfiguration)
	}
	if !sameTimestamps(dirs, speeds) {
		return nil, fmt.Errorf("wind rose: direction/speed timestamps differ (%d vs %d samples): %w",
			dirs.Len(), speeds.Len(), ErrDataQuality)
	}

	width := 360.0 / float64(sectors)
	out := make([]RoseSector, sectors)
	for s := range out {
		out[s].From = width * float64(s)
		out[s].To = width * float64(s+1)
	}

	speedSums := make([]float64, sectors)
	speedCounts := make([]int, sectors)
	valid := 0
	for i, d := range dirs.Values {
		if math.IsNaN(d) {
			continue
		}
		s := int(math.Mod(d, 360) / width)
		if s < 0 {
			s += sectors
		}
		if s >= sectors { // d == 360 after Mod of an exact multiple
			s = 0
		}
		out[s].Count++
		valid++
		if v := speeds.Values[i]; !math.IsNaN(v) {
			speedSums[s] += v
			speedCounts[s]++
		}
	}

	for s := range out {
		if valid > 0 {
			out[s].Frequency = float64(out[s].Count) / float64(valid)
		}
		if speedCounts[s] > 0 {
			out[s].MeanSpeed = speedSums[s] / float64(speedCounts[s])
		}
	}
	return out, nil
}

// HistogramBin is one bin of a density-normalised speed histogram.
type HistogramBin struct {
	Lower   float64 `json:"lower"` // inclusive
	Upper   float64 `json:"upper"` // exclusive, except the last bin
	Count   int     `json:"count"`
	Density float64 `json:"density"` // count / (total · width); densities × widths sum to 1
}

// SpeedHistogram bins the valid samples of a speed series into equal-width
// bins spanning the sample range, density-normalised so a fitted probability
// density can be overlaid directly. The maximum sample lands in the last bin.
func SpeedHistogram(speeds TimeSeries, bins int) ([]HistogramBin, error) {
	if bins < 1 {
		return nil, fmt.Errorf("histogram: %d bins: %w", bins, ErrConfiguration)
	}
	valid := speeds.ValidValues()
	if len(valid) == 0 {
		return nil, fmt.Errorf("histogram: no valid speed samples among %d: %w",
			speeds.Len(), ErrDataQuality)
	}

	lo, hi := slices.Min(valid), slices.Max(valid)
	span := hi - lo
	if span == 0 {
		span = 1 // constant series: one unit-width bin holds everything
	}
	width := span / float64(bins)

	out := make([]HistogramBin, bins)
	for b := range out {
		out[b].Lower = lo + width*float64(b)
		out[b].Upper = lo + width*float64(b+1)
	}
	for _, v := range valid {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		out[b].Count++
	}
	norm := float64(len(valid)) * width
	for b := range out {
		out[b].Density = float64(out[b].Count) / norm
	}
	return out, nil
}
