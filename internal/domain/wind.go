package domain

import (
	"fmt"
	"math"
	"slices"
)

// SpeedDirection converts paired wind-component series into speed and
// direction series. Direction follows the meteorological convention: the
// compass bearing the wind blows from, in degrees [0, 360), with 0 = from
// north and 90 = from east. A pure southerly flow (u=0, v=1) therefore reads
// 180, and a pure westerly component (u=1, v=0) reads 270.
//
// The u and v series must share an identical time axis.
func SpeedDirection(u, v TimeSeries) (speed, dir TimeSeries, err error) {
	if !sameTimestamps(u, v) {
		return TimeSeries{}, TimeSeries{}, fmt.Errorf(
			"u/v series timestamps differ (%d vs %d samples): %w", u.Len(), v.Len(), ErrDataQuality)
	}
	speed = TimeSeries{Times: slices.Clone(u.Times), Values: make([]float64, len(u.Values))}
	dir = TimeSeries{Times: slices.Clone(u.Times), Values: make([]float64, len(u.Values))}
	for i := range u.Values {
		speed.Values[i], dir.Values[i] = speedDir(u.Values[i], v.Values[i])
	}
	return speed, dir, nil
}

// speedDir converts one component pair. The negated arguments to Atan2 turn
// the flow vector into its source bearing; NaN components propagate.
func speedDir(u, v float64) (spd, direction float64) {
	spd = math.Hypot(u, v)
	direction = math.Atan2(-u, -v) * 180 / math.Pi
	if direction < 0 {
		direction += 360
	}
	return spd, direction
}
