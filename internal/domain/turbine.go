package domain

import (
	"fmt"
	"math"
	"sort"
)

// PowerCurve maps wind speed (m/s) to electrical power (kW) for one turbine
// model. It is an immutable lookup table: linear interpolation between
// tabulated points, zero outside the tabulated speed range. Cut-in, rated
// and cut-out behaviour is encoded entirely by the table.
type PowerCurve struct {
	Name   string    `json:"name"`
	Speeds []float64 `json:"speeds"`
	Powers []float64 `json:"powers"` // kW
}

// Validate checks the table invariants: matching lengths, at least two
// points, strictly increasing speeds, no negative power.
func (c PowerCurve) Validate() error {
	if len(c.Speeds) != len(c.Powers) {
		return fmt.Errorf("power curve %q: %d speeds vs %d powers: %w",
			c.Name, len(c.Speeds), len(c.Powers), ErrConfiguration)
	}
	if len(c.Speeds) < 2 {
		return fmt.Errorf("power curve %q: need at least two points, got %d: %w",
			c.Name, len(c.Speeds), ErrConfiguration)
	}
	for i, s := range c.Speeds {
		if i > 0 && s <= c.Speeds[i-1] {
			return fmt.Errorf("power curve %q: speeds not strictly increasing at index %d: %w",
				c.Name, i, ErrConfiguration)
		}
		if c.Powers[i] < 0 {
			return fmt.Errorf("power curve %q: negative power %g at %g m/s: %w",
				c.Name, c.Powers[i], s, ErrConfiguration)
		}
	}
	return nil
}

// PowerAt returns the power output at speed v in kW: linear interpolation
// between the surrounding table points, 0 outside the tabulated range. NaN
// speeds yield NaN so missing samples stay visible to callers.
func (c PowerCurve) PowerAt(v float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	n := len(c.Speeds)
	if n == 0 || v < c.Speeds[0] || v > c.Speeds[n-1] {
		return 0
	}
	i := sort.SearchFloat64s(c.Speeds, v)
	if i < n && c.Speeds[i] == v {
		return c.Powers[i]
	}
	// v lies strictly between Speeds[i-1] and Speeds[i].
	t := (v - c.Speeds[i-1]) / (c.Speeds[i] - c.Speeds[i-1])
	return c.Powers[i-1] + t*(c.Powers[i]-c.Powers[i-1])
}

// MaxPower returns the largest tabulated power, the rated power for a
// conventional curve.
func (c PowerCurve) MaxPower() float64 {
	var maxP float64
	for _, p := range c.Powers {
		if p > maxP {
			maxP = p
		}
	}
	return maxP
}

// CutOut returns the largest tabulated speed; the turbine produces nothing
// beyond it.
func (c PowerCurve) CutOut() float64 {
	if len(c.Speeds) == 0 {
		return 0
	}
	return c.Speeds[len(c.Speeds)-1]
}
