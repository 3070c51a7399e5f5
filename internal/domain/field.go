package domain

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// Location is a site position in decimal degrees.
type Location struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

func (l Location) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", l.Lat, l.Lon)
}

// Field is one physical variable on a regular latitude/longitude grid over
// time, e.g. the zonal wind component at 100 m. Values are stored flat in
// time-major order: the sample at time index t, latitude index j and
// longitude index i lives at Values[(t*len(Lats)+j)*len(Lons)+i].
//
// A merged Field's time axis is strictly increasing. Latitude and longitude
// axes are monotonic in either direction (reanalysis products commonly store
// latitude descending from north to south).
type Field struct {
	Name   string  // variable name, e.g. "u100"
	Height float64 // metres above surface
	Times  []time.Time
	Lats   []float64
	Lons   []float64
	Values []float64
}

// At returns the value at time index t, latitude index j, longitude index i.
func (f *Field) At(t, j, i int) float64 {
	return f.Values[(t*len(f.Lats)+j)*len(f.Lons)+i]
}

// Validate checks the structural invariants: value count matching the
// coordinate axes, monotonic spatial axes, strictly increasing time axis.
func (f *Field) Validate() error {
	if len(f.Times) == 0 || len(f.Lats) == 0 || len(f.Lons) == 0 {
		return fmt.Errorf("field %s: empty coordinate axis: %w", f.Name, ErrConfiguration)
	}
	if want := len(f.Times) * len(f.Lats) * len(f.Lons); len(f.Values) != want {
		return fmt.Errorf("field %s: %d values for %d grid cells: %w",
			f.Name, len(f.Values), want, ErrConfiguration)
	}
	if !monotonic(f.Lats) {
		return fmt.Errorf("field %s: latitude axis not monotonic: %w", f.Name, ErrConfiguration)
	}
	if !monotonic(f.Lons) {
		return fmt.Errorf("field %s: longitude axis not monotonic: %w", f.Name, ErrConfiguration)
	}
	for i := 1; i < len(f.Times); i++ {
		if !f.Times[i].After(f.Times[i-1]) {
			return fmt.Errorf("field %s: time axis not strictly increasing at step %d (%s): %w",
				f.Name, i, f.Times[i].Format(time.RFC3339), ErrConfiguration)
		}
	}
	return nil
}

// SameGrid reports whether two fields share identical spatial axes. Merging
// requires exact agreement; resampling between grids is not supported.
func (f *Field) SameGrid(o *Field) bool {
	return slices.Equal(f.Lats, o.Lats) && slices.Equal(f.Lons, o.Lons)
}

// SubsetYears returns a copy restricted to time steps whose UTC year lies in
// the inclusive [start, end] range. An empty result is valid; whether an
// empty series is usable is decided downstream.
func (f *Field) SubsetYears(start, end int) *Field {
	nCell := len(f.Lats) * len(f.Lons)
	out := &Field{Name: f.Name, Height: f.Height, Lats: slices.Clone(f.Lats), Lons: slices.Clone(f.Lons)}
	for t, when := range f.Times {
		if y := when.UTC().Year(); y < start || y > end {
			continue
		}
		out.Times = append(out.Times, when)
		out.Values = append(out.Values, f.Values[t*nCell:(t+1)*nCell]...)
	}
	return out
}

// SeriesAt extracts the time series at loc by bilinear interpolation of the
// four grid nodes surrounding the location. A location exactly on a node or
// grid line degenerates to the node or edge value. Locations outside the
// grid's coordinate bounds are an error; extrapolation is not supported.
func (f *Field) SeriesAt(loc Location) (TimeSeries, error) {
	j0, wj, ok := axisBracket(f.Lats, loc.Lat)
	if !ok {
		lo, hi := axisRange(f.Lats)
		return TimeSeries{}, fmt.Errorf("field %s: site %s: latitude outside grid range [%g, %g]: %w",
			f.Name, loc, lo, hi, ErrConfiguration)
	}
	i0, wi, ok := axisBracket(f.Lons, loc.Lon)
	if !ok {
		lo, hi := axisRange(f.Lons)
		return TimeSeries{}, fmt.Errorf("field %s: site %s: longitude outside grid range [%g, %g]: %w",
			f.Name, loc, lo, hi, ErrConfiguration)
	}

	j1, i1 := j0, i0
	if len(f.Lats) > 1 {
		j1 = j0 + 1
	}
	if len(f.Lons) > 1 {
		i1 = i0 + 1
	}

	vals := make([]float64, len(f.Times))
	for t := range f.Times {
		v00 := f.At(t, j0, i0)
		v01 := f.At(t, j0, i1)
		v10 := f.At(t, j1, i0)
		v11 := f.At(t, j1, i1)
		lower := v00 + (v01-v00)*wi
		upper := v10 + (v11-v10)*wi
		vals[t] = lower + (upper-lower)*wj
	}
	return TimeSeries{Times: slices.Clone(f.Times), Values: vals}, nil
}

// MergeFields concatenates per-file fields of one variable along the time
// axis and restores chronological order by sorting on the embedded time
// coordinate, so the input file order does not matter. All parts must carry
// the same variable on the same spatial grid. A timestamp appearing in more
// than one part violates the strictly-increasing invariant and is an error.
func MergeFields(parts []*Field) (*Field, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("merge: no input fields: %w", ErrConfiguration)
	}
	base := parts[0]
	for _, p := range parts[1:] {
		if p.Name != base.Name || p.Height != base.Height {
			return nil, fmt.Errorf("merge %s: variable mismatch (%s): %w", base.Name, p.Name, ErrConfiguration)
		}
		if !p.SameGrid(base) {
			return nil, fmt.Errorf("merge %s: spatial grids differ between input files: %w", base.Name, ErrConfiguration)
		}
	}

	nCell := len(base.Lats) * len(base.Lons)
	type step struct {
		when  time.Time
		block []float64
	}
	var steps []step
	for _, p := range parts {
		for t, when := range p.Times {
			steps = append(steps, step{when, p.Values[t*nCell : (t+1)*nCell]})
		}
	}
	slices.SortStableFunc(steps, func(a, b step) int { return a.when.Compare(b.when) })

	merged := &Field{
		Name:   base.Name,
		Height: base.Height,
		Lats:   slices.Clone(base.Lats),
		Lons:   slices.Clone(base.Lons),
		Times:  make([]time.Time, len(steps)),
		Values: make([]float64, 0, len(steps)*nCell),
	}
	for i, s := range steps {
		if i > 0 && !s.when.After(steps[i-1].when) {
			return nil, fmt.Errorf("merge %s: duplicate timestamp %s across input files: %w",
				base.Name, s.when.Format(time.RFC3339), ErrConfiguration)
		}
		merged.Times[i] = s.when
		merged.Values = append(merged.Values, s.block...)
	}
	return merged, nil
}

// axisBracket locates x on a monotonic axis, returning the lower bracket
// index and the fractional position toward index+1 in [0, 1]. Handles both
// ascending and descending axes. ok is false when x lies outside the axis.
func axisBracket(axis []float64, x float64) (idx int, frac float64, ok bool) {
	n := len(axis)
	if n == 0 {
		return 0, 0, false
	}
	if n == 1 {
		return 0, 0, x == axis[0]
	}
	lo, hi := axisRange(axis)
	if x < lo || x > hi {
		return 0, 0, false
	}
	if axis[n-1] > axis[0] { // ascending
		i := sort.Search(n, func(k int) bool { return axis[k] >= x })
		if i == 0 {
			return 0, 0, true
		}
		return i - 1, (x - axis[i-1]) / (axis[i] - axis[i-1]), true
	}
	// Descending: the first index at or below x closes the bracket.
	i := sort.Search(n, func(k int) bool { return axis[k] <= x })
	if i == 0 {
		return 0, 0, true
	}
	return i - 1, (axis[i-1] - x) / (axis[i-1] - axis[i]), true
}

// axisRange returns the low and high ends of a monotonic axis.
func axisRange(axis []float64) (lo, hi float64) {
	if len(axis) == 0 {
		return 0, 0
	}
	lo, hi = axis[0], axis[len(axis)-1]
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// monotonic reports whether values strictly increase or strictly decrease.
func monotonic(axis []float64) bool {
	if len(axis) < 2 {
		return true
	}
	asc := axis[1] > axis[0]
	for i := 1; i < len(axis); i++ {
		if asc && axis[i] <= axis[i-1] {
			return false
		}
		if !asc && axis[i] >= axis[i-1] {
			return false
		}
	}
	return true
}
