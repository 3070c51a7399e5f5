package domain

import (
	"fmt"
	"slices"
	"time"
)

// Dataset is the merged collection of wind-component fields keyed by variable
// name (u10, v10, u100, v100, ...). It is created once by the loader and
// read-only afterwards.
type Dataset struct {
	Fields map[string]*Field
}

// UV returns the u- and v-component fields for one reference height.
func (d *Dataset) UV(height float64) (u, v *Field, err error) {
	u = d.Fields[fmt.Sprintf("u%g", height)]
	v = d.Fields[fmt.Sprintf("v%g", height)]
	if u == nil || v == nil {
		return nil, nil, fmt.Errorf("no u/v component pair at %g m (have %v): %w",
			height, d.VariableNames(), ErrConfiguration)
	}
	return u, v, nil
}

// Heights lists the reference heights for which both wind components are
// present, ascending.
func (d *Dataset) Heights() []float64 {
	var hs []float64
	for name, f := range d.Fields {
		if len(name) == 0 || name[0] != 'u' {
			continue
		}
		if d.Fields["v"+name[1:]] != nil {
			hs = append(hs, f.Height)
		}
	}
	slices.Sort(hs)
	return hs
}

// VariableNames lists the variable names in the dataset, sorted.
func (d *Dataset) VariableNames() []string {
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TimeSpan returns the first and last timestamps of the merged time axis.
func (d *Dataset) TimeSpan() (first, last time.Time, ok bool) {
	for _, f := range d.Fields {
		if len(f.Times) == 0 {
			return time.Time{}, time.Time{}, false
		}
		return f.Times[0], f.Times[len(f.Times)-1], true
	}
	return time.Time{}, time.Time{}, false
}

// Steps returns the number of time steps in the merged time axis.
func (d *Dataset) Steps() int {
	for _, f := range d.Fields {
		return len(f.Times)
	}
	return 0
}

// SubsetYears restricts every field to the inclusive [start, end] year range.
func (d *Dataset) SubsetYears(start, end int) *Dataset {
	out := &Dataset{Fields: make(map[string]*Field, len(d.Fields))}
	for name, f := range d.Fields {
		out.Fields[name] = f.SubsetYears(start, end)
	}
	return out
}

// Validate checks every field's structural invariants and that all fields
// share one spatial grid and one time axis.
func (d *Dataset) Validate() error {
	if len(d.Fields) == 0 {
		return fmt.Errorf("dataset has no fields: %w", ErrConfiguration)
	}
	var base *Field
	for _, name := range d.VariableNames() {
		f := d.Fields[name]
		if err := f.Validate(); err != nil {
			return err
		}
		if base == nil {
			base = f
			continue
		}
		if !f.SameGrid(base) {
			return fmt.Errorf("fields %s and %s on different spatial grids: %w", base.Name, f.Name, ErrConfiguration)
		}
		if !slices.EqualFunc(f.Times, base.Times, time.Time.Equal) {
			return fmt.Errorf("fields %s and %s on different time axes: %w", base.Name, f.Name, ErrConfiguration)
		}
	}
	return nil
}
