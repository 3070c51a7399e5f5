package netcdf

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ctessum/cdf"

	"github.com/tailvane/windresource/internal/domain"
)

// timeUnits is the CF units string written for the time coordinate,
// matching the ERA5 convention.
const timeUnits = "hours since 1900-01-01 00:00:00.0"

// fillValue marks missing samples in packed component variables.
const fillValue = -32767

var era5Epoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// WriteDataset writes ds to a classic-format NetCDF file that
// ReadDataset can load back. Wind components are packed to 16-bit
// integers through scale_factor and add_offset, the layout ERA5
// extracts use, so values round-trip with a small quantization error.
func WriteDataset(path string, ds *domain.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	names := ds.VariableNames()
	if len(names) == 0 {
		return fmt.Errorf("%w: dataset has no variables", domain.ErrConfiguration)
	}
	ref := ds.Fields[names[0]]
	nt, nlat, nlon := len(ref.Times), len(ref.Lats), len(ref.Lons)

	h := cdf.NewHeader(
		[]string{"time", "latitude", "longitude"},
		[]int{nt, nlat, nlon},
	)
	h.AddAttribute("", "Conventions", "CF-1.6")
	h.AddAttribute("", "history", domain.Now().UTC().Format("2006-01-02 15:04:05")+" GMT by windresource")

	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", timeUnits)
	h.AddAttribute("time", "long_name", "time")

	h.AddVariable("latitude", []string{"latitude"}, []float64{0})
	h.AddAttribute("latitude", "units", "degrees_north")
	h.AddAttribute("latitude", "long_name", "latitude")

	h.AddVariable("longitude", []string{"longitude"}, []float64{0})
	h.AddAttribute("longitude", "units", "degrees_east")
	h.AddAttribute("longitude", "long_name", "longitude")

	packs := make(map[string]packing, len(names))
	for _, name := range names {
		f := ds.Fields[name]
		p := packFor(f.Values)
		packs[name] = p

		h.AddVariable(name, []string{"time", "latitude", "longitude"}, []int16{0})
		h.AddAttribute(name, "scale_factor", []float64{p.scale})
		h.AddAttribute(name, "add_offset", []float64{p.offset})
		h.AddAttribute(name, "_FillValue", []int16{fillValue})
		h.AddAttribute(name, "missing_value", []int16{fillValue})
		h.AddAttribute(name, "units", "m s**-1")
		h.AddAttribute(name, "long_name",
			fmt.Sprintf("%g metre %s wind component", f.Height, strings.ToUpper(name[:1])))
	}

	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("netcdf header: %v", errs[0])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	nc, err := cdf.Create(f, h)
	if err != nil {
		f.Close()
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := writeVar(nc, "time", encodeTimes(ref.Times), []int{nt}); err != nil {
		f.Close()
		return err
	}
	if err := writeVar(nc, "latitude", ref.Lats, []int{nlat}); err != nil {
		f.Close()
		return err
	}
	if err := writeVar(nc, "longitude", ref.Lons, []int{nlon}); err != nil {
		f.Close()
		return err
	}
	for _, name := range names {
		field := ds.Fields[name]
		if err := writeVar(nc, name, packs[name].pack(field.Values), []int{nt, nlat, nlon}); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func writeVar(nc *cdf.File, name string, data any, dims []int) error {
	w := nc.Writer(name, make([]int, len(dims)), dims)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// encodeTimes converts timestamps to fractional hours since the 1900
// epoch.
func encodeTimes(times []time.Time) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = t.Sub(era5Epoch).Hours()
	}
	return out
}

// packing maps float64 samples into the signed 16-bit span, leaving the
// fill value free for missing samples.
type packing struct {
	scale, offset float64
}

// packFor chooses scale and offset from the finite range of values.
func packFor(values []float64) packing {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi || lo == hi {
		// All missing, or a constant field. Packed samples become zero
		// and unpack to the offset.
		offset := 0.0
		if lo <= hi {
			offset = lo
		}
		return packing{scale: 1, offset: offset}
	}
	return packing{scale: (hi - lo) / 65532, offset: (hi + lo) / 2}
}

func (p packing) pack(values []float64) []int16 {
	out := make([]int16, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = fillValue
			continue
		}
		out[i] = int16(math.Round((v - p.offset) / p.scale))
	}
	return out
}
