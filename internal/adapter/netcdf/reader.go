// Package netcdf loads and writes gridded wind fields in classic-format
// NetCDF, the layout ERA5 reanalysis extracts ship in. Wind components
// are identified by name (u10, v10, u100, ...), coordinates by the
// time/latitude/longitude variables, and packed variables are unpacked
// through their scale_factor and add_offset attributes.
package netcdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/tailvane/windresource/internal/domain"
)

// windVarPattern matches component variable names such as u10 or v100.
// The digits encode the measurement height in metres above ground.
var windVarPattern = regexp.MustCompile(`^([uv])(\d+)$`)

// Reader loads wind component fields from one or more NetCDF files and
// merges them into a single Dataset along the time axis.
// It implements pipeline.DatasetReader.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a dataset reader.
func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadDataset loads every path, merges per-variable fields along time,
// and validates the result. Files may be given in any order; the merged
// time axis is sorted by the embedded timestamps. All files must cover
// the same grid and the same variable set.
func (r *Reader) ReadDataset(ctx context.Context, paths []string) (*domain.Dataset, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no input files given", domain.ErrConfiguration)
	}

	parts := make(map[string][]*domain.Field)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := r.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		for name, f := range fields {
			parts[name] = append(parts[name], f)
		}
	}

	ds := &domain.Dataset{Fields: make(map[string]*domain.Field, len(parts))}
	for name, fs := range parts {
		if len(fs) != len(paths) {
			return nil, fmt.Errorf("%w: variable %s present in %d of %d files",
				domain.ErrConfiguration, name, len(fs), len(paths))
		}
		merged, err := domain.MergeFields(fs)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", name, err)
		}
		ds.Fields[name] = merged
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	first, last, _ := ds.TimeSpan()
	r.logger.Info("dataset loaded",
		"files", len(paths),
		"variables", ds.VariableNames(),
		"steps", ds.Steps(),
		"from", first,
		"to", last,
	)
	return ds, nil
}

// readFile reads all wind component variables from a single file.
func (r *Reader) readFile(path string) (map[string]*domain.Field, error) {
	nc, cleanup, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	lats, err := readAxis(nc, "latitude", "lat")
	if err != nil {
		return nil, err
	}
	lons, err := readAxis(nc, "longitude", "lon")
	if err != nil {
		return nil, err
	}
	times, err := readTimeAxis(nc)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]*domain.Field)
	for _, v := range nc.Header.Variables() {
		m := windVarPattern.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		height, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %s: bad height suffix: %v", domain.ErrConfiguration, v, err)
		}
		values, err := readValues(nc, v, len(times), len(lats), len(lons))
		if err != nil {
			return nil, err
		}
		fields[v] = &domain.Field{
			Name:   v,
			Height: height,
			Times:  slices.Clone(times),
			Lats:   slices.Clone(lats),
			Lons:   slices.Clone(lons),
			Values: values,
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no wind component variables (u10, v10, u100, ...) among %v",
			domain.ErrConfiguration, nc.Header.Variables())
	}

	r.logger.Debug("file read",
		"path", filepath.Base(path),
		"variables", len(fields),
		"steps", len(times),
		"grid", fmt.Sprintf("%dx%d", len(lats), len(lons)),
	)
	return fields, nil
}

// Open gives raw header and variable access to a NetCDF file,
// transparently decompressing .gz and .zst input. The close function
// releases the file and any temporary spool behind it.
func Open(path string) (*cdf.File, func(), error) {
	f, cleanup, err := openNetCDF(path)
	if err != nil {
		return nil, nil, err
	}
	nc, err := cdf.Open(f)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("%w: not a classic NetCDF file: %v", domain.ErrConfiguration, err)
	}
	return nc, cleanup, nil
}

// openNetCDF opens path for reading, transparently decompressing .gz
// and .zst archives into a temporary file first. The NetCDF reader
// seeks, so compressed input cannot be streamed directly.
func openNetCDF(path string) (*os.File, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		defer f.Close()
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()
		return spool(zr)
	case strings.HasSuffix(path, ".zst"):
		defer f.Close()
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd: %w", err)
		}
		defer zr.Close()
		return spool(zr)
	default:
		return f, func() { f.Close() }, nil
	}
}

// spool copies decompressed content into a temporary file and rewinds it.
func spool(src io.Reader) (*os.File, func(), error) {
	tmp, err := os.CreateTemp("", "windresource-*.nc")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	if _, err := io.Copy(tmp, src); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("decompress: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, err
	}
	return tmp, cleanup, nil
}

// readAxis returns the first coordinate variable matching one of names,
// widened to float64.
func readAxis(nc *cdf.File, names ...string) ([]float64, error) {
	for _, name := range names {
		if !hasVariable(nc, name) {
			continue
		}
		vals, err := readFloats(nc, name)
		if err != nil {
			return nil, fmt.Errorf("coordinate %s: %w", name, err)
		}
		return vals, nil
	}
	return nil, fmt.Errorf("%w: no %s coordinate variable", domain.ErrConfiguration, names[0])
}

// readTimeAxis reads the time coordinate and converts it to concrete
// timestamps using the CF units attribute, for example
// "hours since 1900-01-01 00:00:00.0".
func readTimeAxis(nc *cdf.File) ([]time.Time, error) {
	if !hasVariable(nc, "time") {
		return nil, fmt.Errorf("%w: no time coordinate variable", domain.ErrConfiguration)
	}
	units, _ := nc.Header.GetAttribute("time", "units").(string)
	step, epoch, err := parseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	raw, err := readFloats(nc, "time")
	if err != nil {
		return nil, err
	}
	stepMillis := float64(step.Milliseconds())
	times := make([]time.Time, len(raw))
	for i, v := range raw {
		ms := math.Round(v * stepMillis)
		times[i] = epoch.Add(time.Duration(ms) * time.Millisecond)
	}
	return times, nil
}

// parseTimeUnits splits a CF time units string such as
// "hours since 1900-01-01 00:00:00.0" into a step duration and an epoch.
func parseTimeUnits(units string) (time.Duration, time.Time, error) {
	unit, rest, found := strings.Cut(units, " since ")
	if !found {
		return 0, time.Time{}, fmt.Errorf("%w: time units %q not of the form \"<unit> since <epoch>\"",
			domain.ErrConfiguration, units)
	}
	var step time.Duration
	switch strings.TrimSpace(unit) {
	case "seconds":
		step = time.Second
	case "minutes":
		step = time.Minute
	case "hours":
		step = time.Hour
	case "days":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, fmt.Errorf("%w: unsupported time unit %q", domain.ErrConfiguration, unit)
	}
	epoch, err := parseEpoch(strings.TrimSpace(rest))
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: time epoch %q: %v", domain.ErrConfiguration, rest, err)
	}
	return step, epoch, nil
}

// parseEpoch accepts the epoch timestamp formats seen in reanalysis
// products. Timestamps without a zone are taken as UTC.
func parseEpoch(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.0",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp")
}

// readValues reads one wind component variable, applies scale_factor
// and add_offset packing, and maps fill values to NaN.
func readValues(nc *cdf.File, name string, nt, nlat, nlon int) ([]float64, error) {
	dims := nc.Header.Lengths(name)
	want := []int{nt, nlat, nlon}
	if !slices.Equal(dims, want) {
		return nil, fmt.Errorf("%w: variable %s has shape %v, want %v (time, latitude, longitude)",
			domain.ErrConfiguration, name, dims, want)
	}
	raw, err := readFloats(nc, name)
	if err != nil {
		return nil, err
	}

	scale, ok := attrFloat(nc, name, "scale_factor")
	if !ok {
		scale = 1
	}
	offset, ok := attrFloat(nc, name, "add_offset")
	if !ok {
		offset = 0
	}
	fill, hasFill := attrFloat(nc, name, "_FillValue")
	miss, hasMiss := attrFloat(nc, name, "missing_value")

	for i, v := range raw {
		if (hasFill && v == fill) || (hasMiss && v == miss) || math.IsNaN(v) {
			raw[i] = math.NaN()
			continue
		}
		raw[i] = v*scale + offset
	}
	return raw, nil
}

// readFloats reads an entire variable and widens it to float64.
func readFloats(nc *cdf.File, name string) ([]float64, error) {
	n := 1
	for _, d := range nc.Header.Lengths(name) {
		n *= d
	}
	r := nc.Reader(name, nil, nil)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	out := make([]float64, n)
	switch vals := buf.(type) {
	case []int8:
		for i, v := range vals {
			out[i] = float64(v)
		}
	case []int16:
		for i, v := range vals {
			out[i] = float64(v)
		}
	case []int32:
		for i, v := range vals {
			out[i] = float64(v)
		}
	case []float32:
		for i, v := range vals {
			out[i] = float64(v)
		}
	case []float64:
		copy(out, vals)
	default:
		return nil, fmt.Errorf("%w: variable %s has unsupported type %T", domain.ErrConfiguration, name, buf)
	}
	return out, nil
}

// attrFloat returns a numeric attribute widened to float64.
func attrFloat(nc *cdf.File, varName, attr string) (float64, bool) {
	switch v := nc.Header.GetAttribute(varName, attr).(type) {
	case []float64:
		if len(v) > 0 {
			return v[0], true
		}
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	case []int16:
		if len(v) > 0 {
			return float64(v[0]), true
		}
	}
	return 0, false
}

func hasVariable(nc *cdf.File, name string) bool {
	return slices.Contains(nc.Header.Variables(), name)
}
