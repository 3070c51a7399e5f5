// Package turbine provides reference turbine power curves and loads
// custom curves from CSV files.
package turbine

import (
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/tailvane/windresource/internal/domain"
)

// Turbine couples a power curve with the hub height the curve applies
// at. Wind speeds are extrapolated to the hub height before the curve
// is evaluated.
type Turbine struct {
	Curve     domain.PowerCurve
	HubHeight float64 // metres above ground
}

// Reference machines. Parameters follow the public NREL 5-MW and IEA
// 15-MW reference turbine definitions, with the partial-load region
// approximated by a cubic ramp.
var builtins = map[string]Turbine{
	"nrel-5mw": {
		Curve:     rampCurve("nrel-5mw", 3, 11.4, 25, 5000),
		HubHeight: 90,
	},
	"iea-15mw": {
		Curve:     rampCurve("iea-15mw", 3, 10.59, 25, 15000),
		HubHeight: 150,
	},
}

// Builtin returns the named reference turbine.
func Builtin(name string) (Turbine, error) {
	t, ok := builtins[name]
	if !ok {
		return Turbine{}, fmt.Errorf("%w: unknown turbine %q (builtin: %s)",
			domain.ErrConfiguration, name, strings.Join(BuiltinNames(), ", "))
	}
	return t, nil
}

// BuiltinNames lists the reference turbines in sorted order.
func BuiltinNames() []string {
	return slices.Sorted(maps.Keys(builtins))
}

// LoadCSV reads a power curve from a CSV file with a header row. The
// wind speed column (m/s) is matched by a header containing "speed",
// the power column (kW) by one containing "power"; other columns are
// ignored. The curve is named after the file.
func LoadCSV(path string) (domain.PowerCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.PowerCurve{}, fmt.Errorf("open power curve: %w", err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.TrimLeadingSpace = true
	records, err := rd.ReadAll()
	if err != nil {
		return domain.PowerCurve{}, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, filepath.Base(path), err)
	}
	if len(records) < 2 {
		return domain.PowerCurve{}, fmt.Errorf("%w: power curve %s has no data rows", domain.ErrConfiguration, filepath.Base(path))
	}

	speedCol, powerCol := -1, -1
	for i, h := range records[0] {
		name := strings.ToLower(h)
		switch {
		case speedCol < 0 && strings.Contains(name, "speed"):
			speedCol = i
		case powerCol < 0 && strings.Contains(name, "power"):
			powerCol = i
		}
	}
	if speedCol < 0 || powerCol < 0 {
		return domain.PowerCurve{}, fmt.Errorf("%w: power curve %s: header must name a wind speed and a power column, got %v",
			domain.ErrConfiguration, filepath.Base(path), records[0])
	}

	curve := domain.PowerCurve{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Speeds: make([]float64, 0, len(records)-1),
		Powers: make([]float64, 0, len(records)-1),
	}
	for row, rec := range records[1:] {
		speed, err := strconv.ParseFloat(rec[speedCol], 64)
		if err != nil {
			return domain.PowerCurve{}, fmt.Errorf("%w: power curve %s row %d: bad wind speed %q",
				domain.ErrConfiguration, filepath.Base(path), row+2, rec[speedCol])
		}
		power, err := strconv.ParseFloat(rec[powerCol], 64)
		if err != nil {
			return domain.PowerCurve{}, fmt.Errorf("%w: power curve %s row %d: bad power %q",
				domain.ErrConfiguration, filepath.Base(path), row+2, rec[powerCol])
		}
		curve.Speeds = append(curve.Speeds, speed)
		curve.Powers = append(curve.Powers, power)
	}
	if err := curve.Validate(); err != nil {
		return domain.PowerCurve{}, err
	}
	return curve, nil
}

// rampCurve builds a curve with zero power below cut-in, a cubic ramp
// from cut-in to rated speed, and constant rated power up to cut-out.
func rampCurve(name string, cutIn, rated, cutOut, ratedPower float64) domain.PowerCurve {
	speeds := []float64{cutIn}
	powers := []float64{0}
	for v := cutIn + 0.5; v < rated; v += 0.5 {
		frac := (v*v*v - cutIn*cutIn*cutIn) / (rated*rated*rated - cutIn*cutIn*cutIn)
		speeds = append(speeds, v)
		powers = append(powers, ratedPower*frac)
	}
	speeds = append(speeds, rated, cutOut)
	powers = append(powers, ratedPower, ratedPower)
	return domain.PowerCurve{Name: name, Speeds: speeds, Powers: powers}
}
