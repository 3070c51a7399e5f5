package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAEP_NonNegativeAndFinite(t *testing.T) {
	params := WeibullParams{Shape: 2.1, Scale: 9.5}

	aep, err := AEP(params, testCurve(), 0)
	require.NoError(t, err)
	assert.Greater(t, aep, 0.0)
	assert.False(t, math.IsInf(aep, 0))

	// Energy cannot exceed running at rated power all year.
	assert.Less(t, aep, testCurve().MaxPower()*HoursPerYear/1000)
}

func TestAEP_ZeroCurveGivesZero(t *testing.T) {
	flat := PowerCurve{Name: "null", Speeds: []float64{0, 30}, Powers: []float64{0, 0}}

	aep, err := AEP(WeibullParams{Shape: 2, Scale: 8}, flat, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, aep)
}

func TestAEP_StableUnderResolutionDoubling(t *testing.T) {
	params := WeibullParams{Shape: 2.0, Scale: 8.0}

	coarse, err := AEP(params, testCurve(), 0.1)
	require.NoError(t, err)
	fine, err := AEP(params, testCurve(), 0.05)
	require.NoError(t, err)

	require.Greater(t, coarse, 0.0)
	relDiff := math.Abs(fine-coarse) / coarse
	assert.Less(t, relDiff, 1e-3, "doubling resolution moved AEP by %.4f%%", relDiff*100)
}

func TestAEP_MatchesAnalyticConstantPowerCase(t *testing.T) {
	// A flat 1000 kW curve over [0, 25] m/s turns the integral into
	// 1000 · CDF(25), so AEP = 8760 · CDF(25) MWh.
	flat := PowerCurve{Name: "flat", Speeds: []float64{0, 25}, Powers: []float64{1000, 1000}}
	params := WeibullParams{Shape: 2, Scale: 8}

	aep, err := AEP(params, flat, 0.01)
	require.NoError(t, err)

	want := HoursPerYear * params.CDF(25)
	assert.InEpsilon(t, want, aep, 1e-3)
}

func TestAEP_InvalidInputs(t *testing.T) {
	_, err := AEP(WeibullParams{Shape: math.NaN(), Scale: 8}, testCurve(), 0)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = AEP(WeibullParams{Shape: 2, Scale: 0}, testCurve(), 0)
	assert.ErrorIs(t, err, ErrConfiguration)

	broken := PowerCurve{Name: "bad", Speeds: []float64{5}, Powers: []float64{100}}
	_, err = AEP(WeibullParams{Shape: 2, Scale: 8}, broken, 0)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAEPFromSeries_MeanPowerScaledToYear(t *testing.T) {
	// Speeds 5 and 10 m/s map to 300 and 1600 kW on the test curve.
	speeds := seriesOf(5, 10)

	aep, err := AEPFromSeries(speeds, testCurve())
	require.NoError(t, err)

	meanKW := (300.0 + 1600.0) / 2
	assert.InDelta(t, meanKW*HoursPerYear/1000, aep, 1e-9)
}

func TestAEPFromSeries_SkipsNaNSamples(t *testing.T) {
	speeds := seriesOf(5, math.NaN(), 10)

	aep, err := AEPFromSeries(speeds, testCurve())
	require.NoError(t, err)

	meanKW := (300.0 + 1600.0) / 2
	assert.InDelta(t, meanKW*HoursPerYear/1000, aep, 1e-9)
}

func TestAEPFromSeries_EmptySeriesIsDataError(t *testing.T) {
	_, err := AEPFromSeries(TimeSeries{}, testCurve())
	assert.ErrorIs(t, err, ErrDataQuality)

	_, err = AEPFromSeries(seriesOf(math.NaN(), math.NaN()), testCurve())
	assert.ErrorIs(t, err, ErrDataQuality)
}
