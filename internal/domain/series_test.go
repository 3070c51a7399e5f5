package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSeriesSubsetYears(t *testing.T) {
	ts := TimeSeries{
		Times: []time.Time{
			time.Date(1999, time.December, 31, 23, 0, 0, 0, time.UTC),
			time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2000, time.December, 31, 23, 0, 0, 0, time.UTC),
			time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		Values: []float64{1, 2, 3, 4},
	}

	sub := ts.SubsetYears(2000, 2000)
	assert.Equal(t, []float64{2, 3}, sub.Values)

	// Inclusive at both ends.
	sub = ts.SubsetYears(1999, 2001)
	assert.Equal(t, []float64{1, 2, 3, 4}, sub.Values)

	// No matches and inverted ranges yield empty series, never errors.
	assert.Zero(t, ts.SubsetYears(2005, 2010).Len())
	assert.Zero(t, ts.SubsetYears(2001, 1999).Len())
}

func TestTimeSeriesValidValues(t *testing.T) {
	ts := seriesOf(1, math.NaN(), 3)
	assert.Equal(t, []float64{1, 3}, ts.ValidValues())
}

func TestTimeSeriesMapKeepsTimeAxis(t *testing.T) {
	ts := seriesOf(1, 2, 3)
	doubled := ts.Map(func(v float64) float64 { return 2 * v })

	assert.Equal(t, []float64{2, 4, 6}, doubled.Values)
	require.Len(t, doubled.Times, 3)
	for i := range ts.Times {
		assert.True(t, ts.Times[i].Equal(doubled.Times[i]))
	}
}

func TestTimeSeriesStats(t *testing.T) {
	ts := seriesOf(2, 4, math.NaN(), 6)

	st := ts.Stats()
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 1, st.NaN)
	assert.InDelta(t, 4.0, st.Mean, 1e-12)
	assert.InDelta(t, 2.0, st.Std, 1e-12)
	assert.Equal(t, 2.0, st.Min)
	assert.Equal(t, 6.0, st.Max)
}

func TestTimeSeriesStats_EmptyStaysFinite(t *testing.T) {
	st := seriesOf(math.NaN(), math.NaN()).Stats()

	assert.Equal(t, 0, st.Count)
	assert.Equal(t, 2, st.NaN)
	assert.Zero(t, st.Mean)
	assert.Zero(t, st.Std)
}
