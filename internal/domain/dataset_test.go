package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset(times []time.Time) *Dataset {
	block := []float64{1, 2, 3, 4}
	blocks := make([][]float64, len(times))
	for i := range blocks {
		blocks[i] = block
	}
	d := &Dataset{Fields: map[string]*Field{}}
	for _, name := range []string{"u10", "v10", "u100", "v100"} {
		f := makeField(name, times, blocks...)
		if name == "u10" || name == "v10" {
			f.Height = 10
		}
		d.Fields[name] = f
	}
	return d
}

func TestDatasetUV(t *testing.T) {
	d := testDataset(hourly(t2000, 2))

	u, v, err := d.UV(100)
	require.NoError(t, err)
	assert.Equal(t, "u100", u.Name)
	assert.Equal(t, "v100", v.Name)

	_, _, err = d.UV(50)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "50 m")
}

func TestDatasetHeights(t *testing.T) {
	d := testDataset(hourly(t2000, 1))
	assert.Equal(t, []float64{10, 100}, d.Heights())

	// A u component without its v partner does not count as a height.
	d.Fields["u50"] = makeField("u50", hourly(t2000, 1), []float64{1, 2, 3, 4})
	assert.Equal(t, []float64{10, 100}, d.Heights())
}

func TestDatasetSubsetYears(t *testing.T) {
	times := []time.Time{
		time.Date(2000, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2001, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2002, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	d := testDataset(times)

	sub := d.SubsetYears(2001, 2001)
	assert.Equal(t, 1, sub.Steps())
	for _, f := range sub.Fields {
		require.Len(t, f.Times, 1)
		assert.Equal(t, 2001, f.Times[0].Year())
	}
}

func TestDatasetValidate(t *testing.T) {
	d := testDataset(hourly(t2000, 2))
	require.NoError(t, d.Validate())

	empty := &Dataset{}
	assert.ErrorIs(t, empty.Validate(), ErrConfiguration)

	skewed := testDataset(hourly(t2000, 2))
	skewed.Fields["v100"] = makeField("v100", hourly(t2000.Add(time.Hour), 2),
		[]float64{1, 2, 3, 4}, []float64{1, 2, 3, 4})
	err := skewed.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "time axes")

	offgrid := testDataset(hourly(t2000, 2))
	offgrid.Fields["v100"].Lons = []float64{7, 8.5}
	assert.ErrorIs(t, offgrid.Validate(), ErrConfiguration)
}

func TestDatasetTimeSpan(t *testing.T) {
	d := testDataset(hourly(t2000, 3))

	first, last, ok := d.TimeSpan()
	require.True(t, ok)
	assert.True(t, first.Equal(t2000))
	assert.True(t, last.Equal(t2000.Add(2*time.Hour)))
}
