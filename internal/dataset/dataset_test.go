package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalerRoundTrip(t *testing.T) {
	prices := []float64{150.12, 148.9, 152.33, 160.01, 149.5, 155.75}
	s, err := Fit(prices)
	require.NoError(t, err)
	assert.Equal(t, 148.9, s.Min)
	assert.Equal(t, 160.01, s.Max)

	scaled := s.Transform(prices)
	for _, v := range scaled {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.InDelta(t, 0.0, scaled[1], 1e-12)
	assert.InDelta(t, 1.0, scaled[3], 1e-12)

	back := s.InverseTransform(scaled)
	assert.InDeltaSlice(t, prices, back, 1e-9)
}

func TestScalerDoesNotClip(t *testing.T) {
	s := Scaler{Min: 100, Max: 200}
	out := s.Transform([]float64{50, 250})
	assert.InDelta(t, -0.5, out[0], 1e-12)
	assert.InDelta(t, 1.5, out[1], 1e-12)
	assert.InDeltaSlice(t, []float64{50, 250}, s.InverseTransform(out), 1e-9)
}

func TestScalerFlatSeries(t *testing.T) {
	s, err := Fit([]float64{42, 42, 42})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, s.Transform([]float64{42, 42, 42}))
	assert.Equal(t, []float64{42}, s.InverseTransform([]float64{0}))
}

func TestFitEmpty(t *testing.T) {
	_, err := Fit(nil)
	assert.Error(t, err)
}

func TestWindowsCount(t *testing.T) {
	for _, length := range []int{0, 1, 59, 60, 61, 100, 252} {
		series := make([]float64, length)
		for i := range series {
			series[i] = float64(i)
		}
		inputs, targets := Windows(series, WindowSize)
		want := max(length-WindowSize, 0)
		assert.Len(t, inputs, want, "length %d", length)
		assert.Len(t, targets, want, "length %d", length)
	}
}

func TestWindowsContents(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	inputs, targets := Windows(series, 3)
	assert.Equal(t, [][]float64{{1, 2, 3}, {2, 3, 4}}, inputs)
	assert.Equal(t, []float64{4, 5}, targets)

	inputs[0][0] = 99
	assert.Equal(t, 1.0, series[0], "windows must not alias the series")
}

func TestSeedWindowAndSlide(t *testing.T) {
	_, err := SeedWindow([]float64{1, 2}, 3)
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	w, err := SeedWindow([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, w)

	Slide(w, 6)
	assert.Equal(t, []float64{4, 5, 6}, w)
}
