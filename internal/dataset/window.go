package dataset

import (
	"errors"
	"fmt"
)

// WindowSize is the number of consecutive closes the model sees per step.
const WindowSize = 60

// ErrInsufficientHistory is returned when a series is shorter than the window.
var ErrInsufficientHistory = errors.New("not enough data to predict")

// Windows slides a window of length size over series and returns one input per
// position together with the value that follows it. A series of length L yields
// max(L-size, 0) pairs.
func Windows(series []float64, size int) (inputs [][]float64, targets []float64) {
	n := len(series) - size
	if size <= 0 || n <= 0 {
		return nil, nil
	}
	inputs = make([][]float64, n)
	targets = make([]float64, n)
	for i := 0; i < n; i++ {
		w := make([]float64, size)
		copy(w, series[i:i+size])
		inputs[i] = w
		targets[i] = series[i+size]
	}
	return inputs, targets
}

// SeedWindow returns a copy of the trailing size values of series.
func SeedWindow(series []float64, size int) ([]float64, error) {
	if len(series) < size {
		return nil, fmt.Errorf("%w: have %d points, need %d", ErrInsufficientHistory, len(series), size)
	}
	w := make([]float64, size)
	copy(w, series[len(series)-size:])
	return w, nil
}

// Slide drops the oldest value of window and appends next, in place.
func Slide(window []float64, next float64) {
	copy(window, window[1:])
	window[len(window)-1] = next
}
