package dataset

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// Scaler maps prices affinely onto [0,1] using the min and max seen at fit time.
// Values outside the fitted range are not clipped.
type Scaler struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Fit returns a Scaler fitted to prices.
func Fit(prices []float64) (Scaler, error) {
	if len(prices) == 0 {
		return Scaler{}, errors.New("cannot fit scaler on empty series")
	}
	return Scaler{Min: floats.Min(prices), Max: floats.Max(prices)}, nil
}

// scale is the fitted range; a flat series uses 1 so Transform stays finite.
func (s Scaler) scale() float64 {
	if r := s.Max - s.Min; r != 0 {
		return r
	}
	return 1
}

// Transform returns (x - min) / (max - min) for every x.
func (s Scaler) Transform(xs []float64) []float64 {
	out := make([]float64, len(xs))
	scale := s.scale()
	for i, x := range xs {
		out[i] = (x - s.Min) / scale
	}
	return out
}

// InverseTransform reverses Transform.
func (s Scaler) InverseTransform(xs []float64) []float64 {
	out := make([]float64, len(xs))
	scale := s.scale()
	for i, x := range xs {
		out[i] = x*scale + s.Min
	}
	return out
}
