package lstm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// adam implements the Adam optimiser with bias-corrected step size.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
	m, v                  map[*param]*mat.Dense
}

func newAdam(lr float64) *adam {
	return &adam{
		lr:    lr,
		beta1: 0.9,
		beta2: 0.999,
		eps:   1e-7,
		m:     make(map[*param]*mat.Dense),
		v:     make(map[*param]*mat.Dense),
	}
}

// step applies one update to every param using its accumulated gradient.
func (a *adam) step(params []*param) {
	a.t++
	lrT := a.lr * math.Sqrt(1-math.Pow(a.beta2, float64(a.t))) / (1 - math.Pow(a.beta1, float64(a.t)))
	for _, p := range params {
		rows, cols := p.value.Dims()
		m, ok := a.m[p]
		if !ok {
			m = mat.NewDense(rows, cols, nil)
			a.m[p] = m
			a.v[p] = mat.NewDense(rows, cols, nil)
		}
		v := a.v[p]

		val, g := p.value.RawMatrix(), p.grad.RawMatrix()
		mr, vr := m.RawMatrix(), v.RawMatrix()
		for i := range val.Data {
			gi := g.Data[i]
			mr.Data[i] = a.beta1*mr.Data[i] + (1-a.beta1)*gi
			vr.Data[i] = a.beta2*vr.Data[i] + (1-a.beta2)*gi*gi
			val.Data[i] -= lrT * mr.Data[i] / (math.Sqrt(vr.Data[i]) + a.eps)
		}
	}
}
