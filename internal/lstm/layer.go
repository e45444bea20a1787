package lstm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// recurrentLayer is a single LSTM layer. Gate blocks are laid out
// input, forget, cell candidate, output along the 4*units columns.
type recurrentLayer struct {
	inputs, units int

	kernel    *param // inputs × 4*units
	recurrent *param // units × 4*units
	bias      *param // 1 × 4*units
}

func newRecurrentLayer(name string, inputs, units int, rng *rand.Rand) *recurrentLayer {
	l := &recurrentLayer{
		inputs:    inputs,
		units:     units,
		kernel:    newParam(name+".kernel", inputs, 4*units),
		recurrent: newParam(name+".recurrent_kernel", units, 4*units),
		bias:      newParam(name+".bias", 1, 4*units),
	}
	glorotUniform(l.kernel.value, rng)
	orthogonal(l.recurrent.value, rng)
	for j := units; j < 2*units; j++ {
		l.bias.value.Set(0, j, 1) // unit forget bias
	}
	return l
}

func (l *recurrentLayer) params() []*param {
	return []*param{l.kernel, l.recurrent, l.bias}
}

// stepCache keeps what backward needs from one time step.
type stepCache struct {
	x, hPrev, cPrev *mat.Dense
	gates           *mat.Dense // post-activation i, f, g, o
	tanhC           *mat.Dense
}

// forward runs the layer over xs (one batch×inputs matrix per time step) and
// returns the hidden state after every step.
func (l *recurrentLayer) forward(xs []*mat.Dense) ([]*mat.Dense, []stepCache) {
	if len(xs) == 0 {
		return nil, nil
	}
	batch, _ := xs[0].Dims()
	h := mat.NewDense(batch, l.units, nil)
	c := mat.NewDense(batch, l.units, nil)

	hs := make([]*mat.Dense, len(xs))
	caches := make([]stepCache, len(xs))
	var zh mat.Dense
	for t, x := range xs {
		z := mat.NewDense(batch, 4*l.units, nil)
		z.Mul(x, l.kernel.value)
		zh.Reset()
		zh.Mul(h, l.recurrent.value)
		z.Add(z, &zh)
		addRowVector(z, l.bias.value)

		hNext := mat.NewDense(batch, l.units, nil)
		cNext := mat.NewDense(batch, l.units, nil)
		tanhC := mat.NewDense(batch, l.units, nil)
		u := l.units
		for r := 0; r < batch; r++ {
			zr := z.RawRowView(r)
			for j := 0; j < u; j++ {
				i := sigmoid(zr[j])
				f := sigmoid(zr[u+j])
				g := math.Tanh(zr[2*u+j])
				o := sigmoid(zr[3*u+j])
				zr[j], zr[u+j], zr[2*u+j], zr[3*u+j] = i, f, g, o

				cv := f*c.At(r, j) + i*g
				tc := math.Tanh(cv)
				cNext.Set(r, j, cv)
				tanhC.Set(r, j, tc)
				hNext.Set(r, j, o*tc)
			}
		}

		caches[t] = stepCache{x: x, hPrev: h, cPrev: c, gates: z, tanhC: tanhC}
		h, c = hNext, cNext
		hs[t] = hNext
	}
	return hs, caches
}

// backward propagates dhs (gradient w.r.t. each step's hidden output; nil
// entries mean no gradient from above) through time, accumulates parameter
// gradients and returns the gradient w.r.t. each step's input.
func (l *recurrentLayer) backward(caches []stepCache, dhs []*mat.Dense) []*mat.Dense {
	if len(caches) == 0 {
		return nil
	}
	batch, _ := caches[0].x.Dims()
	u := l.units

	dhNext := mat.NewDense(batch, u, nil)
	dcNext := mat.NewDense(batch, u, nil)
	dxs := make([]*mat.Dense, len(caches))

	var dWx, dWh mat.Dense
	for t := len(caches) - 1; t >= 0; t-- {
		s := caches[t]
		dh := mat.DenseCopyOf(dhNext)
		if dhs[t] != nil {
			dh.Add(dh, dhs[t])
		}

		dz := mat.NewDense(batch, 4*u, nil)
		for r := 0; r < batch; r++ {
			gr := s.gates.RawRowView(r)
			dzr := dz.RawRowView(r)
			for j := 0; j < u; j++ {
				i, f, g, o := gr[j], gr[u+j], gr[2*u+j], gr[3*u+j]
				tc := s.tanhC.At(r, j)
				dhv := dh.At(r, j)

				dc := dcNext.At(r, j) + dhv*o*(1-tc*tc)
				do := dhv * tc
				di := dc * g
				dg := dc * i
				df := dc * s.cPrev.At(r, j)
				dcNext.Set(r, j, dc*f)

				dzr[j] = di * i * (1 - i)
				dzr[u+j] = df * f * (1 - f)
				dzr[2*u+j] = dg * (1 - g*g)
				dzr[3*u+j] = do * o * (1 - o)
			}
		}

		dWx.Reset()
		dWx.Mul(s.x.T(), dz)
		l.kernel.grad.Add(l.kernel.grad, &dWx)

		dWh.Reset()
		dWh.Mul(s.hPrev.T(), dz)
		l.recurrent.grad.Add(l.recurrent.grad, &dWh)

		accumulateColumnSums(l.bias.grad, dz)

		dx := mat.NewDense(batch, l.inputs, nil)
		dx.Mul(dz, l.kernel.value.T())
		dxs[t] = dx

		dhNext = mat.NewDense(batch, u, nil)
		dhNext.Mul(dz, l.recurrent.value.T())
	}
	return dxs
}
