package lstm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// param is a trainable matrix together with its gradient accumulator.
type param struct {
	name  string
	value *mat.Dense
	grad  *mat.Dense
}

func newParam(name string, rows, cols int) *param {
	return &param{
		name:  name,
		value: mat.NewDense(rows, cols, nil),
		grad:  mat.NewDense(rows, cols, nil),
	}
}

func (p *param) zeroGrad() { p.grad.Zero() }

// glorotUniform fills m from U(-limit, limit) with limit = sqrt(6 / (fanIn + fanOut)).
func glorotUniform(m *mat.Dense, rng *rand.Rand) {
	fanIn, fanOut := m.Dims()
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	raw := m.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j := range row {
			row[j] = (rng.Float64()*2 - 1) * limit
		}
	}
}

// orthogonal fills m with a (semi-)orthogonal matrix obtained from the QR
// decomposition of a standard normal matrix.
func orthogonal(m *mat.Dense, rng *rand.Rand) {
	rows, cols := m.Dims()
	tall, wide := rows, cols
	transposed := rows < cols
	if transposed {
		tall, wide = cols, rows
	}

	a := mat.NewDense(tall, wide, nil)
	for i := 0; i < tall; i++ {
		for j := 0; j < wide; j++ {
			a.Set(i, j, rng.NormFloat64())
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	// thin Q, columns sign-corrected by diag(R) so the result is uniformly distributed
	for i := 0; i < tall; i++ {
		for j := 0; j < wide; j++ {
			v := q.At(i, j)
			if r.At(j, j) < 0 {
				v = -v
			}
			if transposed {
				m.Set(j, i, v)
			} else {
				m.Set(i, j, v)
			}
		}
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// addRowVector adds the 1×n row vector b to every row of m.
func addRowVector(m, b *mat.Dense) {
	raw := m.RawMatrix()
	bias := b.RawMatrix().Data[:raw.Cols]
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j := range row {
			row[j] += bias[j]
		}
	}
}

// accumulateColumnSums adds the column sums of m into the 1×n row vector dst.
func accumulateColumnSums(dst, m *mat.Dense) {
	raw := m.RawMatrix()
	out := dst.RawMatrix().Data[:raw.Cols]
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j, v := range row {
			out[j] += v
		}
	}
}
