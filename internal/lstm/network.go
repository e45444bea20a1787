// Package lstm implements the stacked LSTM regressor used to forecast the next
// normalised close from a fixed-length window of previous closes.
package lstm

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Config describes the network shape. Production code always uses DefaultConfig.
type Config struct {
	Window       int     `json:"window"`
	Units1       int     `json:"units_1"`
	Units2       int     `json:"units_2"`
	LearningRate float64 `json:"learning_rate"`
}

// DefaultConfig is a 60-step window feeding LSTM(50, sequences) → LSTM(50) → Dense(1).
func DefaultConfig() Config {
	return Config{Window: 60, Units1: 50, Units2: 50, LearningRate: 0.001}
}

func (c Config) validate() error {
	if c.Window <= 0 || c.Units1 <= 0 || c.Units2 <= 0 {
		return fmt.Errorf("invalid network shape %+v", c)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %v", c.LearningRate)
	}
	return nil
}

// Network is a two-layer LSTM regressor with a scalar dense head, trained with Adam on MSE.
type Network struct {
	cfg Config

	first  *recurrentLayer
	second *recurrentLayer
	weight *param // units2 × 1
	bias   *param // 1 × 1

	opt *adam
	rng *rand.Rand
}

// New builds a freshly initialised network. A nil rng draws a random seed, so
// two networks built this way train differently.
func New(cfg Config, rng *rand.Rand) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	n := &Network{
		cfg:    cfg,
		first:  newRecurrentLayer("lstm_1", 1, cfg.Units1, rng),
		second: newRecurrentLayer("lstm_2", cfg.Units1, cfg.Units2, rng),
		weight: newParam("dense.kernel", cfg.Units2, 1),
		bias:   newParam("dense.bias", 1, 1),
		rng:    rng,
	}
	glorotUniform(n.weight.value, rng)
	n.opt = newAdam(cfg.LearningRate)
	return n, nil
}

// Config returns the network shape.
func (n *Network) Config() Config { return n.cfg }

func (n *Network) params() []*param {
	ps := append(n.first.params(), n.second.params()...)
	return append(ps, n.weight, n.bias)
}

// Predict runs one forward pass over window and returns the next normalised value.
func (n *Network) Predict(window []float64) (float64, error) {
	if len(window) != n.cfg.Window {
		return 0, fmt.Errorf("window length %d does not match network window %d", len(window), n.cfg.Window)
	}
	out, _ := n.forward([][]float64{window})
	return out.At(0, 0), nil
}

// forwardState holds intermediate values of one batch forward pass.
type forwardState struct {
	first, second []stepCache
	last          *mat.Dense // final hidden state of the second layer
}

// forward evaluates a batch of windows and returns a batch×1 output matrix.
func (n *Network) forward(batch [][]float64) (*mat.Dense, *forwardState) {
	size := len(batch)
	xs := make([]*mat.Dense, n.cfg.Window)
	for t := range xs {
		x := mat.NewDense(size, 1, nil)
		for r, w := range batch {
			x.Set(r, 0, w[t])
		}
		xs[t] = x
	}

	h1, c1 := n.first.forward(xs)
	h2, c2 := n.second.forward(h1)
	last := h2[len(h2)-1]

	out := mat.NewDense(size, 1, nil)
	out.Mul(last, n.weight.value)
	addRowVector(out, n.bias.value)
	return out, &forwardState{first: c1, second: c2, last: last}
}

// backprop runs forward and backward passes for one batch, accumulating
// gradients of the mean squared error. It returns the batch loss.
func (n *Network) backprop(inputs [][]float64, targets []float64) float64 {
	out, st := n.forward(inputs)
	size := len(inputs)

	dOut := mat.NewDense(size, 1, nil)
	var loss float64
	for r := 0; r < size; r++ {
		diff := out.At(r, 0) - targets[r]
		loss += diff * diff
		dOut.Set(r, 0, 2*diff/float64(size))
	}
	loss /= float64(size)

	var dW mat.Dense
	dW.Mul(st.last.T(), dOut)
	n.weight.grad.Add(n.weight.grad, &dW)
	accumulateColumnSums(n.bias.grad, dOut)

	dLast := mat.NewDense(size, n.cfg.Units2, nil)
	dLast.Mul(dOut, n.weight.value.T())

	dh2 := make([]*mat.Dense, n.cfg.Window)
	dh2[len(dh2)-1] = dLast
	dh1 := n.second.backward(st.second, dh2)
	n.first.backward(st.first, dh1)
	return loss
}

// loss evaluates the mean squared error of the batch without touching gradients.
func (n *Network) loss(inputs [][]float64, targets []float64) float64 {
	out, _ := n.forward(inputs)
	var sum float64
	for r := range inputs {
		diff := out.At(r, 0) - targets[r]
		sum += diff * diff
	}
	return sum / float64(len(inputs))
}
