package lstm

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoSamples is returned by Fit when there is nothing to train on.
var ErrNoSamples = errors.New("no training samples")

// FitOptions controls a training run.
type FitOptions struct {
	Epochs    int
	BatchSize int
	// OnEpoch, when set, is called after each epoch with the mean sample loss.
	OnEpoch func(epoch int, loss float64)
}

// DefaultFitOptions runs five passes with batches of 32.
func DefaultFitOptions() FitOptions {
	return FitOptions{Epochs: 5, BatchSize: 32}
}

// FitReport summarises a completed training run.
type FitReport struct {
	Samples int
	Losses  []float64 // mean squared error per epoch
}

// FinalLoss returns the loss of the last epoch, or NaN if no epoch ran.
func (r FitReport) FinalLoss() float64 {
	if len(r.Losses) == 0 {
		return math.NaN()
	}
	return r.Losses[len(r.Losses)-1]
}

// Fit trains the network on (inputs[i] → targets[i]) pairs with shuffled
// mini-batches. There is no validation split and no early stopping.
func (n *Network) Fit(inputs [][]float64, targets []float64, opts FitOptions) (FitReport, error) {
	report := FitReport{Samples: len(inputs)}
	if len(inputs) == 0 {
		return report, ErrNoSamples
	}
	if len(inputs) != len(targets) {
		return report, fmt.Errorf("inputs and targets differ in length: %d vs %d", len(inputs), len(targets))
	}
	for i, w := range inputs {
		if len(w) != n.cfg.Window {
			return report, fmt.Errorf("sample %d has window %d, want %d", i, len(w), n.cfg.Window)
		}
	}
	if opts.Epochs <= 0 || opts.BatchSize <= 0 {
		return report, fmt.Errorf("epochs and batch size must be positive, got %d/%d", opts.Epochs, opts.BatchSize)
	}

	order := make([]int, len(inputs))
	for i := range order {
		order[i] = i
	}
	params := n.params()

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		n.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var total float64
		for start := 0; start < len(order); start += opts.BatchSize {
			end := min(start+opts.BatchSize, len(order))
			bx := make([][]float64, 0, end-start)
			by := make([]float64, 0, end-start)
			for _, idx := range order[start:end] {
				bx = append(bx, inputs[idx])
				by = append(by, targets[idx])
			}

			for _, p := range params {
				p.zeroGrad()
			}
			loss := n.backprop(bx, by)
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return report, fmt.Errorf("loss diverged at epoch %d", epoch+1)
			}
			n.opt.step(params)
			total += loss * float64(len(bx))
		}

		epochLoss := total / float64(len(order))
		report.Losses = append(report.Losses, epochLoss)
		if opts.OnEpoch != nil {
			opts.OnEpoch(epoch+1, epochLoss)
		}
	}
	return report, nil
}
