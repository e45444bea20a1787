package lstm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a row-major serialised matrix.
type Matrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

// Snapshot is the persisted form of a trained Network. Optimiser state is not kept.
type Snapshot struct {
	Config  Config            `json:"config"`
	Weights map[string]Matrix `json:"weights"`
}

func toMatrix(m *mat.Dense) Matrix {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return Matrix{Rows: r, Cols: c, Data: data}
}

// Snapshot captures the current weights.
func (n *Network) Snapshot() Snapshot {
	s := Snapshot{Config: n.cfg, Weights: make(map[string]Matrix)}
	for _, p := range n.params() {
		s.Weights[p.name] = toMatrix(p.value)
	}
	return s
}

// FromSnapshot rebuilds a Network from persisted weights.
func FromSnapshot(s Snapshot) (*Network, error) {
	n, err := New(s.Config, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot config: %w", err)
	}
	for _, p := range n.params() {
		w, ok := s.Weights[p.name]
		if !ok {
			return nil, fmt.Errorf("snapshot missing %s", p.name)
		}
		r, c := p.value.Dims()
		if w.Rows != r || w.Cols != c || len(w.Data) != r*c {
			return nil, fmt.Errorf("snapshot %s has shape %dx%d (%d values), want %dx%d",
				p.name, w.Rows, w.Cols, len(w.Data), r, c)
		}
		p.value.Copy(mat.NewDense(r, c, w.Data))
	}
	return n, nil
}
