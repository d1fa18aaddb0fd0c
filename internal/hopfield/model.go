package hopfield

import (
	"errors"
	"fmt"

	"hoptopo/internal/graph"
)

// Model is a Hopfield network: a weighted graph plus the patterns it stores.
// The weight layer is a function of (adjacency, patterns) under the bipolar
// Hebbian rule and is recomputed for edges whose presence changes.
type Model struct {
	graph    *graph.Weighted
	patterns *Patterns
}

// NewModel wraps g without training it.
func NewModel(g *graph.Weighted, patterns *Patterns) (*Model, error) {
	if g == nil {
		return nil, errors.New("graph is required")
	}
	if patterns == nil {
		return nil, errors.New("patterns are required")
	}
	if g.Len() != patterns.Nodes() {
		return nil, fmt.Errorf("%w: graph has %d nodes, patterns have %d", ErrInvalidArgument, g.Len(), patterns.Nodes())
	}
	return &Model{graph: g, patterns: patterns}, nil
}

// NewTrained wraps g and trains every existing edge.
func NewTrained(g *graph.Weighted, patterns *Patterns) (*Model, error) {
	m, err := NewModel(g, patterns)
	if err != nil {
		return nil, err
	}
	m.Train()
	return m, nil
}

// FullyConnected returns a trained model over the complete graph.
func FullyConnected(patterns *Patterns) (*Model, error) {
	if patterns == nil {
		return nil, errors.New("patterns are required")
	}
	g, err := graph.FullyConnected(patterns.Nodes())
	if err != nil {
		return nil, err
	}
	return NewTrained(g, patterns)
}

// Empty returns a model with no edges.
func Empty(patterns *Patterns) (*Model, error) {
	if patterns == nil {
		return nil, errors.New("patterns are required")
	}
	g, err := graph.New(patterns.Nodes())
	if err != nil {
		return nil, err
	}
	return NewModel(g, patterns)
}

func (m *Model) Graph() *graph.Weighted {
	return m.graph
}

func (m *Model) Patterns() *Patterns {
	return m.patterns
}

func (m *Model) NumNodes() int {
	return m.graph.Len()
}

func (m *Model) NumEdges() int {
	return m.graph.EdgeCount()
}

// Train recomputes the weight of every existing edge and refreshes node views.
func (m *Model) Train() {
	for _, e := range m.graph.Edges() {
		_ = m.graph.SetWeight(e.I, e.J, m.patterns.Correlation(e.I, e.J))
	}
	m.graph.RefreshNodes()
}

// TrainEdge recomputes only the weight of (i,j). It assigns the value Train
// would and leaves node views stale until RefreshNodes.
func (m *Model) TrainEdge(i, j int) error {
	ok, err := m.graph.HasEdge(i, j)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: train missing edge (%d,%d)", graph.ErrInvalidState, i, j)
	}
	return m.graph.SetWeight(i, j, m.patterns.Correlation(i, j))
}

// HebbianWeight is the weight (i,j) would receive if the edge existed.
func (m *Model) HebbianWeight(i, j int) float64 {
	return m.patterns.Correlation(i, j)
}

func (m *Model) RefreshNodes() {
	m.graph.RefreshNodes()
}

// Clone deep-copies the graph; patterns are immutable and shared.
func (m *Model) Clone() *Model {
	return &Model{graph: m.graph.Clone(), patterns: m.patterns}
}

// Weights returns a dense copy of the weight layer.
func (m *Model) Weights() [][]float64 {
	n := m.graph.Len()
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, n)
		for j := range row {
			row[j] = m.graph.WeightAt(i, j)
		}
		out[i] = row
	}
	return out
}
