package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"hoptopo/internal/graph"
	"hoptopo/internal/hopfield"
	"hoptopo/internal/topology"
)

// The edge operators below mutate a model in place and retrain only the
// edges they touch. Node views are left stale; callers refresh once per batch.

// AddEdge inserts the absent edge (i,j) and trains it.
func AddEdge(m *hopfield.Model, i, j int) error {
	g := m.Graph()
	ok, err := g.HasEdge(i, j)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: edge (%d,%d) already present", graph.ErrInvalidState, i, j)
	}
	if err := g.SetEdge(i, j, true); err != nil {
		return err
	}
	return m.TrainEdge(i, j)
}

// RemoveEdge deletes the present edge (i,j), clearing its weight.
func RemoveEdge(m *hopfield.Model, i, j int) error {
	g := m.Graph()
	ok, err := g.HasEdge(i, j)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: edge (%d,%d) not present", graph.ErrInvalidState, i, j)
	}
	return g.SetEdge(i, j, false)
}

// RewireEdge moves the far end of edge (i,from) to to. The edge count is
// unchanged.
func RewireEdge(m *hopfield.Model, i, from, to int) error {
	g := m.Graph()
	if from == to {
		return fmt.Errorf("%w: rewire (%d,%d) onto itself", graph.ErrInvalidState, i, from)
	}
	present, err := g.HasEdge(i, to)
	if err != nil {
		return err
	}
	if present {
		return fmt.Errorf("%w: rewire target (%d,%d) already present", graph.ErrInvalidState, i, to)
	}
	if err := RemoveEdge(m, i, from); err != nil {
		return err
	}
	return AddEdge(m, i, to)
}

// Rewire replaces a random edge incident to i with the absent edge (i,j).
func Rewire(rng *rand.Rand, m *hopfield.Model, i, j int) error {
	if rng == nil {
		return errors.New("random source is required")
	}
	g := m.Graph()
	present, err := g.HasEdge(i, j)
	if err != nil {
		return err
	}
	if present {
		return fmt.Errorf("%w: rewire target (%d,%d) already present", graph.ErrInvalidState, i, j)
	}
	neighbors, err := g.Neighbors(i)
	if err != nil {
		return err
	}
	if len(neighbors) == 0 {
		return fmt.Errorf("%w: node %d has no edge to rewire", graph.ErrInvalidState, i)
	}
	return RewireEdge(m, i, neighbors[rng.Intn(len(neighbors))], j)
}

// RewireAll visits every edge once and, with probability p, moves one of its
// endpoints to a random node the other endpoint is not yet adjacent to.
func RewireAll(rng *rand.Rand, m *hopfield.Model, p float64) error {
	if rng == nil {
		return errors.New("random source is required")
	}
	if p < 0 || p > 1 {
		return fmt.Errorf("%w: rewire probability %v not in [0,1]", hopfield.ErrInvalidArgument, p)
	}
	g := m.Graph()
	for _, e := range g.Edges() {
		if rng.Float64() >= p || !g.Adjacent(e.I, e.J) {
			continue
		}
		to, err := topology.RandomNullNeighbor(rng, g, e.J)
		if errors.Is(err, graph.ErrInvalidState) {
			continue
		}
		if err != nil {
			return err
		}
		if err := RewireEdge(m, e.J, e.I, to); err != nil {
			return err
		}
	}
	m.RefreshNodes()
	return nil
}

// RewiredCopy is RewireAll applied to a copy of m.
func RewiredCopy(rng *rand.Rand, m *hopfield.Model, p float64) (*hopfield.Model, error) {
	out := m.Clone()
	if err := RewireAll(rng, out, p); err != nil {
		return nil, err
	}
	return out, nil
}
