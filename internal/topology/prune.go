package topology

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"hoptopo/internal/graph"
	"hoptopo/internal/hopfield"
)

// Prune trains a fully connected network on patterns and keeps the target
// edges of largest absolute weight.
func Prune(rng *rand.Rand, patterns *hopfield.Patterns, target int) (*hopfield.Model, error) {
	base, err := hopfield.FullyConnected(patterns)
	if err != nil {
		return nil, err
	}
	return pruneInPlace(rng, base, target)
}

// PruneModel prunes a retrained copy of base down to target edges. base is
// left untouched.
func PruneModel(rng *rand.Rand, base *hopfield.Model, target int) (*hopfield.Model, error) {
	if base == nil {
		return nil, errors.New("base model is required")
	}
	m := base.Clone()
	m.Train()
	return pruneInPlace(rng, m, target)
}

func pruneInPlace(rng *rand.Rand, m *hopfield.Model, target int) (*hopfield.Model, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if target < 0 || target > m.NumEdges() {
		return nil, fmt.Errorf("%w: target edge count %d not in [0,%d]", hopfield.ErrInvalidArgument, target, m.NumEdges())
	}

	g := m.Graph()
	edges := g.Edges()
	entries := make([]entry[graph.Edge], 0, len(edges))
	for _, e := range edges {
		entries = append(entries, entry[graph.Edge]{item: e, priority: math.Abs(g.WeightAt(e.I, e.J))})
	}
	q := newShuffledQueue(rng, entries)

	for removals := m.NumEdges() - target; removals > 0; removals-- {
		e := q.pop()
		if err := g.SetEdge(e.I, e.J, false); err != nil {
			return nil, err
		}
	}
	m.RefreshNodes()
	return m, nil
}
