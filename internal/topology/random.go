package topology

import (
	"errors"
	"fmt"
	"math/rand"

	"hoptopo/internal/graph"
	"hoptopo/internal/hopfield"
)

// RandomEdges places edgeCount distinct edges uniformly over n nodes.
func RandomEdges(rng *rand.Rand, n, edgeCount int) (*graph.Weighted, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	g, err := graph.New(n)
	if err != nil {
		return nil, err
	}
	if edgeCount < 0 || edgeCount > g.MaxEdges() {
		return nil, fmt.Errorf("%w: edge count %d not in [0,%d]", hopfield.ErrInvalidArgument, edgeCount, g.MaxEdges())
	}
	pairs := make([]graph.Edge, 0, g.MaxEdges())
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, graph.Edge{I: i, J: j})
		}
	}
	for k := 0; k < edgeCount; k++ {
		pick := k + rng.Intn(len(pairs)-k)
		pairs[k], pairs[pick] = pairs[pick], pairs[k]
		_ = g.SetEdge(pairs[k].I, pairs[k].J, true)
	}
	g.RefreshNodes()
	return g, nil
}

// RandomModel is a trained model over RandomEdges.
func RandomModel(rng *rand.Rand, patterns *hopfield.Patterns, edgeCount int) (*hopfield.Model, error) {
	if patterns == nil {
		return nil, errors.New("patterns are required")
	}
	g, err := RandomEdges(rng, patterns.Nodes(), edgeCount)
	if err != nil {
		return nil, err
	}
	return hopfield.NewTrained(g, patterns)
}

// RandomEdge picks an existing edge uniformly, returned in random orientation.
func RandomEdge(rng *rand.Rand, g *graph.Weighted) (int, int, error) {
	edges := g.Edges()
	if len(edges) == 0 {
		return 0, 0, fmt.Errorf("%w: graph has no edges", graph.ErrInvalidState)
	}
	e := edges[rng.Intn(len(edges))]
	if rng.Intn(2) == 1 {
		return e.J, e.I, nil
	}
	return e.I, e.J, nil
}

// RandomNullEdge picks an absent node pair uniformly.
func RandomNullEdge(rng *rand.Rand, g *graph.Weighted) (int, int, error) {
	n := g.Len()
	missing := g.MaxEdges() - g.EdgeCount()
	if missing <= 0 {
		return 0, 0, fmt.Errorf("%w: graph is complete", graph.ErrInvalidState)
	}
	target := rng.Intn(missing)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if g.Adjacent(i, j) {
				continue
			}
			if target == 0 {
				if rng.Intn(2) == 1 {
					return j, i, nil
				}
				return i, j, nil
			}
			target--
		}
	}
	return 0, 0, fmt.Errorf("%w: null edge scan exhausted", graph.ErrInvalidState)
}

// RandomNullNeighbor picks a node not currently adjacent to i.
func RandomNullNeighbor(rng *rand.Rand, g *graph.Weighted, i int) (int, error) {
	if i < 0 || i >= g.Len() {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", graph.ErrIndexOutOfRange, i, g.Len())
	}
	candidates := make([]int, 0, g.Len())
	for j := 0; j < g.Len(); j++ {
		if j != i && !g.Adjacent(i, j) {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("%w: node %d is adjacent to every node", graph.ErrInvalidState, i)
	}
	return candidates[rng.Intn(len(candidates))], nil
}
