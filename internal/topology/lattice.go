package topology

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"hoptopo/internal/hopfield"
)

// Lattice connects each node to the k nodes it shares the largest absolute
// Hebbian weight with. With mutualOnly an edge is kept only when both
// endpoints selected each other.
func Lattice(rng *rand.Rand, patterns *hopfield.Patterns, k int, mutualOnly bool) (*hopfield.Model, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if patterns == nil {
		return nil, errors.New("patterns are required")
	}
	n := patterns.Nodes()
	if k < 1 || k >= n {
		return nil, fmt.Errorf("%w: k=%d not in [1,%d)", hopfield.ErrInvalidArgument, k, n)
	}

	full, err := hopfield.FullyConnected(patterns)
	if err != nil {
		return nil, err
	}
	neighbors := NearestNeighbors(rng, full, k)

	m, err := hopfield.Empty(patterns)
	if err != nil {
		return nil, err
	}
	g := m.Graph()
	for i, selected := range neighbors {
		for j := range selected {
			if mutualOnly {
				if _, ok := neighbors[j][i]; !ok {
					continue
				}
			}
			if err := g.SetEdge(i, j, true); err != nil {
				return nil, err
			}
			if err := m.TrainEdge(i, j); err != nil {
				return nil, err
			}
		}
	}
	m.RefreshNodes()
	return m, nil
}

// NearestNeighbors selects, per node, the k other nodes with the largest
// absolute weight in the trained model full.
func NearestNeighbors(rng *rand.Rand, full *hopfield.Model, k int) []map[int]struct{} {
	n := full.NumNodes()
	g := full.Graph()
	out := make([]map[int]struct{}, n)
	for i := 0; i < n; i++ {
		entries := make([]entry[int], 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			entries = append(entries, entry[int]{item: j, priority: -math.Abs(g.WeightAt(i, j))})
		}
		q := newShuffledQueue(rng, entries)
		selected := make(map[int]struct{}, k)
		for len(selected) < k && q.Len() > 0 {
			selected[q.pop()] = struct{}{}
		}
		out[i] = selected
	}
	return out
}
