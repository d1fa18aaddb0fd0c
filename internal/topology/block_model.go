package topology

import (
	"errors"
	"fmt"
	"math/rand"

	"hoptopo/internal/hopfield"
)

// GroupEdgeProbs maps a pair of group signatures to the probability of an
// edge between members of those groups. Keys are firing signatures of one
// orientation; a node whose literal signature is absent is looked up by its
// complement.
type GroupEdgeProbs map[string]map[string]float64

// StochasticBlockModel draws an edge between every node pair with the
// probability of their group pair, after scaling all probabilities so the
// expected edge count is target. The result is trained once.
func StochasticBlockModel(rng *rand.Rand, probs GroupEdgeProbs, patterns *hopfield.Patterns, target int) (*hopfield.Model, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if patterns == nil {
		return nil, errors.New("patterns are required")
	}
	if len(probs) == 0 {
		return nil, fmt.Errorf("%w: group probability table is empty", hopfield.ErrInvalidArgument)
	}
	n := patterns.Nodes()
	if target <= 0 || target > n*(n-1)/2 {
		return nil, fmt.Errorf("%w: target edge count %d not in [1,%d]", hopfield.ErrInvalidArgument, target, n*(n-1)/2)
	}

	groupOf := make([]string, n)
	sizes := make(map[string]int, len(probs))
	for i := 0; i < n; i++ {
		key, err := tableKey(probs, patterns.Signature(i))
		if err != nil {
			return nil, err
		}
		groupOf[i] = key
		sizes[key]++
	}

	scaled, err := rescaleProbs(probs, sizes, target)
	if err != nil {
		return nil, err
	}

	m, err := hopfield.Empty(patterns)
	if err != nil {
		return nil, err
	}
	g := m.Graph()
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			p := scaled[groupOf[i]][groupOf[j]]
			if rng.Float64() < p {
				if err := g.SetEdge(i, j, true); err != nil {
					return nil, err
				}
			}
		}
	}
	m.Train()
	return m, nil
}

// rescaleProbs returns a scaled copy of probs. The expected count sums over
// ordered group pairs, so the ratio is doubled for undirected edges.
func rescaleProbs(probs GroupEdgeProbs, sizes map[string]int, target int) (GroupEdgeProbs, error) {
	expected := 0.0
	for a, row := range probs {
		for b := range probs {
			p, ok := row[b]
			if !ok {
				return nil, fmt.Errorf("%w: missing probability for groups %s,%s", hopfield.ErrInvalidArgument, a, b)
			}
			if p < 0 {
				return nil, fmt.Errorf("%w: negative probability %v for groups %s,%s", hopfield.ErrInvalidArgument, p, a, b)
			}
			expected += float64(sizes[a]*sizes[b]) * p
		}
	}
	if expected <= 0 {
		return nil, fmt.Errorf("%w: group probabilities yield no expected edges", hopfield.ErrInvalidArgument)
	}

	ratio := 2 * float64(target) / expected
	out := make(GroupEdgeProbs, len(probs))
	for a, row := range probs {
		scaledRow := make(map[string]float64, len(row))
		for b, p := range row {
			s := ratio * p
			if s > 1 {
				return nil, fmt.Errorf("%w: target %d needs probability %.3f > 1 for groups %s,%s", hopfield.ErrInvalidArgument, target, s, a, b)
			}
			scaledRow[b] = s
		}
		out[a] = scaledRow
	}
	return out, nil
}

func tableKey(probs GroupEdgeProbs, sig string) (string, error) {
	if _, ok := probs[sig]; ok {
		return sig, nil
	}
	flipped := hopfield.FlipSignature(sig)
	if _, ok := probs[flipped]; ok {
		return flipped, nil
	}
	return "", fmt.Errorf("%w: no group probabilities for signature %s", hopfield.ErrInvalidArgument, sig)
}
