package evo

import (
	"context"
	"math/rand"
	"testing"

	"hoptopo/internal/hopfield"
	"hoptopo/internal/scoring"
	"hoptopo/internal/topology"
)

func testPatterns(t *testing.T, seed int64, n, m int) *hopfield.Patterns {
	t.Helper()
	patterns, err := hopfield.RandomPatterns(rand.New(rand.NewSource(seed)), n, m, 0.5)
	if err != nil {
		t.Fatalf("random patterns: %v", err)
	}
	return patterns
}

func testModel(t *testing.T, seed int64, n, m, edges int) *hopfield.Model {
	t.Helper()
	model, err := topology.RandomModel(rand.New(rand.NewSource(seed)), testPatterns(t, seed, n, m), edges)
	if err != nil {
		t.Fatalf("random model: %v", err)
	}
	return model
}

// wiringScorer is deterministic: constant performance and the signature
// wiring cost, standardized with mean 0 and std 1.
func wiringScorer() scoring.Scorer {
	return scoring.Scorer{
		Alpha:    0.5,
		CostMean: 0,
		CostStd:  1,
		Runs:     1,
		Performance: func(context.Context, *hopfield.Model, int) (float64, error) {
			return 1, nil
		},
		Cost: scoring.SignatureWiringCost(scoring.DefaultEpsilon),
	}
}

// densityScorer rewards edge count.
func densityScorer() scoring.Scorer {
	return scoring.Scorer{
		Alpha:    1,
		CostMean: 0,
		CostStd:  1,
		Runs:     1,
		Performance: func(_ context.Context, m *hopfield.Model, _ int) (float64, error) {
			return float64(m.NumEdges()) / float64(m.Graph().MaxEdges()), nil
		},
		Cost: func(context.Context, *hopfield.Model) (float64, error) { return 0, nil },
	}
}

func requireConsistent(t *testing.T, m *hopfield.Model) {
	t.Helper()
	g := m.Graph()
	count := 0
	for i := 0; i < g.Len(); i++ {
		for j := 0; j < g.Len(); j++ {
			if i == j {
				continue
			}
			if g.Adjacent(i, j) != g.Adjacent(j, i) || g.WeightAt(i, j) != g.WeightAt(j, i) {
				t.Fatalf("asymmetric pair (%d,%d)", i, j)
			}
			if !g.Adjacent(i, j) && g.WeightAt(i, j) != 0 {
				t.Fatalf("weight on missing edge (%d,%d)", i, j)
			}
			if g.Adjacent(i, j) && g.WeightAt(i, j) != m.HebbianWeight(i, j) {
				t.Fatalf("untrained edge (%d,%d)", i, j)
			}
			if i < j && g.Adjacent(i, j) {
				count++
			}
		}
	}
	if count != m.NumEdges() {
		t.Fatalf("edge count %d, counted %d", m.NumEdges(), count)
	}
}
