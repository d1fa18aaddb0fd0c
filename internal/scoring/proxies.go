package scoring

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"

	"hoptopo/internal/hopfield"
)

// DefaultEpsilon is the per-edge offset added to every wiring length.
const DefaultEpsilon = 0.3

// OneStepRecall is a lightweight stand-in for a retrievability metric. Each
// run corrupts one bit of a random stored pattern, applies one synchronous
// sign update and records the fraction of bits that match the pattern. It
// is safe for concurrent use.
func OneStepRecall(rng *rand.Rand) PerformanceFunc {
	var mu sync.Mutex
	return func(ctx context.Context, m *hopfield.Model, runs int) (float64, error) {
		if rng == nil {
			return 0, errors.New("random source is required")
		}
		if m == nil {
			return 0, errors.New("model is required")
		}
		if runs <= 0 {
			return 0, nil
		}
		p := m.Patterns()
		g := m.Graph()
		n := m.NumNodes()

		cue := make([]float64, n)
		total := 0.0
		for r := 0; r < runs; r++ {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			mu.Lock()
			k := rng.Intn(p.Len())
			flip := rng.Intn(n)
			mu.Unlock()

			for i := 0; i < n; i++ {
				cue[i] = p.Bipolar(k, i)
			}
			cue[flip] = -cue[flip]

			matched := 0
			for i := 0; i < n; i++ {
				field := 0.0
				for j := 0; j < n; j++ {
					field += g.WeightAt(i, j) * cue[j]
				}
				next := cue[i]
				if field > 0 {
					next = 1
				} else if field < 0 {
					next = -1
				}
				if next == p.Bipolar(k, i) {
					matched++
				}
			}
			total += float64(matched) / float64(n)
		}
		return total / float64(runs), nil
	}
}

// SignatureWiringCost places every node at its orientation-normalized firing
// signature in {0,1}^M and sums Euclidean edge lengths plus epsilon.
func SignatureWiringCost(epsilon float64) CostFunc {
	return func(_ context.Context, m *hopfield.Model) (float64, error) {
		if m == nil {
			return 0, errors.New("model is required")
		}
		coords := normalizedSignatures(m.Patterns())
		energy := 0.0
		for _, e := range m.Graph().Edges() {
			energy += euclidean(coords[e.I], coords[e.J]) + epsilon
		}
		return energy, nil
	}
}

// normalizedSignatures flips a node's signature when more than half of its
// bits fire, so both orientations land on the same simplex vertex.
func normalizedSignatures(p *hopfield.Patterns) [][]float64 {
	out := make([][]float64, p.Nodes())
	for i := range out {
		row := make([]float64, p.Len())
		ones := 0
		for k := range row {
			if p.Bipolar(k, i) > 0 {
				row[k] = 1
				ones++
			}
		}
		if 2*ones > p.Len() {
			for k := range row {
				row[k] = 1 - row[k]
			}
		}
		out[i] = row
	}
	return out
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}
