package topology

import "hoptopo/internal/hopfield"

// NodeGroups buckets node indices by canonical firing signature.
func NodeGroups(m *hopfield.Model) map[string][]int {
	out := make(map[string][]int)
	p := m.Patterns()
	for i := 0; i < m.NumNodes(); i++ {
		sig := p.CanonicalSignature(i)
		out[sig] = append(out[sig], i)
	}
	return out
}

// InGroupFraction is the share of edges whose endpoints fall in the same
// signature group. A graph without edges scores 0.
func InGroupFraction(m *hopfield.Model) float64 {
	edges := m.Graph().Edges()
	if len(edges) == 0 {
		return 0
	}
	p := m.Patterns()
	canonical := make([]string, m.NumNodes())
	for i := range canonical {
		canonical[i] = p.CanonicalSignature(i)
	}
	within := 0
	for _, e := range edges {
		if canonical[e.I] == canonical[e.J] {
			within++
		}
	}
	return float64(within) / float64(len(edges))
}
