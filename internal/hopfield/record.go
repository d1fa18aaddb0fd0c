package hopfield

import (
	"fmt"

	"hoptopo/internal/graph"
	"hoptopo/internal/model"
)

// ToRecord captures m's topology, weights and patterns.
func ToRecord(m *Model, id string) model.NetworkRecord {
	edges := m.graph.Edges()
	rec := model.NetworkRecord{
		VersionedRecord: model.CurrentVersion(),
		ID:              id,
		Nodes:           m.NumNodes(),
		Patterns:        m.patterns.Ints(),
		Edges:           make([]model.EdgeRecord, 0, len(edges)),
	}
	for _, e := range edges {
		rec.Edges = append(rec.Edges, model.EdgeRecord{I: e.I, J: e.J, Weight: m.graph.WeightAt(e.I, e.J)})
	}
	return rec
}

// FromRecord rebuilds the adjacency from rec and retrains it. Stored weights
// are ignored since they are derived.
func FromRecord(rec model.NetworkRecord) (*Model, error) {
	patterns, err := PatternsFromInts(rec.Patterns)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", rec.ID, err)
	}
	if rec.Nodes != patterns.Nodes() {
		return nil, fmt.Errorf("%w: network %s has %d nodes, patterns have %d", ErrInvalidArgument, rec.ID, rec.Nodes, patterns.Nodes())
	}
	g, err := graph.New(rec.Nodes)
	if err != nil {
		return nil, err
	}
	for _, e := range rec.Edges {
		if err := g.SetEdge(e.I, e.J, true); err != nil {
			return nil, fmt.Errorf("network %s: %w", rec.ID, err)
		}
	}
	return NewTrained(g, patterns)
}
