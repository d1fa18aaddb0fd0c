package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"hoptopo/internal/graph"
	"hoptopo/internal/hopfield"
	"hoptopo/internal/topology"
)

// ErrNoMove reports that no edge of the required kind exists, e.g. an add on
// a complete graph. The optimizer aborts on it like any other proposal error.
var ErrNoMove = errors.New("no applicable edge move")

// Operator applies one local edge move to a proposal model in place.
type Operator interface {
	Name() string
	Apply(ctx context.Context, m *hopfield.Model) error
}

// RewireRandomEdge picks an existing edge, keeps one endpoint and reconnects
// it to a node it is not adjacent to.
type RewireRandomEdge struct {
	Rand *rand.Rand
}

func (o *RewireRandomEdge) Name() string {
	return ProposalRewire
}

func (o *RewireRandomEdge) Apply(_ context.Context, m *hopfield.Model) error {
	if o == nil || o.Rand == nil {
		return errors.New("random source is required")
	}
	g := m.Graph()
	if g.EdgeCount() == 0 {
		return fmt.Errorf("%w: graph has no edges", ErrNoMove)
	}
	if g.EdgeCount() == g.MaxEdges() {
		return fmt.Errorf("%w: graph is complete", ErrNoMove)
	}
	// The kept endpoint is drawn edge-weighted. A node adjacent to everything
	// cannot keep its side, so the orientation is redrawn until the kept
	// endpoint has a free slot. Rewire then picks which of its edges moves.
	for {
		i, j, err := topology.RandomEdge(o.Rand, g)
		if err != nil {
			return err
		}
		to, err := topology.RandomNullNeighbor(o.Rand, g, i)
		if errors.Is(err, graph.ErrInvalidState) {
			i = j
			if to, err = topology.RandomNullNeighbor(o.Rand, g, i); errors.Is(err, graph.ErrInvalidState) {
				continue
			}
		}
		if err != nil {
			return err
		}
		return Rewire(o.Rand, m, i, to)
	}
}

type AddRandomEdge struct {
	Rand *rand.Rand
}

func (o *AddRandomEdge) Name() string {
	return ProposalAdd
}

func (o *AddRandomEdge) Apply(_ context.Context, m *hopfield.Model) error {
	if o == nil || o.Rand == nil {
		return errors.New("random source is required")
	}
	i, j, err := topology.RandomNullEdge(o.Rand, m.Graph())
	if errors.Is(err, graph.ErrInvalidState) {
		return fmt.Errorf("%w: %v", ErrNoMove, err)
	}
	if err != nil {
		return err
	}
	return AddEdge(m, i, j)
}

type RemoveRandomEdge struct {
	Rand *rand.Rand
}

func (o *RemoveRandomEdge) Name() string {
	return ProposalRemove
}

func (o *RemoveRandomEdge) Apply(_ context.Context, m *hopfield.Model) error {
	if o == nil || o.Rand == nil {
		return errors.New("random source is required")
	}
	i, j, err := topology.RandomEdge(o.Rand, m.Graph())
	if errors.Is(err, graph.ErrInvalidState) {
		return fmt.Errorf("%w: %v", ErrNoMove, err)
	}
	if err != nil {
		return err
	}
	return RemoveEdge(m, i, j)
}
