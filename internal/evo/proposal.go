package evo

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"hoptopo/internal/hopfield"
)

const (
	ProposalRewire = "rewire"
	ProposalAdd    = "add"
	ProposalRemove = "remove"
	ProposalMixed  = "mixed"
)

func NormalizeProposalName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProposalRewire, "swap":
		return ProposalRewire
	case ProposalAdd, "add_edge":
		return ProposalAdd
	case ProposalRemove, "remove_edge":
		return ProposalRemove
	case ProposalMixed, "random":
		return ProposalMixed
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// proposer builds one proposal per iteration: a copy of the current model with
// a batch of moves of a single kind applied.
type proposer struct {
	kind   string
	rng    *rand.Rand
	moves  MoveCountPolicy
	rewire Operator
	add    Operator
	remove Operator
}

func newProposer(kind string, rng *rand.Rand, moves MoveCountPolicy) (*proposer, error) {
	kind = NormalizeProposalName(kind)
	switch kind {
	case ProposalRewire, ProposalAdd, ProposalRemove, ProposalMixed:
	default:
		return nil, fmt.Errorf("%w: unsupported proposal kind %q", hopfield.ErrInvalidArgument, kind)
	}
	return &proposer{
		kind:   kind,
		rng:    rng,
		moves:  moves,
		rewire: &RewireRandomEdge{Rand: rng},
		add:    &AddRandomEdge{Rand: rng},
		remove: &RemoveRandomEdge{Rand: rng},
	}, nil
}

func (p *proposer) operatorFor(kind string) Operator {
	switch kind {
	case ProposalAdd:
		return p.add
	case ProposalRemove:
		return p.remove
	case ProposalMixed:
		return []Operator{p.rewire, p.add, p.remove}[p.rng.Intn(3)]
	default:
		return p.rewire
	}
}

// propose returns the proposal and the name of the operator used.
func (p *proposer) propose(ctx context.Context, current *hopfield.Model, iteration int) (*hopfield.Model, string, error) {
	count, err := p.moves.MoveCount(current, iteration, p.rng)
	if err != nil {
		return nil, "", err
	}
	op := p.operatorFor(p.kind)
	prop := current.Clone()
	for n := 0; n < count; n++ {
		if err := op.Apply(ctx, prop); err != nil {
			return nil, op.Name(), fmt.Errorf("%s move %d: %w", op.Name(), n, err)
		}
	}
	prop.RefreshNodes()
	return prop, op.Name(), nil
}
