package evo

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"hoptopo/internal/hopfield"
)

const (
	AcceptMetropolis = "metropolis"
	AcceptGreedy     = "greedy"
)

// AcceptancePolicy decides whether a proposal replaces the current model.
type AcceptancePolicy interface {
	Name() string
	Accept(current, proposal float64, rng *rand.Rand) bool
}

// Greedy accepts strict improvements only.
type Greedy struct{}

func (Greedy) Name() string {
	return AcceptGreedy
}

func (Greedy) Accept(current, proposal float64, _ *rand.Rand) bool {
	return proposal > current
}

// Metropolis accepts strict improvements and otherwise accepts with
// probability exp(-Beta*proposal/current), capped at 1. A current score of
// zero rejects every non-improving proposal.
type Metropolis struct {
	Beta float64
}

func (Metropolis) Name() string {
	return AcceptMetropolis
}

func (p Metropolis) Accept(current, proposal float64, rng *rand.Rand) bool {
	if proposal > current {
		return true
	}
	if current == 0 {
		return false
	}
	return rng.Float64() < p.Probability(current, proposal)
}

func (p Metropolis) Probability(current, proposal float64) float64 {
	if proposal > current {
		return 1
	}
	if current == 0 {
		return 0
	}
	// A ratio <= 0 (proposal and current of opposite sign, or a zero
	// proposal) gives exp(>= 0), so such drops are always accepted.
	return math.Min(1, math.Exp(-p.Beta*(proposal/current)))
}

func NormalizeAcceptanceName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AcceptMetropolis, "mh", "metropolis_hastings":
		return AcceptMetropolis
	case AcceptGreedy, "hillclimb":
		return AcceptGreedy
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

func AcceptanceFromName(name string, beta float64) (AcceptancePolicy, error) {
	switch NormalizeAcceptanceName(name) {
	case AcceptMetropolis:
		if beta < 0 || math.IsNaN(beta) {
			return nil, fmt.Errorf("%w: beta must be >= 0, got %v", hopfield.ErrInvalidArgument, beta)
		}
		return Metropolis{Beta: beta}, nil
	case AcceptGreedy:
		return Greedy{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported acceptance policy %q", hopfield.ErrInvalidArgument, name)
	}
}
