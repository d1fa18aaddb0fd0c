package evo

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"hoptopo/internal/hopfield"
)

const (
	MovesConst      = "const"
	MovesEdgeLinear = "ecount_linear"
	MovesAnnealed   = "annealed"
)

// MoveCountPolicy determines how many edge moves build one proposal.
type MoveCountPolicy interface {
	Name() string
	MoveCount(m *hopfield.Model, iteration int, rng *rand.Rand) (int, error)
}

type ConstMoves struct {
	Count int
}

func (ConstMoves) Name() string {
	return MovesConst
}

func (p ConstMoves) MoveCount(_ *hopfield.Model, _ int, _ *rand.Rand) (int, error) {
	if p.Count <= 0 {
		return 0, fmt.Errorf("%w: const move count must be > 0", hopfield.ErrInvalidArgument)
	}
	return p.Count, nil
}

// EdgeLinearMoves scales the move count with the current edge count.
type EdgeLinearMoves struct {
	Multiplier float64
	MaxCount   int
}

func (EdgeLinearMoves) Name() string {
	return MovesEdgeLinear
}

func (p EdgeLinearMoves) MoveCount(m *hopfield.Model, _ int, _ *rand.Rand) (int, error) {
	if p.Multiplier <= 0 {
		return 0, fmt.Errorf("%w: linear multiplier must be > 0", hopfield.ErrInvalidArgument)
	}
	count := int(math.Round(float64(m.NumEdges()) * p.Multiplier))
	if count < 1 {
		count = 1
	}
	if p.MaxCount > 0 && count > p.MaxCount {
		count = p.MaxCount
	}
	return count, nil
}

// AnnealedMoves starts with Start moves and decays geometrically toward one.
type AnnealedMoves struct {
	Start int
	Decay float64
}

func (AnnealedMoves) Name() string {
	return MovesAnnealed
}

func (p AnnealedMoves) MoveCount(_ *hopfield.Model, iteration int, _ *rand.Rand) (int, error) {
	if p.Start <= 0 {
		return 0, fmt.Errorf("%w: annealed start must be > 0", hopfield.ErrInvalidArgument)
	}
	if p.Decay <= 0 || p.Decay > 1 {
		return 0, fmt.Errorf("%w: annealed decay %v not in (0,1]", hopfield.ErrInvalidArgument, p.Decay)
	}
	count := int(math.Round(float64(p.Start) * math.Pow(p.Decay, float64(iteration))))
	return max(1, count), nil
}

// MoveSettings parameterizes the named policies. Count is the const count
// and the annealed starting count.
type MoveSettings struct {
	Count      int
	Multiplier float64
	MaxCount   int
	Decay      float64
}

func NormalizeMovePolicyName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MovesConst, "constant":
		return MovesConst
	case MovesEdgeLinear, "linear":
		return MovesEdgeLinear
	case MovesAnnealed, "anneal":
		return MovesAnnealed
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// MovePolicyFromName builds and validates a move count policy.
func MovePolicyFromName(name string, s MoveSettings) (MoveCountPolicy, error) {
	switch NormalizeMovePolicyName(name) {
	case MovesConst:
		if s.Count <= 0 {
			return nil, fmt.Errorf("%w: const move count must be > 0, got %d", hopfield.ErrInvalidArgument, s.Count)
		}
		return ConstMoves{Count: s.Count}, nil
	case MovesEdgeLinear:
		if s.Multiplier <= 0 || math.IsNaN(s.Multiplier) {
			return nil, fmt.Errorf("%w: linear multiplier must be > 0, got %v", hopfield.ErrInvalidArgument, s.Multiplier)
		}
		if s.MaxCount < 0 {
			return nil, fmt.Errorf("%w: linear max count must be >= 0, got %d", hopfield.ErrInvalidArgument, s.MaxCount)
		}
		return EdgeLinearMoves{Multiplier: s.Multiplier, MaxCount: s.MaxCount}, nil
	case MovesAnnealed:
		p := AnnealedMoves{Start: s.Count, Decay: s.Decay}
		if _, err := p.MoveCount(nil, 0, nil); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unsupported move policy %q", hopfield.ErrInvalidArgument, name)
	}
}
