package evo

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"hoptopo/internal/hopfield"
)

func TestGreedyAcceptance(t *testing.T) {
	g := Greedy{}
	if !g.Accept(0.5, 0.6, nil) {
		t.Fatal("improvement must be accepted")
	}
	if g.Accept(0.5, 0.5, nil) || g.Accept(0.5, 0.4, nil) {
		t.Fatal("greedy must reject non-improving proposals")
	}
}

func TestMetropolisProbability(t *testing.T) {
	p := Metropolis{Beta: 0.9}
	if got := p.Probability(0.5, 0.6); got != 1 {
		t.Fatalf("improvement probability = %v", got)
	}
	want := math.Exp(-0.9 * (0.4 / 0.5))
	if got := p.Probability(0.5, 0.4); math.Abs(got-want) > 1e-12 {
		t.Fatalf("downhill probability = %v, want %v", got, want)
	}
	if got := p.Probability(0, -1); got != 0 {
		t.Fatalf("zero current probability = %v", got)
	}
	if got := p.Probability(1, -2); got != 1 {
		t.Fatalf("negative ratio must cap at 1, got %v", got)
	}
}

func TestMetropolisAcceptsDownhillSometimes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := Metropolis{Beta: 0.9}
	accepted := 0
	const trials = 4000
	for i := 0; i < trials; i++ {
		if p.Accept(0.5, 0.4, rng) {
			accepted++
		}
	}
	rate := float64(accepted) / trials
	want := math.Exp(-0.9 * 0.8)
	if math.Abs(rate-want) > 0.03 {
		t.Fatalf("acceptance rate %v, want about %v", rate, want)
	}
}

func TestAcceptanceFromName(t *testing.T) {
	policy, err := AcceptanceFromName(" MH ", 0.3)
	if err != nil || policy.Name() != AcceptMetropolis {
		t.Fatalf("policy=%v err=%v", policy, err)
	}
	policy, err = AcceptanceFromName("hillclimb", 0)
	if err != nil || policy.Name() != AcceptGreedy {
		t.Fatalf("policy=%v err=%v", policy, err)
	}
	if _, err := AcceptanceFromName("coinflip", 0); !errors.Is(err, hopfield.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
