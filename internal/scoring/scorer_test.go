package scoring

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"hoptopo/internal/graph"
	"hoptopo/internal/hopfield"
)

func constPerformance(v float64) PerformanceFunc {
	return func(context.Context, *hopfield.Model, int) (float64, error) { return v, nil }
}

func constCost(v float64) CostFunc {
	return func(context.Context, *hopfield.Model) (float64, error) { return v, nil }
}

func TestScorerCombine(t *testing.T) {
	s := NewScorer(0.5, constPerformance(0.8), constCost(2000))
	got, err := s.Evaluate(context.Background(), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := 0.5*0.8 + 0.5*(-(2000.0-5000.0)/3000.0)
	if math.Abs(got.Score-want) > 1e-12 {
		t.Fatalf("score = %v, want %v", got.Score, want)
	}
	if got.Performance != 0.8 || got.Cost != 2000 {
		t.Fatalf("unexpected evaluation: %+v", got)
	}
	if s.Combine(0.8, 2000) != got.Score {
		t.Fatal("combine must match evaluate")
	}
}

func TestScorerLowerCostScoresHigher(t *testing.T) {
	s := NewScorer(0.3, constPerformance(0.5), constCost(0))
	if s.Combine(0.5, 100) <= s.Combine(0.5, 200) {
		t.Fatal("lower cost must score higher")
	}
}

func TestScorerValidate(t *testing.T) {
	valid := NewScorer(0.5, constPerformance(0), constCost(0))
	if err := valid.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	badAlpha := valid
	badAlpha.Alpha = 1.5
	if err := badAlpha.Validate(); !errors.Is(err, hopfield.ErrInvalidArgument) {
		t.Fatalf("expected invalid alpha, got %v", err)
	}
	badStd := valid
	badStd.CostStd = 0
	if err := badStd.Validate(); !errors.Is(err, hopfield.ErrInvalidArgument) {
		t.Fatalf("expected invalid std, got %v", err)
	}
	noPerf := valid
	noPerf.Performance = nil
	if err := noPerf.Validate(); err == nil {
		t.Fatal("expected error for missing performance function")
	}
}

func TestScorerPropagatesOracleErrors(t *testing.T) {
	boom := errors.New("boom")
	s := NewScorer(0.5, func(context.Context, *hopfield.Model, int) (float64, error) { return 0, boom }, constCost(0))
	if _, err := s.Evaluate(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped oracle error, got %v", err)
	}
}

func TestOneStepRecallOnFullyConnected(t *testing.T) {
	patterns, err := hopfield.NewPatterns([]hopfield.Pattern{{1, 0, 1, 0, 1, 0, 1, 0}})
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}
	m, err := hopfield.FullyConnected(patterns)
	if err != nil {
		t.Fatalf("fully connected: %v", err)
	}
	perf, err := OneStepRecall(rand.New(rand.NewSource(1)))(context.Background(), m, 10)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if perf != 1 {
		t.Fatalf("single stored pattern should be fully recalled, got %v", perf)
	}

	empty, err := hopfield.Empty(patterns)
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	perf, err = OneStepRecall(rand.New(rand.NewSource(1)))(context.Background(), empty, 10)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	want := 7.0 / 8.0
	if math.Abs(perf-want) > 1e-12 {
		t.Fatalf("edgeless network keeps the corrupted bit, got %v want %v", perf, want)
	}
}

func TestSignatureWiringCost(t *testing.T) {
	patterns, err := hopfield.NewPatterns([]hopfield.Pattern{{0, 0, 1}, {0, 1, 1}})
	if err != nil {
		t.Fatalf("patterns: %v", err)
	}
	g, err := graph.New(3)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	_ = g.SetEdge(0, 1, true)
	_ = g.SetEdge(0, 2, true)
	m, err := hopfield.NewTrained(g, patterns)
	if err != nil {
		t.Fatalf("trained: %v", err)
	}

	cost, err := SignatureWiringCost(DefaultEpsilon)(context.Background(), m)
	if err != nil {
		t.Fatalf("cost: %v", err)
	}
	// node 0 at (0,0), node 1 at (0,1), node 2 "11" flips to (0,0).
	want := (1 + DefaultEpsilon) + (0 + DefaultEpsilon)
	if math.Abs(cost-want) > 1e-12 {
		t.Fatalf("cost = %v, want %v", cost, want)
	}
}
