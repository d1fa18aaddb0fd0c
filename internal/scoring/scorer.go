package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"hoptopo/internal/hopfield"
)

const (
	DefaultAlpha    = 0.5
	DefaultCostMean = 5000.0
	DefaultCostStd  = 3000.0
	DefaultRuns     = 5
)

// PerformanceFunc estimates retrieval accuracy in [0,1] over runs trials.
type PerformanceFunc func(ctx context.Context, m *hopfield.Model, runs int) (float64, error)

// CostFunc returns a non-negative wiring cost; lower is better.
type CostFunc func(ctx context.Context, m *hopfield.Model) (float64, error)

type Evaluation struct {
	Performance float64 `json:"performance"`
	Cost        float64 `json:"cost"`
	Score       float64 `json:"score"`
}

// Scorer blends retrieval performance with a standardized, negated wiring
// cost: alpha*perf + (1-alpha)*(-(cost-mean)/std).
type Scorer struct {
	Alpha       float64
	CostMean    float64
	CostStd     float64
	Runs        int
	Performance PerformanceFunc
	Cost        CostFunc
}

// NewScorer returns a scorer with the default cost normalization.
func NewScorer(alpha float64, performance PerformanceFunc, cost CostFunc) Scorer {
	return Scorer{
		Alpha:       alpha,
		CostMean:    DefaultCostMean,
		CostStd:     DefaultCostStd,
		Runs:        DefaultRuns,
		Performance: performance,
		Cost:        cost,
	}
}

func (s Scorer) Validate() error {
	if s.Performance == nil {
		return errors.New("performance function is required")
	}
	if s.Cost == nil {
		return errors.New("cost function is required")
	}
	if s.Alpha < 0 || s.Alpha > 1 || math.IsNaN(s.Alpha) {
		return fmt.Errorf("%w: alpha %v not in [0,1]", hopfield.ErrInvalidArgument, s.Alpha)
	}
	if s.CostStd <= 0 {
		return fmt.Errorf("%w: cost std must be > 0, got %v", hopfield.ErrInvalidArgument, s.CostStd)
	}
	if s.Runs <= 0 {
		return fmt.Errorf("%w: runs must be > 0, got %d", hopfield.ErrInvalidArgument, s.Runs)
	}
	return nil
}

// Combine scores an already measured (performance, cost) pair.
func (s Scorer) Combine(performance, cost float64) float64 {
	costNorm := -(cost - s.CostMean) / s.CostStd
	return s.Alpha*performance + (1-s.Alpha)*costNorm
}

func (s Scorer) Evaluate(ctx context.Context, m *hopfield.Model) (Evaluation, error) {
	perf, err := s.Performance(ctx, m, s.Runs)
	if err != nil {
		return Evaluation{}, fmt.Errorf("performance: %w", err)
	}
	cost, err := s.Cost(ctx, m)
	if err != nil {
		return Evaluation{}, fmt.Errorf("wiring cost: %w", err)
	}
	return Evaluation{Performance: perf, Cost: cost, Score: s.Combine(perf, cost)}, nil
}
