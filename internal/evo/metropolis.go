package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"hoptopo/internal/hopfield"
	"hoptopo/internal/scoring"
	"hoptopo/internal/topology"
)

const (
	DefaultWarmStartFloor    = 0.4
	DefaultWarmStartAttempts = 1000
	DefaultGroupStatEvery    = 5
	DefaultBeta              = 0.3
)

var ErrWarmStartExhausted = errors.New("warm start did not reach the score floor")

// Snapshotter persists intermediate models. Failures are logged and do not
// affect the search.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, iteration int, m *hopfield.Model) error
}

type Config struct {
	// Patterns and EdgeCount seed the random warm start when Initial is nil.
	Patterns  *hopfield.Patterns
	EdgeCount int
	Initial   *hopfield.Model

	Scorer scoring.Scorer

	MaxIter      int
	MovesPerIter int
	// Moves overrides MovesPerIter when set.
	Moves MoveCountPolicy

	// Acceptance and Beta both left zero select Metropolis with DefaultBeta.
	// Beta 0 with an explicit Acceptance accepts every downhill proposal.
	Acceptance string
	Beta       float64
	// Policy overrides Acceptance and Beta when set.
	Policy   AcceptancePolicy
	Proposal string

	// WarmStartFloor of 0 uses DefaultWarmStartFloor; a negative floor keeps
	// the first random draw.
	WarmStartFloor    float64
	WarmStartAttempts int
	GroupStatEvery    int

	SaveFreq    int
	Snapshotter Snapshotter

	Rand   *rand.Rand
	Logger *slog.Logger
}

type History struct {
	Performance []float64 `json:"performance"`
	Cost        []float64 `json:"cost"`
	InGroup     []float64 `json:"in_group"`
}

type Result struct {
	Best           *hopfield.Model
	BestScore      float64
	BestEvaluation scoring.Evaluation

	Current      *hopfield.Model
	CurrentScore float64

	History               History
	Iterations            int
	Accepted              int
	Rejected              int
	ConsecutiveRejections int
	WarmStartAttempts     int
}

// Optimizer runs a single Metropolis-Hastings chain over topologies with a
// fixed node set.
type Optimizer struct {
	cfg      Config
	policy   AcceptancePolicy
	proposer *proposer
	logger   *slog.Logger
}

func NewOptimizer(cfg Config) (*Optimizer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy := cfg.Policy
	if policy == nil {
		p, err := AcceptanceFromName(cfg.Acceptance, cfg.Beta)
		if err != nil {
			return nil, err
		}
		policy = p
	}
	moves := cfg.Moves
	if moves == nil {
		moves = ConstMoves{Count: cfg.MovesPerIter}
	}
	prop, err := newProposer(cfg.Proposal, cfg.Rand, moves)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		cfg:      cfg,
		policy:   policy,
		proposer: prop,
		logger:   logger.With(slog.String("component", "metropolis")),
	}, nil
}

// Optimize is NewOptimizer followed by Run.
func Optimize(ctx context.Context, cfg Config) (Result, error) {
	o, err := NewOptimizer(cfg)
	if err != nil {
		return Result{}, err
	}
	return o.Run(ctx)
}

func (c Config) withDefaults() Config {
	if c.Policy == nil && c.Acceptance == "" && c.Beta == 0 {
		c.Acceptance = AcceptMetropolis
		c.Beta = DefaultBeta
	}
	if c.MovesPerIter == 0 {
		c.MovesPerIter = 1
	}
	if c.WarmStartFloor == 0 {
		c.WarmStartFloor = DefaultWarmStartFloor
	}
	if c.WarmStartAttempts == 0 {
		c.WarmStartAttempts = DefaultWarmStartAttempts
	}
	if c.GroupStatEvery == 0 {
		c.GroupStatEvery = DefaultGroupStatEvery
	}
	return c
}

func (c Config) Validate() error {
	if c.Rand == nil {
		return errors.New("random source is required")
	}
	if err := c.Scorer.Validate(); err != nil {
		return err
	}
	if c.MaxIter < 0 {
		return fmt.Errorf("%w: max iterations must be >= 0, got %d", hopfield.ErrInvalidArgument, c.MaxIter)
	}
	if c.MovesPerIter < 0 {
		return fmt.Errorf("%w: moves per iteration must be > 0, got %d", hopfield.ErrInvalidArgument, c.MovesPerIter)
	}
	if c.WarmStartAttempts < 0 {
		return fmt.Errorf("%w: warm start attempts must be > 0, got %d", hopfield.ErrInvalidArgument, c.WarmStartAttempts)
	}
	if c.GroupStatEvery < 0 {
		return fmt.Errorf("%w: group stat cadence must be > 0, got %d", hopfield.ErrInvalidArgument, c.GroupStatEvery)
	}
	if c.SaveFreq < 0 {
		return fmt.Errorf("%w: save frequency must be >= 0, got %d", hopfield.ErrInvalidArgument, c.SaveFreq)
	}
	if c.Initial != nil {
		if c.Patterns != nil && c.Patterns.Nodes() != c.Initial.NumNodes() {
			return fmt.Errorf("%w: patterns have %d nodes, initial model has %d", hopfield.ErrInvalidArgument, c.Patterns.Nodes(), c.Initial.NumNodes())
		}
		return nil
	}
	if c.Patterns == nil {
		return fmt.Errorf("%w: patterns or an initial model are required", hopfield.ErrInvalidArgument)
	}
	n := c.Patterns.Nodes()
	if c.EdgeCount <= 0 || c.EdgeCount > n*(n-1)/2 {
		return fmt.Errorf("%w: edge count %d not in [1,%d]", hopfield.ErrInvalidArgument, c.EdgeCount, n*(n-1)/2)
	}
	return nil
}

// Run searches until MaxIter iterations complete or ctx is cancelled. On
// error the returned Result holds every iteration completed so far.
func (o *Optimizer) Run(ctx context.Context) (Result, error) {
	cfg := o.cfg
	var res Result

	current, eval, attempts, err := o.initial(ctx)
	res.WarmStartAttempts = attempts
	if err != nil {
		return res, err
	}
	res.Current, res.CurrentScore = current, eval.Score
	res.Best, res.BestScore, res.BestEvaluation = current, eval.Score, eval
	res.History = History{Performance: []float64{}, Cost: []float64{}, InGroup: []float64{}}

	o.logger.Info("search started",
		slog.Int("nodes", current.NumNodes()),
		slog.Int("edges", current.NumEdges()),
		slog.Int("max_iter", cfg.MaxIter),
		slog.String("acceptance", o.policy.Name()),
		slog.String("proposal", o.proposer.kind),
		slog.Float64("score", eval.Score),
	)

	for res.Iterations < cfg.MaxIter {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		run := res.Iterations

		prop, opName, err := o.proposer.propose(ctx, res.Current, run)
		if err != nil {
			return res, fmt.Errorf("iteration %d: %w", run, err)
		}
		propEval, err := cfg.Scorer.Evaluate(ctx, prop)
		if err != nil {
			return res, fmt.Errorf("iteration %d: score proposal: %w", run, err)
		}
		accepted := o.policy.Accept(res.CurrentScore, propEval.Score, cfg.Rand)
		if accepted {
			res.Current = prop
			res.Accepted++
			res.ConsecutiveRejections = 0
		} else {
			res.Rejected++
			res.ConsecutiveRejections++
		}

		// The retained model is re-scored every iteration, even after a
		// rejection; the oracles may be stochastic.
		curEval, err := cfg.Scorer.Evaluate(ctx, res.Current)
		if err != nil {
			return res, fmt.Errorf("iteration %d: score current: %w", run, err)
		}
		res.CurrentScore = curEval.Score
		res.History.Performance = append(res.History.Performance, curEval.Performance)
		res.History.Cost = append(res.History.Cost, curEval.Cost)
		if run%cfg.GroupStatEvery == 0 {
			res.History.InGroup = append(res.History.InGroup, topology.InGroupFraction(res.Current))
		}
		if curEval.Score > res.BestScore {
			res.Best, res.BestScore, res.BestEvaluation = res.Current, curEval.Score, curEval
		}

		o.logger.Debug("iteration",
			slog.Int("run", run),
			slog.String("op", opName),
			slog.Bool("accepted", accepted),
			slog.Float64("proposal_score", propEval.Score),
			slog.Float64("score", curEval.Score),
			slog.Float64("best", res.BestScore),
		)

		res.Iterations++
		if cfg.SaveFreq > 0 && cfg.Snapshotter != nil && res.Iterations%cfg.SaveFreq == 0 {
			if err := cfg.Snapshotter.SaveSnapshot(ctx, res.Iterations, res.Current); err != nil {
				o.logger.Warn("snapshot failed", slog.Int("iteration", res.Iterations), slog.String("error", err.Error()))
			}
		}
	}

	o.logger.Info("search finished",
		slog.Int("iterations", res.Iterations),
		slog.Int("accepted", res.Accepted),
		slog.Int("rejected", res.Rejected),
		slog.Float64("best", res.BestScore),
	)
	return res, nil
}

// initial scores the configured model, or draws random topologies until
// one reaches the warm start floor.
func (o *Optimizer) initial(ctx context.Context) (*hopfield.Model, scoring.Evaluation, int, error) {
	cfg := o.cfg
	if cfg.Initial != nil {
		m := cfg.Initial.Clone()
		eval, err := cfg.Scorer.Evaluate(ctx, m)
		if err != nil {
			return nil, scoring.Evaluation{}, 0, fmt.Errorf("score initial model: %w", err)
		}
		return m, eval, 0, nil
	}

	for attempt := 1; attempt <= cfg.WarmStartAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, scoring.Evaluation{}, attempt - 1, err
		}
		m, err := topology.RandomModel(cfg.Rand, cfg.Patterns, cfg.EdgeCount)
		if err != nil {
			return nil, scoring.Evaluation{}, attempt, err
		}
		eval, err := cfg.Scorer.Evaluate(ctx, m)
		if err != nil {
			return nil, scoring.Evaluation{}, attempt, fmt.Errorf("score warm start: %w", err)
		}
		o.logger.Debug("warm start", slog.Int("attempt", attempt), slog.Float64("score", eval.Score))
		if eval.Score >= cfg.WarmStartFloor {
			return m, eval, attempt, nil
		}
	}
	return nil, scoring.Evaluation{}, cfg.WarmStartAttempts, fmt.Errorf("%w: %d attempts below %.3f", ErrWarmStartExhausted, cfg.WarmStartAttempts, cfg.WarmStartFloor)
}
