package hoptopo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"hoptopo/internal/evo"
	"hoptopo/internal/hopfield"
	"hoptopo/internal/model"
	"hoptopo/internal/scoring"
	"hoptopo/internal/storage"
	"hoptopo/internal/topology"
)

const (
	defaultDBPath       = "hoptopo.db"
	defaultNodes        = 50
	defaultPatternCount = 3
	defaultPatternBias  = 0.5
	defaultMaxIter      = 500
	defaultInGroupProb  = 1.0
	defaultOutGroupProb = 0.1

	defaultMoveMultiplier = 0.05
	defaultMoveDecay      = 0.99

	rewiredSuffix = "+rewired"
)

const (
	BuilderPrune   = "prune"
	BuilderLattice = "lattice"
	BuilderSBM     = "sbm"
	BuilderRandom  = "random"
)

var ErrNotFound = errors.New("not found")

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger

	initOnce sync.Once
	initErr  error
}

// PatternSpec selects the stored patterns of a new network. Explicit States
// win over generated ones.
type PatternSpec struct {
	States [][]int
	Nodes  int
	Count  int
	Bias   float64
}

type BuildRequest struct {
	Builder  string
	Patterns PatternSpec
	Seed     int64
	// Edges is the target edge count for prune, sbm and random.
	Edges int
	// K and MutualOnly configure the lattice builder.
	K          int
	MutualOnly bool
	// GroupProbs configures sbm. When nil, nodes of one group connect with
	// InGroupProb and nodes of different groups with OutGroupProb before
	// rescaling.
	GroupProbs   topology.GroupEdgeProbs
	InGroupProb  float64
	OutGroupProb float64
	// RewireProb > 0 rewires each built edge with that probability before
	// the network is scored.
	RewireProb float64
	Scoring    ScoringOptions
}

// ScoringOptions fields left zero (or nil) use the scoring defaults.
type ScoringOptions struct {
	Alpha    *float64
	CostMean float64
	CostStd  float64
	Runs     int
	Epsilon  float64
}

type BuildSummary struct {
	NetworkID  string
	Builder    string
	Nodes      int
	Edges      int
	InGroup    float64
	Evaluation scoring.Evaluation
}

type OptimizeRequest struct {
	// NetworkID starts every chain from a stored network. Otherwise each chain
	// warm-starts from random topologies with Edges edges over Patterns.
	NetworkID string
	Patterns  PatternSpec
	Edges     int

	Seed         int64
	MaxIter      int
	MovesPerIter int
	// MovePolicy is const, ecount_linear or annealed. MovesPerIter is the
	// const count and the annealed starting count.
	MovePolicy     string
	MoveMultiplier float64
	MaxMoves       int
	MoveDecay      float64
	Acceptance     string
	// Beta nil uses evo.DefaultBeta.
	Beta     *float64
	Proposal string
	SaveFreq int
	Chains   int
	Workers  int
	Scoring  ScoringOptions
}

type ChainSummary struct {
	RunID         string
	BestNetworkID string
	BestScore     float64
	Iterations    int
	Accepted      int
	Rejected      int
	History       evo.History
	Snapshots     []string
}

type OptimizeSummary struct {
	Chains        []ChainSummary
	BestRunID     string
	BestNetworkID string
	BestScore     float64
	// Alpha and Beta are the values in effect after defaults.
	Alpha float64
	Beta  float64
}

type RunsRequest struct {
	Limit int
}

type ExportRequest struct {
	NetworkID string
	RunID     string
	Latest    bool
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:  store,
		logger: logger.With(slog.String("store", storeKind)),
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.store.Init(ctx)
	})
	return c.initErr
}

// Build constructs, scores and stores one network.
func (c *Client) Build(ctx context.Context, req BuildRequest) (BuildSummary, error) {
	if err := c.Init(ctx); err != nil {
		return BuildSummary{}, err
	}
	rng := rand.New(rand.NewSource(req.Seed))
	patterns, err := req.Patterns.resolve(rng)
	if err != nil {
		return BuildSummary{}, err
	}

	var m *hopfield.Model
	switch req.Builder {
	case BuilderPrune:
		m, err = topology.Prune(rng, patterns, req.Edges)
	case BuilderLattice:
		m, err = topology.Lattice(rng, patterns, req.K, req.MutualOnly)
	case BuilderSBM:
		probs := req.GroupProbs
		if probs == nil {
			probs = uniformGroupProbs(patterns.Len(), valueOr(req.InGroupProb, defaultInGroupProb), valueOr(req.OutGroupProb, defaultOutGroupProb))
		}
		m, err = topology.StochasticBlockModel(rng, probs, patterns, req.Edges)
	case BuilderRandom, "":
		req.Builder = BuilderRandom
		m, err = topology.RandomModel(rng, patterns, req.Edges)
	default:
		return BuildSummary{}, fmt.Errorf("%w: unsupported builder %q", hopfield.ErrInvalidArgument, req.Builder)
	}
	if err != nil {
		return BuildSummary{}, fmt.Errorf("build %s: %w", req.Builder, err)
	}
	if req.RewireProb != 0 {
		if m, err = evo.RewiredCopy(rng, m, req.RewireProb); err != nil {
			return BuildSummary{}, fmt.Errorf("rewire %s: %w", req.Builder, err)
		}
		req.Builder += rewiredSuffix
	}

	scorer := req.Scoring.scorer(rand.New(rand.NewSource(req.Seed + 1)))
	eval, err := scorer.Evaluate(ctx, m)
	if err != nil {
		return BuildSummary{}, err
	}

	id := uuid.NewString()
	if err := c.store.SaveNetwork(ctx, storage.NetworkFromModel(m, id, "", req.Builder, 0)); err != nil {
		return BuildSummary{}, err
	}
	c.logger.Info("network built",
		slog.String("network_id", id),
		slog.String("builder", req.Builder),
		slog.Int("nodes", m.NumNodes()),
		slog.Int("edges", m.NumEdges()),
		slog.Float64("score", eval.Score),
	)
	return BuildSummary{
		NetworkID:  id,
		Builder:    req.Builder,
		Nodes:      m.NumNodes(),
		Edges:      m.NumEdges(),
		InGroup:    topology.InGroupFraction(m),
		Evaluation: eval,
	}, nil
}

// Optimize runs one or more independent chains and stores a run record, the
// best network and any snapshots for each.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (OptimizeSummary, error) {
	if err := c.Init(ctx); err != nil {
		return OptimizeSummary{}, err
	}
	if req.MaxIter == 0 {
		req.MaxIter = defaultMaxIter
	}
	if req.MovesPerIter <= 0 {
		req.MovesPerIter = 1
	}
	if req.Beta == nil {
		req.Beta = Float(evo.DefaultBeta)
	}
	req.MovePolicy = evo.NormalizeMovePolicyName(req.MovePolicy)
	moves, err := evo.MovePolicyFromName(req.MovePolicy, evo.MoveSettings{
		Count:      req.MovesPerIter,
		Multiplier: valueOr(req.MoveMultiplier, defaultMoveMultiplier),
		MaxCount:   req.MaxMoves,
		Decay:      valueOr(req.MoveDecay, defaultMoveDecay),
	})
	if err != nil {
		return OptimizeSummary{}, err
	}
	if req.Chains <= 0 {
		req.Chains = 1
	}
	if req.Workers <= 0 {
		req.Workers = min(req.Chains, 4)
	}
	req.Acceptance = evo.NormalizeAcceptanceName(req.Acceptance)
	req.Proposal = evo.NormalizeProposalName(req.Proposal)

	var (
		initial  *hopfield.Model
		patterns *hopfield.Patterns
	)
	if req.NetworkID != "" {
		rec, err := c.Network(ctx, req.NetworkID)
		if err != nil {
			return OptimizeSummary{}, err
		}
		initial, err = hopfield.FromRecord(rec)
		if err != nil {
			return OptimizeSummary{}, err
		}
		patterns = initial.Patterns()
		req.Edges = initial.NumEdges()
	} else {
		patterns, err = req.Patterns.resolve(rand.New(rand.NewSource(req.Seed)))
		if err != nil {
			return OptimizeSummary{}, err
		}
	}

	runIDs := make([]string, req.Chains)
	snapshots := make([]*storage.RunSnapshotter, req.Chains)
	for i := range runIDs {
		runIDs[i] = uuid.NewString()
		snapshots[i] = storage.NewRunSnapshotter(c.store, runIDs[i], "metropolis")
	}

	out, runErr := evo.RunChains(ctx, req.Chains, req.Workers, req.Seed, func(chain int, rng *rand.Rand) (evo.Config, error) {
		return evo.Config{
			Patterns:     patterns,
			EdgeCount:    req.Edges,
			Initial:      initial,
			Scorer:       req.Scoring.scorer(rand.New(rand.NewSource(rng.Int63()))),
			MaxIter:      req.MaxIter,
			MovesPerIter: req.MovesPerIter,
			Moves:        moves,
			Acceptance:   req.Acceptance,
			Beta:         *req.Beta,
			Proposal:     req.Proposal,
			SaveFreq:     req.SaveFreq,
			Snapshotter:  snapshots[chain],
			Rand:         rng,
			Logger:       c.logger.With(slog.String("run_id", runIDs[chain])),
		}, nil
	})

	summary := OptimizeSummary{
		Chains: make([]ChainSummary, 0, req.Chains),
		Alpha:  req.Scoring.scorer(nil).Alpha,
		Beta:   *req.Beta,
	}
	now := time.Now().UTC()
	for i, res := range out.Results {
		if res.Best == nil {
			continue
		}
		chain, err := c.saveChain(ctx, req, i, runIDs[i], now, res)
		if err != nil {
			return summary, err
		}
		chain.Snapshots = snapshots[i].Saved()
		summary.Chains = append(summary.Chains, chain)
		if i == out.Best {
			summary.BestRunID = chain.RunID
			summary.BestNetworkID = chain.BestNetworkID
			summary.BestScore = chain.BestScore
		}
	}
	if runErr != nil {
		return summary, runErr
	}
	return summary, nil
}

func (c *Client) saveChain(ctx context.Context, req OptimizeRequest, chain int, runID string, created time.Time, res evo.Result) (ChainSummary, error) {
	networkID := uuid.NewString()
	if err := c.store.SaveNetwork(ctx, storage.NetworkFromModel(res.Best, networkID, runID, "metropolis", res.Iterations)); err != nil {
		return ChainSummary{}, err
	}
	scorer := req.Scoring.scorer(nil)
	run := model.RunRecord{
		VersionedRecord: model.CurrentVersion(),
		ID:              runID,
		Seed:            req.Seed + int64(chain),
		Chain:           chain,
		Alpha:           scorer.Alpha,
		Beta:            *req.Beta,
		Acceptance:      req.Acceptance,
		Proposal:        req.Proposal,
		MovePolicy:      req.MovePolicy,
		MaxIter:         req.MaxIter,
		MovesPerIter:    req.MovesPerIter,
		EdgeCount:       res.Best.NumEdges(),
		BestScore:       res.BestScore,
		BestNetworkID:   networkID,
		Iterations:      res.Iterations,
		Accepted:        res.Accepted,
		Rejected:        res.Rejected,
		Performance:     res.History.Performance,
		Cost:            res.History.Cost,
		InGroup:         res.History.InGroup,
		CreatedAt:       created.Add(time.Duration(chain)),
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return ChainSummary{}, err
	}
	return ChainSummary{
		RunID:         runID,
		BestNetworkID: networkID,
		BestScore:     res.BestScore,
		Iterations:    res.Iterations,
		Accepted:      res.Accepted,
		Rejected:      res.Rejected,
		History:       res.History,
	}, nil
}

// Runs lists stored runs, most recent first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return runs, nil
}

func (c *Client) Run(ctx context.Context, id string) (model.RunRecord, error) {
	if err := c.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, id)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, nil
}

func (c *Client) Network(ctx context.Context, id string) (model.NetworkRecord, error) {
	if err := c.Init(ctx); err != nil {
		return model.NetworkRecord{}, err
	}
	network, ok, err := c.store.GetNetwork(ctx, id)
	if err != nil {
		return model.NetworkRecord{}, err
	}
	if !ok {
		return model.NetworkRecord{}, fmt.Errorf("network %s: %w", id, ErrNotFound)
	}
	return network, nil
}

// Networks lists the snapshots and best network of a run by iteration.
func (c *Client) Networks(ctx context.Context, runID string) ([]model.NetworkRecord, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListNetworks(ctx, runID)
}

// Export writes a network as indented JSON. The network is named directly or
// as the best network of a run, or of the latest run.
func (c *Client) Export(ctx context.Context, req ExportRequest, w io.Writer) (string, error) {
	set := 0
	for _, v := range []bool{req.NetworkID != "", req.RunID != "", req.Latest} {
		if v {
			set++
		}
	}
	if set != 1 {
		return "", errors.New("export requires exactly one of network id, run id or latest")
	}
	id := req.NetworkID
	if req.Latest {
		runs, err := c.Runs(ctx, RunsRequest{Limit: 1})
		if err != nil {
			return "", err
		}
		if len(runs) == 0 {
			return "", fmt.Errorf("no runs available to export: %w", ErrNotFound)
		}
		id = runs[0].BestNetworkID
	}
	if req.RunID != "" {
		run, err := c.Run(ctx, req.RunID)
		if err != nil {
			return "", err
		}
		id = run.BestNetworkID
	}
	network, err := c.Network(ctx, id)
	if err != nil {
		return "", err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(network); err != nil {
		return "", err
	}
	return id, nil
}

func (p PatternSpec) resolve(rng *rand.Rand) (*hopfield.Patterns, error) {
	if len(p.States) > 0 {
		return hopfield.PatternsFromInts(p.States)
	}
	nodes := p.Nodes
	if nodes == 0 {
		nodes = defaultNodes
	}
	count := p.Count
	if count == 0 {
		count = defaultPatternCount
	}
	return hopfield.RandomPatterns(rng, nodes, count, valueOr(p.Bias, defaultPatternBias))
}

// scorer pairs the one-step recall proxy with the signature wiring cost. A
// nil rng is enough when only the normalization constants are needed.
func (o ScoringOptions) scorer(rng *rand.Rand) scoring.Scorer {
	alpha := scoring.DefaultAlpha
	if o.Alpha != nil {
		alpha = *o.Alpha
	}
	s := scoring.NewScorer(alpha, scoring.OneStepRecall(rng), scoring.SignatureWiringCost(valueOr(o.Epsilon, scoring.DefaultEpsilon)))
	if o.CostMean != 0 {
		s.CostMean = o.CostMean
	}
	if o.CostStd != 0 {
		s.CostStd = o.CostStd
	}
	if o.Runs != 0 {
		s.Runs = o.Runs
	}
	return s
}

func uniformGroupProbs(patternCount int, in, out float64) topology.GroupEdgeProbs {
	classes := hopfield.OrientationClasses(patternCount)
	probs := make(topology.GroupEdgeProbs, len(classes))
	for _, a := range classes {
		probs[a] = make(map[string]float64, len(classes))
		for _, b := range classes {
			if a == b {
				probs[a][b] = in
			} else {
				probs[a][b] = out
			}
		}
	}
	return probs
}

// Float returns a pointer to v, for the optional fields of the requests.
func Float(v float64) *float64 {
	return &v
}

func valueOr(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
