package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"hoptopo/pkg/hoptopo"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "build":
		return runBuild(ctx, args[1:])
	case "optimize":
		return runOptimize(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type commonFlags struct {
	configPath *string
	storeKind  *string
	dbPath     *string
	seed       *int64
	logLevel   *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	defaults := DefaultFileConfig()
	return commonFlags{
		configPath: fs.String("config", "", "optional YAML config path"),
		storeKind:  fs.String("store", defaults.Store, "store backend: memory|sqlite"),
		dbPath:     fs.String("db-path", defaults.DBPath, "sqlite database path"),
		seed:       fs.Int64("seed", defaults.Seed, "rng seed"),
		logLevel:   fs.String("log-level", defaults.LogLevel, "log level: debug|info|warn|error"),
	}
}

// load reads the config file and applies the common flags set on fs.
func (f commonFlags) load(fs *flag.FlagSet) (FileConfig, map[string]bool, error) {
	setFlags := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		setFlags[fl.Name] = true
	})
	cfg, err := LoadConfig(*f.configPath)
	if err != nil {
		return FileConfig{}, nil, err
	}
	if setFlags["store"] {
		cfg.Store = *f.storeKind
	}
	if setFlags["db-path"] {
		cfg.DBPath = *f.dbPath
	}
	if setFlags["seed"] {
		cfg.Seed = *f.seed
	}
	if setFlags["log-level"] {
		cfg.LogLevel = *f.logLevel
	}
	return cfg, setFlags, nil
}

func openClient(cfg FileConfig) (*hoptopo.Client, error) {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return hoptopo.New(hoptopo.Options{StoreKind: cfg.Store, DBPath: cfg.DBPath, Logger: logger})
}

func runBuild(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	common := addCommonFlags(fs)
	defaults := DefaultFileConfig()
	builder := fs.String("builder", defaults.Build.Builder, "topology builder: prune|lattice|sbm|random")
	nodes := fs.Int("nodes", defaults.Patterns.Nodes, "node count")
	patternCount := fs.Int("patterns", defaults.Patterns.Count, "stored pattern count")
	bias := fs.Float64("bias", defaults.Patterns.Bias, "probability of a firing bit in generated patterns")
	edges := fs.Int("edges", defaults.Build.Edges, "target edge count for prune|sbm|random")
	k := fs.Int("k", defaults.Build.K, "neighbour count for lattice")
	mutual := fs.Bool("mutual", false, "lattice keeps only mutual nearest neighbours")
	inProb := fs.Float64("in-prob", defaults.Build.InGroupProb, "sbm edge probability within a group before rescaling")
	outProb := fs.Float64("out-prob", defaults.Build.OutGroupProb, "sbm edge probability across groups before rescaling")
	rewireProb := fs.Float64("rewire-prob", defaults.Build.RewireProb, "rewire each built edge with this probability (0 disables)")
	alpha := fs.Float64("alpha", defaults.Scoring.Alpha, "weight of performance against wiring cost")
	jsonOut := fs.Bool("json", false, "emit build summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, setFlags, err := common.load(fs)
	if err != nil {
		return err
	}
	if setFlags["builder"] {
		cfg.Build.Builder = *builder
	}
	if setFlags["nodes"] {
		cfg.Patterns.Nodes = *nodes
		cfg.Patterns.States = nil
	}
	if setFlags["patterns"] {
		cfg.Patterns.Count = *patternCount
		cfg.Patterns.States = nil
	}
	if setFlags["bias"] {
		cfg.Patterns.Bias = *bias
	}
	if setFlags["edges"] {
		cfg.Build.Edges = *edges
	}
	if setFlags["k"] {
		cfg.Build.K = *k
	}
	if setFlags["mutual"] {
		cfg.Build.MutualOnly = *mutual
	}
	if setFlags["in-prob"] {
		cfg.Build.InGroupProb = *inProb
	}
	if setFlags["out-prob"] {
		cfg.Build.OutGroupProb = *outProb
	}
	if setFlags["rewire-prob"] {
		cfg.Build.RewireProb = *rewireProb
	}
	if setFlags["alpha"] {
		cfg.Scoring.Alpha = *alpha
	}

	client, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Build(ctx, hoptopo.BuildRequest{
		Builder:      cfg.Build.Builder,
		Patterns:     cfg.patternSpec(),
		Seed:         cfg.Seed,
		Edges:        cfg.Build.Edges,
		K:            cfg.Build.K,
		MutualOnly:   cfg.Build.MutualOnly,
		InGroupProb:  cfg.Build.InGroupProb,
		OutGroupProb: cfg.Build.OutGroupProb,
		RewireProb:   cfg.Build.RewireProb,
		Scoring:      cfg.scoringOptions(),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary)
	}
	fmt.Fprintf(stdout, "network_id=%s builder=%s nodes=%d edges=%d in_group=%.4f performance=%.6f cost=%.6f score=%.6f\n",
		summary.NetworkID,
		summary.Builder,
		summary.Nodes,
		summary.Edges,
		summary.InGroup,
		summary.Evaluation.Performance,
		summary.Evaluation.Cost,
		summary.Evaluation.Score,
	)
	return nil
}

func runOptimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	common := addCommonFlags(fs)
	defaults := DefaultFileConfig()
	networkID := fs.String("network-id", "", "start every chain from a stored network")
	nodes := fs.Int("nodes", defaults.Patterns.Nodes, "node count for random warm starts")
	patternCount := fs.Int("patterns", defaults.Patterns.Count, "stored pattern count for random warm starts")
	edges := fs.Int("edges", defaults.Optimize.Edges, "edge count for random warm starts")
	maxIter := fs.Int("max-iter", defaults.Optimize.MaxIter, "iterations per chain")
	moves := fs.Int("moves", defaults.Optimize.MovesPerIter, "edge moves per proposal (annealed starting count)")
	movePolicy := fs.String("move-policy", defaults.Optimize.MovePolicy, "move count policy: const|ecount_linear|annealed")
	moveMultiplier := fs.Float64("move-multiplier", defaults.Optimize.MoveMultiplier, "ecount_linear moves per edge")
	maxMoves := fs.Int("max-moves", defaults.Optimize.MaxMoves, "ecount_linear move cap (0 disables)")
	moveDecay := fs.Float64("move-decay", defaults.Optimize.MoveDecay, "annealed per-iteration decay in (0,1]")
	acceptance := fs.String("acceptance", defaults.Optimize.Acceptance, "acceptance policy: metropolis|greedy")
	beta := fs.Float64("beta", defaults.Optimize.Beta, "metropolis inverse temperature")
	proposal := fs.String("proposal", defaults.Optimize.Proposal, "proposal kind: rewire|add|remove|mixed")
	saveFreq := fs.Int("save-freq", defaults.Optimize.SaveFreq, "snapshot cadence in iterations (0 disables)")
	chains := fs.Int("chains", defaults.Optimize.Chains, "independent chain count")
	workers := fs.Int("workers", defaults.Optimize.Workers, "chains run concurrently")
	alpha := fs.Float64("alpha", defaults.Scoring.Alpha, "weight of performance against wiring cost")
	jsonOut := fs.Bool("json", false, "emit optimize summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, setFlags, err := common.load(fs)
	if err != nil {
		return err
	}
	if setFlags["network-id"] {
		cfg.Optimize.NetworkID = *networkID
	}
	if setFlags["nodes"] {
		cfg.Patterns.Nodes = *nodes
		cfg.Patterns.States = nil
	}
	if setFlags["patterns"] {
		cfg.Patterns.Count = *patternCount
		cfg.Patterns.States = nil
	}
	if setFlags["edges"] {
		cfg.Optimize.Edges = *edges
	}
	if setFlags["max-iter"] {
		cfg.Optimize.MaxIter = *maxIter
	}
	if setFlags["moves"] {
		cfg.Optimize.MovesPerIter = *moves
	}
	if setFlags["move-policy"] {
		cfg.Optimize.MovePolicy = *movePolicy
	}
	if setFlags["move-multiplier"] {
		cfg.Optimize.MoveMultiplier = *moveMultiplier
	}
	if setFlags["max-moves"] {
		cfg.Optimize.MaxMoves = *maxMoves
	}
	if setFlags["move-decay"] {
		cfg.Optimize.MoveDecay = *moveDecay
	}
	if setFlags["acceptance"] {
		cfg.Optimize.Acceptance = *acceptance
	}
	if setFlags["beta"] {
		cfg.Optimize.Beta = *beta
	}
	if setFlags["proposal"] {
		cfg.Optimize.Proposal = *proposal
	}
	if setFlags["save-freq"] {
		cfg.Optimize.SaveFreq = *saveFreq
	}
	if setFlags["chains"] {
		cfg.Optimize.Chains = *chains
	}
	if setFlags["workers"] {
		cfg.Optimize.Workers = *workers
	}
	if setFlags["alpha"] {
		cfg.Scoring.Alpha = *alpha
	}
	if cfg.Optimize.MaxIter <= 0 {
		return errors.New("max-iter must be > 0")
	}

	client, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Optimize(ctx, hoptopo.OptimizeRequest{
		NetworkID:      cfg.Optimize.NetworkID,
		Patterns:       cfg.patternSpec(),
		Edges:          cfg.Optimize.Edges,
		Seed:           cfg.Seed,
		MaxIter:        cfg.Optimize.MaxIter,
		MovesPerIter:   cfg.Optimize.MovesPerIter,
		MovePolicy:     cfg.Optimize.MovePolicy,
		MoveMultiplier: cfg.Optimize.MoveMultiplier,
		MaxMoves:       cfg.Optimize.MaxMoves,
		MoveDecay:      cfg.Optimize.MoveDecay,
		Acceptance:     cfg.Optimize.Acceptance,
		Beta:           hoptopo.Float(cfg.Optimize.Beta),
		Proposal:       cfg.Optimize.Proposal,
		SaveFreq:       cfg.Optimize.SaveFreq,
		Chains:         cfg.Optimize.Chains,
		Workers:        cfg.Optimize.Workers,
		Scoring:        cfg.scoringOptions(),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary)
	}
	for _, chain := range summary.Chains {
		fmt.Fprintf(stdout, "run_id=%s best_network_id=%s best_score=%.6f iterations=%d accepted=%d rejected=%d snapshots=%d\n",
			chain.RunID,
			chain.BestNetworkID,
			chain.BestScore,
			chain.Iterations,
			chain.Accepted,
			chain.Rejected,
			len(chain.Snapshots),
		)
	}
	fmt.Fprintf(stdout, "best_run_id=%s best_network_id=%s best_score=%.6f alpha=%g beta=%g\n", summary.BestRunID, summary.BestNetworkID, summary.BestScore, summary.Alpha, summary.Beta)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	common := addCommonFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}
	cfg, _, err := common.load(fs)
	if err != nil {
		return err
	}
	client, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, hoptopo.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "run_id=%s created_at=%s seed=%d chain=%d acceptance=%s proposal=%s edges=%d iterations=%d best_score=%.6f\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			r.Seed,
			r.Chain,
			r.Acceptance,
			r.Proposal,
			r.EdgeCount,
			r.Iterations,
			r.BestScore,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	common := addCommonFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run")
	jsonOut := fs.Bool("json", false, "emit run record as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("show requires --run-id or --latest")
	}
	cfg, _, err := common.load(fs)
	if err != nil {
		return err
	}
	client, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *latest {
		runs, err := client.Runs(ctx, hoptopo.RunsRequest{Limit: 1})
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return errors.New("no runs available to show")
		}
		*runID = runs[0].ID
	}
	r, err := client.Run(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(r)
	}
	networks, err := client.Networks(ctx, r.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "run_id=%s seed=%d chain=%d alpha=%.3f beta=%.3f acceptance=%s proposal=%s\n",
		r.ID, r.Seed, r.Chain, r.Alpha, r.Beta, r.Acceptance, r.Proposal)
	fmt.Fprintf(stdout, "iterations=%d accepted=%d rejected=%d edges=%d best_score=%.6f best_network_id=%s\n",
		r.Iterations, r.Accepted, r.Rejected, r.EdgeCount, r.BestScore, r.BestNetworkID)
	if n := len(r.Performance); n > 0 {
		fmt.Fprintf(stdout, "final_performance=%.6f final_cost=%.6f\n", r.Performance[n-1], r.Cost[n-1])
	}
	if n := len(r.InGroup); n > 0 {
		fmt.Fprintf(stdout, "final_in_group=%.4f\n", r.InGroup[n-1])
	}
	for _, network := range networks {
		fmt.Fprintf(stdout, "network_id=%s iteration=%d edges=%d\n", network.ID, network.Iteration, len(network.Edges))
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	common := addCommonFlags(fs)
	networkID := fs.String("network-id", "", "network id")
	runID := fs.String("run-id", "", "export the best network of a run")
	latest := fs.Bool("latest", false, "export the best network of the most recent run")
	outPath := fs.String("out", "", "output file (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := common.load(fs)
	if err != nil {
		return err
	}
	client, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := hoptopo.ExportRequest{NetworkID: *networkID, RunID: *runID, Latest: *latest}
	if *outPath == "" {
		_, err := client.Export(ctx, req, stdout)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	id, err := client.Export(ctx, req, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported network_id=%s to=%s\n", id, filepath.Clean(*outPath))
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: hoptopoctl <build|optimize|runs|show|export> [flags]", msg)
}
