package hoptopo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"hoptopo/internal/hopfield"
	"hoptopo/internal/model"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind: "memory",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientBuildEachBuilder(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	patterns := PatternSpec{Nodes: 16, Count: 3}

	cases := []struct {
		req       BuildRequest
		wantEdges int
	}{
		{BuildRequest{Builder: BuilderPrune, Patterns: patterns, Edges: 30, Seed: 1}, 30},
		{BuildRequest{Builder: BuilderRandom, Patterns: patterns, Edges: 25, Seed: 2}, 25},
		{BuildRequest{Builder: BuilderLattice, Patterns: patterns, K: 15, Seed: 3}, 120},
		{BuildRequest{Builder: BuilderSBM, Patterns: patterns, Edges: 30, Seed: 4}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.req.Builder, func(t *testing.T) {
			summary, err := client.Build(ctx, tc.req)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if summary.NetworkID == "" || summary.Nodes != 16 {
				t.Fatalf("unexpected summary: %+v", summary)
			}
			if tc.wantEdges >= 0 && summary.Edges != tc.wantEdges {
				t.Fatalf("edges = %d, want %d", summary.Edges, tc.wantEdges)
			}
			rec, err := client.Network(ctx, summary.NetworkID)
			if err != nil {
				t.Fatalf("network: %v", err)
			}
			if rec.Builder != tc.req.Builder || len(rec.Edges) != summary.Edges {
				t.Fatalf("stored network mismatch: %+v", rec)
			}
		})
	}
}

func TestClientBuildRejectsUnknownBuilder(t *testing.T) {
	client := newTestClient(t)
	_, err := client.Build(context.Background(), BuildRequest{Builder: "ring", Patterns: PatternSpec{Nodes: 8}})
	if !errors.Is(err, hopfield.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestClientOptimizeFromStoredNetwork(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	built, err := client.Build(ctx, BuildRequest{Builder: BuilderRandom, Patterns: PatternSpec{Nodes: 12, Count: 2}, Edges: 20, Seed: 5})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	summary, err := client.Optimize(ctx, OptimizeRequest{
		NetworkID: built.NetworkID,
		Seed:      6,
		MaxIter:   10,
		SaveFreq:  5,
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(summary.Chains) != 1 || summary.BestRunID != summary.Chains[0].RunID {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	chain := summary.Chains[0]
	if chain.Iterations != 10 || len(chain.History.Performance) != 10 || len(chain.Snapshots) != 2 {
		t.Fatalf("unexpected chain: %+v", chain)
	}

	run, err := client.Run(ctx, chain.RunID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.BestNetworkID != summary.BestNetworkID || run.Acceptance != "metropolis" || run.Proposal != "rewire" {
		t.Fatalf("unexpected run record: %+v", run)
	}
	if run.EdgeCount != 20 || run.Accepted+run.Rejected != run.Iterations {
		t.Fatalf("unexpected run counters: %+v", run)
	}

	networks, err := client.Networks(ctx, chain.RunID)
	if err != nil {
		t.Fatalf("networks: %v", err)
	}
	if len(networks) != 3 {
		t.Fatalf("expected two snapshots and the best network, got %d", len(networks))
	}
	best, err := client.Network(ctx, run.BestNetworkID)
	if err != nil {
		t.Fatalf("best network: %v", err)
	}
	if _, err := hopfield.FromRecord(best); err != nil {
		t.Fatalf("restore best network: %v", err)
	}
}

func TestClientOptimizeChainsAndRuns(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Optimize(ctx, OptimizeRequest{
		Patterns:   PatternSpec{Nodes: 10, Count: 2},
		Edges:      15,
		Seed:       7,
		MaxIter:    6,
		Chains:     3,
		Workers:    2,
		Acceptance: "greedy",
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(summary.Chains) != 3 {
		t.Fatalf("chains = %d", len(summary.Chains))
	}
	for _, chain := range summary.Chains {
		if chain.BestScore > summary.BestScore {
			t.Fatalf("chain %s beats reported best", chain.RunID)
		}
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 2})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 || runs[0].Chain != 2 || runs[1].Chain != 1 {
		t.Fatalf("expected the two latest chains first: %+v", runs)
	}
}

func TestClientExport(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Optimize(ctx, OptimizeRequest{
		Patterns: PatternSpec{Nodes: 8, Count: 2},
		Edges:    10,
		Seed:     8,
		MaxIter:  3,
	})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}

	var buf bytes.Buffer
	id, err := client.Export(ctx, ExportRequest{Latest: true}, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if id != summary.BestNetworkID {
		t.Fatalf("exported %s, want %s", id, summary.BestNetworkID)
	}
	var rec model.NetworkRecord
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if rec.ID != id || rec.Nodes != 8 || len(rec.Edges) != 10 {
		t.Fatalf("unexpected export: %+v", rec)
	}

	if _, err := client.Export(ctx, ExportRequest{}, &buf); err == nil {
		t.Fatal("expected error without a selector")
	}
	if _, err := client.Export(ctx, ExportRequest{RunID: "missing"}, &buf); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientOptimizeKeepsExplicitZeroAlphaAndBeta(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	built, err := client.Build(ctx, BuildRequest{Builder: BuilderRandom, Patterns: PatternSpec{Nodes: 12, Count: 2}, Edges: 20, Seed: 11})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	cases := []struct {
		name      string
		alpha     *float64
		beta      *float64
		wantAlpha float64
		wantBeta  float64
	}{
		{name: "explicit zero", alpha: Float(0), beta: Float(0), wantAlpha: 0, wantBeta: 0},
		{name: "defaults", wantAlpha: 0.5, wantBeta: 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary, err := client.Optimize(ctx, OptimizeRequest{
				NetworkID: built.NetworkID,
				Seed:      12,
				MaxIter:   4,
				Beta:      tc.beta,
				Scoring:   ScoringOptions{Alpha: tc.alpha},
			})
			if err != nil {
				t.Fatalf("optimize: %v", err)
			}
			run, err := client.Run(ctx, summary.BestRunID)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if run.Alpha != tc.wantAlpha || run.Beta != tc.wantBeta {
				t.Fatalf("stored alpha=%v beta=%v, want %v and %v", run.Alpha, run.Beta, tc.wantAlpha, tc.wantBeta)
			}
		})
	}
}

func TestClientOptimizeMovePolicies(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	built, err := client.Build(ctx, BuildRequest{Builder: BuilderRandom, Patterns: PatternSpec{Nodes: 12, Count: 2}, Edges: 20, Seed: 13})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, req := range []OptimizeRequest{
		{MovePolicy: "ecount_linear", MoveMultiplier: 0.1, MaxMoves: 3},
		{MovePolicy: "annealed", MovesPerIter: 4, MoveDecay: 0.5},
		{MovePolicy: "annealed", MovesPerIter: 4},
	} {
		req.NetworkID = built.NetworkID
		req.Seed = 14
		req.MaxIter = 6
		summary, err := client.Optimize(ctx, req)
		if err != nil {
			t.Fatalf("optimize %s: %v", req.MovePolicy, err)
		}
		run, err := client.Run(ctx, summary.BestRunID)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if run.MovePolicy != req.MovePolicy || run.EdgeCount != 20 || run.Iterations != 6 {
			t.Fatalf("unexpected run record: %+v", run)
		}
	}

	_, err = client.Optimize(ctx, OptimizeRequest{NetworkID: built.NetworkID, MaxIter: 2, MovePolicy: "cubic"})
	if !errors.Is(err, hopfield.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestClientBuildRewired(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	base := BuildRequest{Builder: BuilderLattice, Patterns: PatternSpec{Nodes: 16, Count: 2}, K: 4, Seed: 15}

	plain, err := client.Build(ctx, base)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	rewiredReq := base
	rewiredReq.RewireProb = 1
	rewired, err := client.Build(ctx, rewiredReq)
	if err != nil {
		t.Fatalf("build rewired: %v", err)
	}
	if rewired.Builder != BuilderLattice+"+rewired" || rewired.Edges != plain.Edges {
		t.Fatalf("unexpected rewired summary: %+v (plain %+v)", rewired, plain)
	}

	restore := func(id string) *hopfield.Model {
		rec, err := client.Network(ctx, id)
		if err != nil {
			t.Fatalf("network: %v", err)
		}
		m, err := hopfield.FromRecord(rec)
		if err != nil {
			t.Fatalf("restore: %v", err)
		}
		return m
	}
	if restore(plain.NetworkID).Graph().Equal(restore(rewired.NetworkID).Graph()) {
		t.Fatal("rewiring every edge left the lattice unchanged")
	}

	rewiredReq.RewireProb = 1.5
	if _, err := client.Build(ctx, rewiredReq); !errors.Is(err, hopfield.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
