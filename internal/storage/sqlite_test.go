//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStoreNetworkAndRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "hoptopo.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	for _, n := range []struct {
		id   string
		iter int
	}{{"n2", 20}, {"n1", 10}} {
		if err := store.SaveNetwork(ctx, testNetwork(n.id, "run-1", n.iter)); err != nil {
			t.Fatalf("save network: %v", err)
		}
	}
	loaded, ok, err := store.GetNetwork(ctx, "n1")
	if err != nil {
		t.Fatalf("get network: %v", err)
	}
	if !ok || loaded.Iteration != 10 || len(loaded.Edges) != 1 {
		t.Fatalf("unexpected network loaded: ok=%t %+v", ok, loaded)
	}
	networks, err := store.ListNetworks(ctx, "run-1")
	if err != nil {
		t.Fatalf("list networks: %v", err)
	}
	if len(networks) != 2 || networks[0].ID != "n1" {
		t.Fatalf("unexpected networks: %+v", networks)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.SaveRun(ctx, testRun("late", base.Add(time.Minute))); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, testRun("early", base)); err != nil {
		t.Fatalf("save run: %v", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "early" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if _, ok, err := store.GetRun(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing run: ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "hoptopo.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if err := first.SaveRun(ctx, testRun("persisted-run", time.Now().UTC())); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.GetRun(ctx, "persisted-run")
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !ok || loaded.ID != "persisted-run" {
		t.Fatalf("expected persisted run, got ok=%t value=%+v", ok, loaded)
	}
}
