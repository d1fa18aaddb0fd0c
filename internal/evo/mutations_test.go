package evo

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"hoptopo/internal/graph"
	"hoptopo/internal/hopfield"
)

func TestAddEdgeRequiresAbsentEdge(t *testing.T) {
	m := testModel(t, 1, 8, 3, 10)
	e := m.Graph().Edges()[0]
	if err := AddEdge(m, e.I, e.J); !errors.Is(err, graph.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
	if err := AddEdge(m, 0, 9); !errors.Is(err, graph.ErrIndexOutOfRange) {
		t.Fatalf("expected index error, got %v", err)
	}
}

func TestRemoveEdgeRequiresPresentEdge(t *testing.T) {
	patterns := testPatterns(t, 2, 6, 2)
	m, err := hopfield.Empty(patterns)
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	if err := RemoveEdge(m, 0, 1); !errors.Is(err, graph.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestRemoveThenAddRestoresWeight(t *testing.T) {
	m := testModel(t, 3, 10, 4, 20)
	e := m.Graph().Edges()[5]
	before := m.Graph().WeightAt(e.I, e.J)

	if err := RemoveEdge(m, e.I, e.J); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w := m.Graph().WeightAt(e.I, e.J); w != 0 {
		t.Fatalf("removed edge kept weight %v", w)
	}
	if err := AddEdge(m, e.J, e.I); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.TrainEdge(e.I, e.J); err != nil {
		t.Fatalf("train edge: %v", err)
	}
	if w := m.Graph().WeightAt(e.I, e.J); w != before {
		t.Fatalf("restored weight %v, want %v", w, before)
	}
	requireConsistent(t, m)
}

func TestRewireTouchesOnlyTwoEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	m := testModel(t, 4, 12, 3, 25)
	before := m.Clone()

	i := m.Graph().Edges()[0].I
	j := -1
	for k := 0; k < m.NumNodes(); k++ {
		if k != i && !m.Graph().Adjacent(i, k) {
			j = k
			break
		}
	}
	if j < 0 {
		t.Fatal("test fixture needs a free neighbor")
	}
	if err := Rewire(rng, m, i, j); err != nil {
		t.Fatalf("rewire: %v", err)
	}
	m.RefreshNodes()

	if m.NumEdges() != before.NumEdges() {
		t.Fatalf("edge count %d, want %d", m.NumEdges(), before.NumEdges())
	}
	if !m.Graph().Adjacent(i, j) {
		t.Fatal("rewire target missing")
	}
	changed := 0
	for a := 0; a < m.NumNodes(); a++ {
		for b := a + 1; b < m.NumNodes(); b++ {
			if m.Graph().Adjacent(a, b) != before.Graph().Adjacent(a, b) {
				changed++
				if a != i && b != i {
					t.Fatalf("edge (%d,%d) not incident to %d changed", a, b, i)
				}
			}
		}
	}
	if changed != 2 {
		t.Fatalf("changed %d pairs, want 2", changed)
	}
	requireConsistent(t, m)

	if err := Rewire(rng, m, i, j); !errors.Is(err, graph.ErrInvalidState) {
		t.Fatalf("expected invalid state on present target, got %v", err)
	}
}

func TestRewireIsolatedNode(t *testing.T) {
	patterns := testPatterns(t, 5, 5, 2)
	m, err := hopfield.Empty(patterns)
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	if err := Rewire(rand.New(rand.NewSource(1)), m, 0, 1); !errors.Is(err, graph.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestRewireAllKeepsEdgeCount(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	m := testModel(t, 6, 20, 3, 40)
	if err := RewireAll(rng, m, 1); err != nil {
		t.Fatalf("rewire all: %v", err)
	}
	if m.NumEdges() != 40 {
		t.Fatalf("edge count %d, want 40", m.NumEdges())
	}
	requireConsistent(t, m)

	if err := RewireAll(rng, m, 1.5); !errors.Is(err, hopfield.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestRewiredCopyLeavesSourceIntact(t *testing.T) {
	m := testModel(t, 8, 16, 3, 30)
	before := m.Clone()
	out, err := RewiredCopy(rand.New(rand.NewSource(8)), m, 0.5)
	if err != nil {
		t.Fatalf("rewired copy: %v", err)
	}
	if !m.Graph().Equal(before.Graph()) {
		t.Fatal("source model was mutated")
	}
	if out.NumEdges() != 30 || out.Graph().Equal(m.Graph()) {
		t.Fatalf("expected a rewired copy with 30 edges, got %d", out.NumEdges())
	}
	requireConsistent(t, out)
}

func TestOperatorsPreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := testModel(t, 7, 10, 3, 15)
	ops := []Operator{&RewireRandomEdge{Rand: rng}, &AddRandomEdge{Rand: rng}, &RemoveRandomEdge{Rand: rng}}
	for step := 0; step < 300; step++ {
		op := ops[rng.Intn(len(ops))]
		before := m.NumEdges()
		err := op.Apply(context.Background(), m)
		if errors.Is(err, ErrNoMove) {
			continue
		}
		if err != nil {
			t.Fatalf("step %d %s: %v", step, op.Name(), err)
		}
		delta := m.NumEdges() - before
		switch op.Name() {
		case ProposalRewire:
			if delta != 0 {
				t.Fatalf("rewire changed edge count by %d", delta)
			}
		case ProposalAdd:
			if delta != 1 {
				t.Fatalf("add changed edge count by %d", delta)
			}
		case ProposalRemove:
			if delta != -1 {
				t.Fatalf("remove changed edge count by %d", delta)
			}
		}
	}
	m.RefreshNodes()
	requireConsistent(t, m)
}

func TestRewireRandomEdgeOnSaturatedNode(t *testing.T) {
	// A star centered at 0 gives the center no free slot, so every move must
	// keep the leaf endpoint.
	patterns := testPatterns(t, 8, 5, 2)
	m, err := hopfield.Empty(patterns)
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	for j := 1; j < 5; j++ {
		if err := AddEdge(m, 0, j); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	op := &RewireRandomEdge{Rand: rand.New(rand.NewSource(2))}
	if err := op.Apply(context.Background(), m); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if m.NumEdges() != 4 || m.Graph().Degree(0) != 3 {
		t.Fatalf("edges=%d center degree=%d", m.NumEdges(), m.Graph().Degree(0))
	}
}

func TestMoveCountPolicies(t *testing.T) {
	m := testModel(t, 9, 10, 2, 20)
	if _, err := (ConstMoves{}).MoveCount(m, 0, nil); !errors.Is(err, hopfield.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	count, err := EdgeLinearMoves{Multiplier: 0.1, MaxCount: 1}.MoveCount(m, 0, nil)
	if err != nil || count != 1 {
		t.Fatalf("linear count=%d err=%v", count, err)
	}
	count, err = EdgeLinearMoves{Multiplier: 0.25}.MoveCount(m, 0, nil)
	if err != nil || count != 5 {
		t.Fatalf("linear count=%d err=%v", count, err)
	}
	annealed := AnnealedMoves{Start: 8, Decay: 0.5}
	for iter, want := range []int{8, 4, 2, 1, 1} {
		got, err := annealed.MoveCount(m, iter, nil)
		if err != nil || got != want {
			t.Fatalf("annealed iter %d = %d (%v), want %d", iter, got, err, want)
		}
	}
}

func TestMovePolicyFromName(t *testing.T) {
	m := testModel(t, 10, 10, 2, 20)
	cases := []struct {
		name     string
		settings MoveSettings
		want     string
		count    int
	}{
		{name: "", settings: MoveSettings{Count: 3}, want: MovesConst, count: 3},
		{name: " Linear ", settings: MoveSettings{Multiplier: 0.25}, want: MovesEdgeLinear, count: 5},
		{name: "annealed", settings: MoveSettings{Count: 6, Decay: 0.5}, want: MovesAnnealed, count: 6},
	}
	for _, tc := range cases {
		p, err := MovePolicyFromName(tc.name, tc.settings)
		if err != nil {
			t.Fatalf("%q: %v", tc.name, err)
		}
		if p.Name() != tc.want {
			t.Fatalf("%q: name %s, want %s", tc.name, p.Name(), tc.want)
		}
		count, err := p.MoveCount(m, 0, nil)
		if err != nil || count != tc.count {
			t.Fatalf("%q: count=%d err=%v, want %d", tc.name, count, err, tc.count)
		}
	}

	bad := []struct {
		name     string
		settings MoveSettings
	}{
		{name: "const"},
		{name: "ecount_linear"},
		{name: "ecount_linear", settings: MoveSettings{Multiplier: 1, MaxCount: -1}},
		{name: "annealed", settings: MoveSettings{Count: 4, Decay: 1.5}},
		{name: "geometric", settings: MoveSettings{Count: 1}},
	}
	for _, tc := range bad {
		if _, err := MovePolicyFromName(tc.name, tc.settings); !errors.Is(err, hopfield.ErrInvalidArgument) {
			t.Fatalf("%q %+v: expected invalid argument, got %v", tc.name, tc.settings, err)
		}
	}
}
