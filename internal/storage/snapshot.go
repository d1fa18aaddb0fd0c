package storage

import (
	"context"

	"github.com/google/uuid"

	"hoptopo/internal/hopfield"
	"hoptopo/internal/model"
)

// RunSnapshotter saves optimizer snapshots as networks of one run.
type RunSnapshotter struct {
	Store   Store
	RunID   string
	Builder string

	saved []string
}

func NewRunSnapshotter(store Store, runID, builder string) *RunSnapshotter {
	return &RunSnapshotter{Store: store, RunID: runID, Builder: builder}
}

func (s *RunSnapshotter) SaveSnapshot(ctx context.Context, iteration int, m *hopfield.Model) error {
	id := uuid.NewString()
	if err := s.Store.SaveNetwork(ctx, NetworkFromModel(m, id, s.RunID, s.Builder, iteration)); err != nil {
		return err
	}
	s.saved = append(s.saved, id)
	return nil
}

// Saved returns the ids of the snapshots written so far.
func (s *RunSnapshotter) Saved() []string {
	return append([]string(nil), s.saved...)
}

// NetworkFromModel tags the record of m with its run provenance.
func NetworkFromModel(m *hopfield.Model, id, runID, builder string, iteration int) model.NetworkRecord {
	rec := hopfield.ToRecord(m, id)
	rec.RunID = runID
	rec.Builder = builder
	rec.Iteration = iteration
	return rec
}
