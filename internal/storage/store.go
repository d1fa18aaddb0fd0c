package storage

import (
	"context"

	"hoptopo/internal/model"
)

// Store persists trained networks and optimizer run summaries.
type Store interface {
	Init(ctx context.Context) error
	SaveNetwork(ctx context.Context, network model.NetworkRecord) error
	GetNetwork(ctx context.Context, id string) (model.NetworkRecord, bool, error)
	// ListNetworks returns the networks of a run ordered by iteration. An
	// empty runID lists networks saved outside any run.
	ListNetworks(ctx context.Context, runID string) ([]model.NetworkRecord, error)
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns every run ordered by creation time.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
}
