package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"hoptopo/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	networks    map[string]model.NetworkRecord
	runs        map[string]model.RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.networks = make(map[string]model.NetworkRecord)
	s.runs = make(map[string]model.RunRecord)
	return nil
}

func (s *MemoryStore) SaveNetwork(_ context.Context, network model.NetworkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.networks[network.ID] = copyNetwork(network)
	return nil
}

func (s *MemoryStore) GetNetwork(_ context.Context, id string) (model.NetworkRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	network, ok := s.networks[id]
	if !ok {
		return model.NetworkRecord{}, false, nil
	}
	return copyNetwork(network), true, nil
}

func (s *MemoryStore) ListNetworks(_ context.Context, runID string) ([]model.NetworkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.NetworkRecord, 0)
	for _, network := range s.networks {
		if network.RunID == runID {
			out = append(out, copyNetwork(network))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Iteration != out[j].Iteration {
			return out[i].Iteration < out[j].Iteration
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	return copyRun(run), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, copyRun(run))
	}
	sortRuns(out)
	return out, nil
}

func sortRuns(runs []model.RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

func copyNetwork(n model.NetworkRecord) model.NetworkRecord {
	patterns := make([][]int, len(n.Patterns))
	for i, p := range n.Patterns {
		patterns[i] = append([]int(nil), p...)
	}
	n.Patterns = patterns
	n.Edges = append([]model.EdgeRecord(nil), n.Edges...)
	return n
}

func copyRun(r model.RunRecord) model.RunRecord {
	r.Performance = append([]float64(nil), r.Performance...)
	r.Cost = append([]float64(nil), r.Cost...)
	r.InGroup = append([]float64(nil), r.InGroup...)
	return r
}
