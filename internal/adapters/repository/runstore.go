package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/tradeval/internal/domain/model"
)

// MemoryRunStore keeps calibration runs for the life of the process. Begin is
// the per-process mutual exclusion point.
type MemoryRunStore struct {
	mu      sync.RWMutex
	runs    map[string]model.CalibrationRun
	running string
}

// NewMemoryRunStore returns an empty run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]model.CalibrationRun)}
}

// Begin records a running run unless another one is running.
func (s *MemoryRunStore) Begin(_ context.Context, run model.CalibrationRun) error {
	if run.Status != model.RunRunning {
		return fmt.Errorf("%w: begin run %s in status %s", ErrInvalidRecord, run.ID, run.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return &model.ConflictError{RunID: s.running}
	}
	if _, dup := s.runs[run.ID]; dup {
		return fmt.Errorf("%w: duplicate run id %s", ErrInvalidRecord, run.ID)
	}
	s.runs[run.ID] = run
	s.running = run.ID
	return nil
}

// Finish stores a terminal run and releases the lock if it held it.
func (s *MemoryRunStore) Finish(_ context.Context, run model.CalibrationRun) error {
	if !run.Status.Terminal() {
		return fmt.Errorf("%w: finish run %s in status %s", ErrInvalidRecord, run.ID, run.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	if s.running == run.ID {
		s.running = ""
	}
	return nil
}

// Get returns one run.
func (s *MemoryRunStore) Get(_ context.Context, id string) (model.CalibrationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return model.CalibrationRun{}, &model.NotFoundError{Resource: "calibration run", ID: id}
	}
	return run, nil
}

// List returns up to limit runs ordered by start time, newest first.
func (s *MemoryRunStore) List(_ context.Context, limit int) ([]model.CalibrationRun, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	out := make([]model.CalibrationRun, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
