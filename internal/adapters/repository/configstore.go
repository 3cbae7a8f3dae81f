package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tradeval/internal/domain/model"
)

// MemoryConfigStore holds the active configuration and the latest candidate.
type MemoryConfigStore struct {
	mu        sync.RWMutex
	active    model.AppConfig
	candidate *model.AppConfig
}

// NewMemoryConfigStore seeds the store with an active configuration.
func NewMemoryConfigStore(active model.AppConfig) (*MemoryConfigStore, error) {
	if err := active.Validate(); err != nil {
		return nil, fmt.Errorf("active config: %w", err)
	}
	active = active.Clone()
	active.Status = model.ConfigActive
	return &MemoryConfigStore{active: active}, nil
}

// Active returns a copy of the active configuration.
func (s *MemoryConfigStore) Active(_ context.Context) (model.AppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.Clone(), nil
}

// Candidate returns a copy of the current candidate.
func (s *MemoryConfigStore) Candidate(_ context.Context) (model.AppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.candidate == nil {
		return model.AppConfig{}, &model.NotFoundError{Resource: "candidate config", ID: "latest"}
	}
	return s.candidate.Clone(), nil
}

// SaveCandidate replaces the candidate. Its version must be newer than the
// active one.
func (s *MemoryConfigStore) SaveCandidate(_ context.Context, cfg model.AppConfig) error {
	if cfg.Status != model.ConfigCandidate {
		return fmt.Errorf("%w: config status %s is not candidate", ErrInvalidRecord, cfg.Status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Version <= s.active.Version {
		return fmt.Errorf("%w: candidate version %d not newer than active %d", ErrInvalidRecord, cfg.Version, s.active.Version)
	}
	c := cfg.Clone()
	s.candidate = &c
	return nil
}
