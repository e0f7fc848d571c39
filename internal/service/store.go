package service

import (
	"context"
	"fmt"
	"sync"

	"venturelab/internal/domain"
	"venturelab/internal/repository"

	"go.uber.org/zap"
)

// ExperimentStore is the in-memory experiment registry. Every change is
// written through to the backing repository when one is configured.
type ExperimentStore struct {
	mu      sync.RWMutex
	items   map[string]*domain.Experiment
	order   []string
	backend repository.ExperimentStore
	logger  *zap.Logger
}

// NewExperimentStore creates a store; backend may be nil
func NewExperimentStore(backend repository.ExperimentStore, logger *zap.Logger) *ExperimentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExperimentStore{
		items:   make(map[string]*domain.Experiment),
		backend: backend,
		logger:  logger,
	}
}

// Insert adds a new experiment
func (s *ExperimentStore) Insert(ctx context.Context, exp *domain.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[exp.ID]; exists {
		return fmt.Errorf("experiment %s already exists", exp.ID)
	}
	if err := s.persist(ctx, exp); err != nil {
		return err
	}

	s.items[exp.ID] = exp.Clone()
	s.order = append(s.order, exp.ID)
	return nil
}

// Get returns a copy of an experiment
func (s *ExperimentStore) Get(id string) (*domain.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.items[id]
	if !ok {
		return nil, domain.NewNotFound("experiment", id)
	}
	return exp.Clone(), nil
}

// Update applies fn to the stored experiment under the store lock. Nothing
// changes if fn returns an error. A write-through failure is logged and
// returned, but the in-memory change stands.
func (s *ExperimentStore) Update(ctx context.Context, id string, fn func(*domain.Experiment) error) (*domain.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[id]
	if !ok {
		return nil, domain.NewNotFound("experiment", id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.items[id] = next

	if err := s.persist(ctx, next); err != nil {
		s.logger.Warn("experiment write-through failed", zap.String("experiment", id), zap.Error(err))
		return next.Clone(), err
	}
	return next.Clone(), nil
}

// List returns copies in creation order, filtered by opts
func (s *ExperimentStore) List(opts repository.ListOptions) []*domain.Experiment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Experiment, 0, len(s.order))
	for _, id := range s.order {
		exp := s.items[id]
		if opts.Type != "" && exp.Type != opts.Type {
			continue
		}
		if opts.Status != "" && exp.Status != opts.Status {
			continue
		}
		out = append(out, exp.Clone())
	}
	return out
}

// Len returns the number of experiments
func (s *ExperimentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Restore loads experiments from the backend. Experiments that were in
// progress when the process stopped are marked failed.
func (s *ExperimentStore) Restore(ctx context.Context) (int, error) {
	if s.backend == nil {
		return 0, nil
	}

	exps, err := s.backend.ListExperiments(ctx, repository.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("restore experiments: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, exp := range exps {
		if exp.Status == domain.StatusInProgress {
			if err := exp.Transition(domain.StatusFailed, domain.ReasonInterrupted); err == nil {
				if err := s.persist(ctx, exp); err != nil {
					s.logger.Warn("failed to persist interrupted experiment", zap.String("experiment", exp.ID), zap.Error(err))
				}
			}
		}
		if _, exists := s.items[exp.ID]; !exists {
			s.order = append(s.order, exp.ID)
		}
		s.items[exp.ID] = exp
	}
	return len(exps), nil
}

func (s *ExperimentStore) persist(ctx context.Context, exp *domain.Experiment) error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.SaveExperiment(context.WithoutCancel(ctx), exp); err != nil {
		return fmt.Errorf("persist experiment %s: %w", exp.ID, err)
	}
	return nil
}
