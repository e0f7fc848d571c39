package repository

import (
	"context"

	"venturelab/internal/domain"
)

// ListOptions filters experiment listings; zero values match everything
type ListOptions struct {
	Type   domain.ExperimentType
	Status domain.ExperimentStatus
}

// ExperimentStore persists experiment lifecycle records
type ExperimentStore interface {
	// SaveExperiment inserts or replaces an experiment. Results are stored
	// separately through ResultStore and are not written here.
	SaveExperiment(ctx context.Context, exp *domain.Experiment) error
	GetExperiment(ctx context.Context, id string) (*domain.Experiment, error)
	ListExperiments(ctx context.Context, opts ListOptions) ([]*domain.Experiment, error)
	DeleteExperiment(ctx context.Context, id string) error
}

// ResultStore persists experiment results and their superseded revisions
type ResultStore interface {
	SaveResult(ctx context.Context, result *domain.ExperimentResult) error
	DeleteResult(ctx context.Context, experimentID string) error
	// ListResults returns results oldest first; an empty type lists all
	ListResults(ctx context.Context, typ domain.ExperimentType) ([]*domain.ExperimentResult, error)

	// ArchiveRevision stores a superseded version of a result
	ArchiveRevision(ctx context.Context, result *domain.ExperimentResult) error
	// ListRevisions returns archived versions in ascending version order
	ListRevisions(ctx context.Context, experimentID string) ([]*domain.ExperimentResult, error)
}

// Store is the complete persistence backend
type Store interface {
	ExperimentStore
	ResultStore

	// Close releases resources
	Close() error
}
