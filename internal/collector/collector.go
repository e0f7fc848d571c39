package collector

import (
	"context"
	"errors"

	"venturelab/internal/domain"
)

// ErrNoCollector is returned when no enabled collector supports a type
var ErrNoCollector = errors.New("no collector for experiment type")

// Collection is what a collector observed for one experiment
type Collection struct {
	Metrics   map[string]float64 `json:"metrics"`
	Evidence  []domain.Evidence  `json:"evidence,omitempty"`
	Insights  []string           `json:"insights,omitempty"`
	Learnings []string           `json:"learnings,omitempty"`
}

// Config holds registration settings for a collector instance
type Config struct {
	// Enabled determines if the collector may be selected
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Priority decides between collectors supporting the same type (higher wins)
	Priority int `json:"priority" yaml:"priority"`
}

// Collector defines the interface for experiment data sources
type Collector interface {
	// Name returns the unique identifier for this collector
	Name() string

	// Supports reports whether the collector can observe this experiment type
	Supports(typ domain.ExperimentType) bool

	// Collect gathers observations for a running experiment. Implementations
	// must return promptly with ctx.Err() once ctx is done.
	Collect(ctx context.Context, exp *domain.Experiment) (*Collection, error)
}
