package collector

import (
	"context"
	"fmt"
	"sync"

	"venturelab/internal/domain"

	"go.uber.org/zap"
)

type registration struct {
	collector Collector
	config    Config
}

// Registry manages registered collectors
type Registry struct {
	mu      sync.RWMutex
	entries []registration
	logger  *zap.Logger
}

// NewRegistry creates an empty collector registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger.Named("collector")}
}

// Register adds a collector to the registry
func (r *Registry) Register(c Collector, cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	for _, e := range r.entries {
		if e.collector.Name() == name {
			return fmt.Errorf("collector %s already registered", name)
		}
	}

	r.entries = append(r.entries, registration{collector: c, config: cfg})
	r.logger.Info("registered collector",
		zap.String("name", name),
		zap.Int("priority", cfg.Priority),
		zap.Bool("enabled", cfg.Enabled))
	return nil
}

// Unregister removes a collector by name
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.collector.Name() == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// For returns the enabled collector with the highest priority for a type
func (r *Registry) For(typ domain.ExperimentType) (Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *registration
	for i := range r.entries {
		e := &r.entries[i]
		if !e.config.Enabled || !e.collector.Supports(typ) {
			continue
		}
		if best == nil || e.config.Priority > best.config.Priority {
			best = e
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCollector, typ)
	}
	return best.collector, nil
}

// Collect runs the selected collector for an experiment
func (r *Registry) Collect(ctx context.Context, exp *domain.Experiment) (*Collection, error) {
	c, err := r.For(exp.Type)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("collecting",
		zap.String("collector", c.Name()),
		zap.String("experiment", exp.ID),
		zap.String("type", string(exp.Type)))

	col, err := c.Collect(ctx, exp)
	if err != nil {
		return nil, fmt.Errorf("collector %s: %w", c.Name(), err)
	}
	if col == nil {
		col = &Collection{}
	}
	if col.Metrics == nil {
		col.Metrics = make(map[string]float64)
	}
	return col, nil
}

// Names lists registered collectors in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.collector.Name())
	}
	return names
}
