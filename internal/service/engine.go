package service

import (
	"context"
	"fmt"
	"time"

	"venturelab/internal/catalog"
	"venturelab/internal/collector"
	"venturelab/internal/domain"
	"venturelab/internal/metrics"
	"venturelab/internal/repository"

	"go.uber.org/zap"
)

// Options configures an Engine. Catalog and Collectors are required.
type Options struct {
	Catalog    *catalog.Catalog
	Collectors *collector.Registry
	Store      repository.Store // optional write-through persistence
	Enricher   Enricher         // optional
	Bus        *EventBus
	Metrics    *metrics.Metrics
	Logger     *zap.Logger

	RetentionPerType int
	DefaultTimeout   time.Duration
	TargetAdjuster   TargetAdjuster
}

// Engine is the application root composing the experiment services
type Engine struct {
	catalog  *catalog.Catalog
	store    *ExperimentStore
	factory  *Factory
	runner   *Runner
	tracker  *Tracker
	analyzer *Analyzer
	bus      *EventBus
	logger   *zap.Logger
}

// NewEngine wires the services together
func NewEngine(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("engine requires a template catalog")
	}
	if opts.Collectors == nil {
		return nil, fmt.Errorf("engine requires a collector registry")
	}
	if opts.Bus == nil {
		opts.Bus = NewEventBus()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var (
		expBackend    repository.ExperimentStore
		resultBackend repository.ResultStore
	)
	if opts.Store != nil {
		expBackend, resultBackend = opts.Store, opts.Store
	}

	store := NewExperimentStore(expBackend, opts.Logger)
	tracker := NewTracker(opts.RetentionPerType, resultBackend, opts.Bus, opts.Metrics, opts.Logger)

	return &Engine{
		catalog:  opts.Catalog,
		store:    store,
		factory:  NewFactory(opts.Catalog, store, opts.Bus, opts.Metrics, opts.Logger).WithTargetAdjuster(opts.TargetAdjuster),
		runner:   NewRunner(store, tracker, opts.Collectors, opts.Bus, opts.Metrics, opts.Logger, opts.DefaultTimeout),
		tracker:  tracker,
		analyzer: NewAnalyzer(tracker, opts.Enricher, opts.Metrics, opts.Logger),
		bus:      opts.Bus,
		logger:   opts.Logger,
	}, nil
}

// Catalog returns the template catalog
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Bus returns the event bus
func (e *Engine) Bus() *EventBus { return e.bus }

// Restore reloads experiments and results from the store
func (e *Engine) Restore(ctx context.Context) error {
	exps, err := e.store.Restore(ctx)
	if err != nil {
		return err
	}
	results, err := e.tracker.Restore(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("state restored", zap.Int("experiments", exps), zap.Int("results", results))
	return nil
}

// CreateExperiment creates a planned experiment from the type's template
func (e *Engine) CreateExperiment(ctx context.Context, typ domain.ExperimentType, vctx domain.ValidationContext) (*domain.Experiment, error) {
	return e.factory.CreateExperiment(ctx, typ, vctx)
}

// CreateFromTemplate creates a planned experiment from a specific template
func (e *Engine) CreateFromTemplate(ctx context.Context, templateID string, vctx domain.ValidationContext) (*domain.Experiment, error) {
	return e.factory.CreateFromTemplate(ctx, templateID, vctx)
}

// RunExperiment runs a planned experiment to completion
func (e *Engine) RunExperiment(ctx context.Context, id string, timeout time.Duration) (*domain.Experiment, error) {
	return e.runner.Run(ctx, id, timeout)
}

// CancelExperiment cancels a planned or running experiment
func (e *Engine) CancelExperiment(ctx context.Context, id, reason string) (*domain.Experiment, error) {
	return e.runner.Cancel(ctx, id, reason)
}

// GetExperiment returns an experiment with its current results attached
func (e *Engine) GetExperiment(id string) (*domain.Experiment, error) {
	exp, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	e.attach(exp)
	return exp, nil
}

// ListExperiments returns experiments in creation order
func (e *Engine) ListExperiments(opts repository.ListOptions) []*domain.Experiment {
	exps := e.store.List(opts)
	for _, exp := range exps {
		e.attach(exp)
	}
	return exps
}

func (e *Engine) attach(exp *domain.Experiment) {
	if res, err := e.tracker.Get(exp.ID); err == nil {
		exp.Results = res
	}
}

// TrackMetric records a metric on an experiment's result
func (e *Engine) TrackMetric(ctx context.Context, id, name string, value float64) (*domain.ExperimentResult, error) {
	return e.tracker.TrackMetric(ctx, id, name, value)
}

// AddEvidence records evidence on an experiment's result
func (e *Engine) AddEvidence(ctx context.Context, id string, ev domain.Evidence) (*domain.ExperimentResult, error) {
	return e.tracker.AddEvidence(ctx, id, ev)
}

// AddInsight records an insight on an experiment's result
func (e *Engine) AddInsight(ctx context.Context, id, text string) (*domain.ExperimentResult, error) {
	return e.tracker.AddInsight(ctx, id, text)
}

// Revisions returns superseded versions of an experiment's result
func (e *Engine) Revisions(id string) ([]*domain.ExperimentResult, error) {
	return e.tracker.Revisions(id)
}

// Report aggregates all retained results of a type
func (e *Engine) Report(ctx context.Context, typ domain.ExperimentType) (*domain.Report, error) {
	return e.tracker.GenerateReport(ctx, typ)
}

// SuccessFactors reports the metrics that distinguish successes of a type
func (e *Engine) SuccessFactors(typ domain.ExperimentType) (*FactorAnalysis, error) {
	return e.analyzer.SuccessFactors(typ)
}

// Analyze interprets an experiment's results against its own context
func (e *Engine) Analyze(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	exp, err := e.GetExperiment(id)
	if err != nil {
		return nil, err
	}
	return e.analyzer.Analyze(ctx, exp, exp.Context)
}

// CatalogReloaded publishes a catalog reload outcome
func (e *Engine) CatalogReloaded(err error) {
	payload := map[string]any{"templates": e.catalog.Len()}
	if err != nil {
		payload["error"] = err.Error()
	}
	e.bus.Publish(Event{Type: EventCatalogReloaded, Payload: payload})
}
