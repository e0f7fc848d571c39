package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"venturelab/internal/collector"
	"venturelab/internal/domain"
	"venturelab/internal/metrics"

	"go.uber.org/zap"
)

// DefaultRunTimeout applies when a run is started without a timeout
const DefaultRunTimeout = 30 * time.Second

// errRunCancelled is the cancellation cause set by Cancel
var errRunCancelled = errors.New("run cancelled")

// Runner drives experiments through their lifecycle
type Runner struct {
	store      *ExperimentStore
	tracker    *Tracker
	collectors *collector.Registry
	bus        *EventBus
	metrics    *metrics.Metrics
	logger     *zap.Logger
	timeout    time.Duration

	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

// NewRunner creates a runner. timeout <= 0 selects DefaultRunTimeout.
func NewRunner(store *ExperimentStore, tracker *Tracker, collectors *collector.Registry, bus *EventBus, m *metrics.Metrics, logger *zap.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		store:      store,
		tracker:    tracker,
		collectors: collectors,
		bus:        bus,
		metrics:    m,
		logger:     logger.Named("runner"),
		timeout:    timeout,
		running:    make(map[string]context.CancelCauseFunc),
	}
}

// acquire claims the per-experiment run slot
func (r *Runner) acquire(ctx context.Context, id string) (context.Context, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.running[id]; busy {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, id)
	}
	runCtx, cancel := context.WithCancelCause(ctx)
	r.running[id] = cancel

	release := func() {
		r.mu.Lock()
		delete(r.running, id)
		r.mu.Unlock()
		cancel(nil)
	}
	return runCtx, release, nil
}

type collectOutcome struct {
	col *collector.Collection
	err error
}

// Run executes a planned experiment: it collects data within timeout,
// records it with the tracker and classifies the outcome. timeout <= 0 uses
// the runner default. The returned experiment reflects the final state even
// when an error is returned.
func (r *Runner) Run(ctx context.Context, id string, timeout time.Duration) (*domain.Experiment, error) {
	if timeout <= 0 {
		timeout = r.timeout
	}

	runCtx, release, err := r.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	exp, err := r.store.Update(ctx, id, func(e *domain.Experiment) error {
		if e.Status != domain.StatusPlanned {
			return fmt.Errorf("%w: experiment %s is %s", domain.ErrInvalidTransition, id, e.Status)
		}
		return e.Transition(domain.StatusInProgress, "")
	})
	if exp == nil {
		return nil, err
	}

	started := time.Now()
	log := r.logger.With(zap.String("experiment", id), zap.String("type", string(exp.Type)))
	log.Info("experiment started", zap.Duration("timeout", timeout))
	r.bus.Publish(Event{
		Type:    EventExperimentStarted,
		Payload: experimentPayload(id, string(exp.Type), string(exp.Status)),
	})

	final, runErr := r.execute(runCtx, exp, timeout)
	r.tracker.Settle(id)
	if final != nil {
		r.metrics.RunFinished(string(final.Type), string(final.Status), time.Since(started))
		log.Info("experiment finished",
			zap.String("status", string(final.Status)),
			zap.String("reason", string(final.FailureReason)),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(runErr))
	}
	return final, runErr
}

func (r *Runner) execute(ctx context.Context, exp *domain.Experiment, timeout time.Duration) (*domain.Experiment, error) {
	if _, err := r.tracker.Start(ctx, exp); err != nil {
		return r.fail(ctx, exp.ID, domain.ReasonInvalidExperiment, err)
	}

	if len(exp.SuccessCriteria) == 0 {
		return r.fail(ctx, exp.ID, domain.ReasonInvalidExperiment,
			domain.InvalidExperimentf("experiment %s has no success criteria", exp.ID))
	}

	collectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan collectOutcome, 1)
	go func() {
		col, err := r.collectors.Collect(collectCtx, exp)
		done <- collectOutcome{col: col, err: err}
	}()

	var out collectOutcome
	select {
	case out = <-done:
	case <-collectCtx.Done():
		out = collectOutcome{err: collectCtx.Err()}
	}

	if out.err != nil {
		switch {
		case errors.Is(context.Cause(ctx), errRunCancelled):
			current, _ := r.store.Get(exp.ID)
			return current, fmt.Errorf("%w: %s", domain.ErrCancelled, exp.ID)
		case errors.Is(out.err, context.DeadlineExceeded):
			return r.fail(ctx, exp.ID, domain.ReasonTimeout,
				fmt.Errorf("%w: %s after %s", domain.ErrTimeout, exp.ID, timeout))
		case errors.Is(out.err, context.Canceled):
			return r.cancelled(ctx, exp.ID, "caller cancelled the run")
		default:
			return r.fail(ctx, exp.ID, domain.ReasonCollectionError, out.err)
		}
	}

	status, err := r.record(ctx, exp, out.col)
	if err != nil {
		reason := domain.ReasonCollectionError
		if errors.Is(err, domain.ErrInvalidExperiment) {
			reason = domain.ReasonInvalidExperiment
		}
		return r.fail(ctx, exp.ID, reason, err)
	}
	r.metrics.Classified(string(exp.Type), string(status))

	if status == domain.ResultFailure {
		return r.finish(ctx, exp.ID, domain.StatusFailed, domain.ReasonCriteriaNotMet, EventExperimentFailed, nil)
	}
	return r.finish(ctx, exp.ID, domain.StatusCompleted, "", EventExperimentCompleted, nil)
}

// record pushes collected data through the tracker and classifies it
func (r *Runner) record(ctx context.Context, exp *domain.Experiment, col *collector.Collection) (domain.ResultStatus, error) {
	for _, name := range slices.Sorted(maps.Keys(col.Metrics)) {
		if _, err := r.tracker.TrackMetric(ctx, exp.ID, name, col.Metrics[name]); err != nil {
			return "", err
		}
	}
	for _, ev := range col.Evidence {
		if _, err := r.tracker.AddEvidence(ctx, exp.ID, ev); err != nil {
			return "", err
		}
	}
	for _, in := range col.Insights {
		if _, err := r.tracker.AddInsight(ctx, exp.ID, in); err != nil {
			return "", err
		}
	}

	tracked, err := r.tracker.Get(exp.ID)
	if err != nil {
		return "", err
	}
	status, err := domain.Classify(tracked.Metrics, exp.SuccessCriteria)
	if err != nil {
		return "", err
	}

	learnings := append(slices.Clone(col.Learnings), outcomeLearnings(status, exp.SuccessCriteria, tracked.Metrics)...)
	for _, l := range learnings {
		if _, err := r.tracker.AddLearning(ctx, exp.ID, l); err != nil {
			return "", err
		}
	}
	if _, err := r.tracker.SetStatus(ctx, exp.ID, status); err != nil {
		return "", err
	}
	return status, nil
}

// outcomeLearnings states what the classified run taught about each criterion
func outcomeLearnings(status domain.ResultStatus, criteria []domain.SuccessCriterion, m map[string]float64) []string {
	var out []string
	for _, c := range criteria {
		v, ok := m[c.Metric]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("%s was not measured; add it to the collection plan", c.Metric))
		case v < c.Minimum:
			out = append(out, fmt.Sprintf("%s fell below its minimum: %.2f%s against %.2f%s", c.Metric, v, c.Unit, c.Minimum, c.Unit))
		case v < c.Target:
			out = append(out, fmt.Sprintf("%s fell short of its target: %.2f%s against %.2f%s", c.Metric, v, c.Unit, c.Target, c.Unit))
		}
	}

	switch status {
	case domain.ResultSuccess:
		out = append(out, "The hypothesis held for this segment")
	case domain.ResultFailure:
		out = append(out, "The hypothesis did not hold for this segment")
	default:
		out = append(out, "The evidence neither confirms nor rejects the hypothesis")
	}
	return out
}

func (r *Runner) fail(ctx context.Context, id string, reason domain.FailureReason, cause error) (*domain.Experiment, error) {
	return r.finish(ctx, id, domain.StatusFailed, reason, EventExperimentFailed, cause)
}

func (r *Runner) cancelled(ctx context.Context, id, note string) (*domain.Experiment, error) {
	return r.finish(ctx, id, domain.StatusCancelled, domain.ReasonCancelled, EventExperimentCancelled,
		fmt.Errorf("%w: %s", domain.ErrCancelled, note))
}

// finish moves an in-progress experiment to a terminal state. An experiment
// cancelled while the run was finishing keeps its cancelled state.
func (r *Runner) finish(ctx context.Context, id string, next domain.ExperimentStatus, reason domain.FailureReason, event EventType, cause error) (*domain.Experiment, error) {
	exp, err := r.store.Update(ctx, id, func(e *domain.Experiment) error {
		if e.Status == domain.StatusCancelled {
			return domain.ErrCancelled
		}
		if next == domain.StatusCancelled {
			e.StatusNote = "caller cancelled the run"
		}
		return e.Transition(next, reason)
	})
	if errors.Is(err, domain.ErrCancelled) {
		current, _ := r.store.Get(id)
		return current, fmt.Errorf("%w: %s", domain.ErrCancelled, id)
	}
	if exp == nil {
		return nil, err
	}
	if result, rerr := r.tracker.Get(id); rerr == nil {
		exp.Results = result
	}

	r.bus.Publish(Event{
		Type:    event,
		Payload: experimentPayload(id, string(exp.Type), string(exp.Status)),
	})
	if cause != nil {
		return exp, cause
	}
	return exp, err
}

// Cancel stops a planned or in-progress experiment. A run in flight is
// interrupted through its context and leaves the cancelled state in place.
func (r *Runner) Cancel(ctx context.Context, id, reason string) (*domain.Experiment, error) {
	exp, err := r.store.Update(ctx, id, func(e *domain.Experiment) error {
		if err := e.Transition(domain.StatusCancelled, domain.ReasonCancelled); err != nil {
			return err
		}
		e.StatusNote = reason
		return nil
	})
	if exp == nil {
		return nil, err
	}

	r.mu.Lock()
	if cancel, ok := r.running[id]; ok {
		cancel(errRunCancelled)
	}
	r.mu.Unlock()

	r.logger.Info("experiment cancelled", zap.String("experiment", id), zap.String("reason", reason))
	r.bus.Publish(Event{
		Type:    EventExperimentCancelled,
		Payload: experimentPayload(id, string(exp.Type), string(exp.Status)),
	})
	return exp, err
}

// Running reports whether a run is in flight for an experiment
func (r *Runner) Running(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[id]
	return ok
}
