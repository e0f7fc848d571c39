package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"venturelab/internal/domain"
	"venturelab/internal/metrics"
	"venturelab/internal/repository"
	"venturelab/internal/stats"

	"go.uber.org/zap"
)

// DefaultRetentionPerType bounds how many results are kept per experiment type
const DefaultRetentionPerType = 1000

// Report recommendation thresholds
const (
	reportMinSuccessRate      = 0.5
	reportMinEvidenceStrength = 0.7
	reportMinConfidence       = 0.6
)

// wilsonZ95 is the normal quantile for a two-sided 95% interval
const wilsonZ95 = 1.959964

type trackedResult struct {
	mu        sync.Mutex
	result    *domain.ExperimentResult
	revisions []*domain.ExperimentResult
	evicted   bool
	// inFlight is set while the run that started the result is writing to it
	inFlight bool
}

// Tracker records experiment results and aggregates them per type.
//
// Results only come into existence through Start. Each result has its own
// mutex so concurrent updates to one experiment are serialized; the maps are
// guarded by the tracker lock. Reports and success factors are computed over
// copies taken at call time and leave out results whose run has not settled.
type Tracker struct {
	mu        sync.RWMutex
	results   map[string]*trackedResult
	byType    map[domain.ExperimentType][]string // oldest first
	retention int

	store   repository.ResultStore
	bus     *EventBus
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewTracker creates a tracker. retention <= 0 selects DefaultRetentionPerType;
// store may be nil.
func NewTracker(retention int, store repository.ResultStore, bus *EventBus, m *metrics.Metrics, logger *zap.Logger) *Tracker {
	if retention <= 0 {
		retention = DefaultRetentionPerType
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		results:   make(map[string]*trackedResult),
		byType:    make(map[domain.ExperimentType][]string),
		retention: retention,
		store:     store,
		bus:       bus,
		metrics:   m,
		logger:    logger.Named("tracker"),
		now:       time.Now,
	}
}

// Start registers an empty result for an experiment. Starting an already
// tracked experiment returns its current result.
func (t *Tracker) Start(ctx context.Context, exp *domain.Experiment) (*domain.ExperimentResult, error) {
	if exp.ID == "" || !exp.Type.Valid() {
		return nil, domain.InvalidExperimentf("experiment needs an ID and a known type")
	}

	t.mu.Lock()
	if tr, ok := t.results[exp.ID]; ok {
		t.mu.Unlock()
		return t.snapshot(tr), nil
	}

	res := domain.NewExperimentResult(exp.ID, exp.Type)
	res.Timestamp = t.now()
	shell := res.Clone()
	evicted := t.insertLocked(&trackedResult{result: res, inFlight: true})
	count := len(t.byType[exp.Type])
	t.mu.Unlock()

	t.dropEvicted(ctx, evicted)
	t.metrics.SetTrackedResults(string(exp.Type), count)
	t.persist(ctx, shell)
	return shell, nil
}

// insertLocked adds tr and returns whatever fell off the retention window
func (t *Tracker) insertLocked(tr *trackedResult) []*trackedResult {
	id, typ := tr.result.ExperimentID, tr.result.ExperimentType
	t.results[id] = tr
	t.byType[typ] = append(t.byType[typ], id)

	var evicted []*trackedResult
	for len(t.byType[typ]) > t.retention {
		oldest := t.byType[typ][0]
		t.byType[typ] = t.byType[typ][1:]
		evicted = append(evicted, t.results[oldest])
		delete(t.results, oldest)
	}
	return evicted
}

func (t *Tracker) dropEvicted(ctx context.Context, evicted []*trackedResult) {
	for _, tr := range evicted {
		tr.mu.Lock()
		tr.evicted = true
		id := tr.result.ExperimentID
		tr.mu.Unlock()

		t.logger.Debug("result evicted", zap.String("experiment", id))
		if t.store != nil {
			if err := t.store.DeleteResult(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, domain.ErrNotFound) {
				t.logger.Warn("failed to delete evicted result", zap.String("experiment", id), zap.Error(err))
			}
		}
	}
}

func (t *Tracker) lookup(id string) (*trackedResult, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tr, ok := t.results[id]
	if !ok {
		return nil, domain.NewNotFound("result", id)
	}
	return tr, nil
}

func (t *Tracker) snapshot(tr *trackedResult) *domain.ExperimentResult {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.result.Clone()
}

// mutate applies fn to a working copy of a result. fn reports whether it
// changed anything. Changing a sealed result archives the sealed version and
// continues on a new, unsealed version.
func (t *Tracker) mutate(ctx context.Context, id string, fn func(*domain.ExperimentResult) (bool, error)) (*domain.ExperimentResult, error) {
	tr, err := t.lookup(id)
	if err != nil {
		return nil, err
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	if tr.evicted {
		return nil, domain.NewNotFound("result", id)
	}

	work := tr.result.Clone()
	changed, err := fn(work)
	if err != nil {
		return nil, err
	}
	if !changed {
		return work, nil
	}

	if tr.result.Sealed {
		archived := tr.result.Clone()
		at := t.now()
		archived.SupersededAt = &at
		tr.revisions = append(tr.revisions, archived)
		if t.store != nil {
			if err := t.store.ArchiveRevision(context.WithoutCancel(ctx), archived); err != nil {
				t.logger.Warn("failed to archive revision", zap.String("experiment", id), zap.Error(err))
			}
		}

		work.Version = tr.result.Version + 1
		work.Sealed = false
		work.SupersededAt = nil
	}

	recompute(work)
	tr.result = work
	t.persist(ctx, work)

	t.bus.Publish(Event{
		Type:    EventResultUpdated,
		Payload: map[string]any{"experiment_id": id, "version": work.Version},
	})
	return work.Clone(), nil
}

// recompute refreshes the evidence-derived scores
func recompute(r *domain.ExperimentResult) {
	avgReliability := r.AverageReliability()
	r.EvidenceStrength = domain.Clamp01(0.6*r.QuantitativeShare() + 0.4*avgReliability)
	r.Confidence = domain.Clamp01((r.EvidenceStrength + avgReliability) / 2)
}

// TrackMetric upserts a metric value
func (t *Tracker) TrackMetric(ctx context.Context, id, name string, value float64) (*domain.ExperimentResult, error) {
	return t.mutate(ctx, id, func(r *domain.ExperimentResult) (bool, error) {
		if old, ok := r.Metrics[name]; ok && old == value {
			return false, nil
		}
		return true, r.SetMetric(name, value)
	})
}

// AddEvidence appends evidence with its reliability clamped to [0,1]
func (t *Tracker) AddEvidence(ctx context.Context, id string, ev domain.Evidence) (*domain.ExperimentResult, error) {
	if ev.Source == "" {
		return nil, domain.InvalidExperimentf("evidence source required")
	}
	if ev.Type != domain.EvidenceQualitative && ev.Type != domain.EvidenceQuantitative {
		return nil, domain.InvalidExperimentf("unknown evidence type %q", ev.Type)
	}
	ev = ev.Normalize()

	return t.mutate(ctx, id, func(r *domain.ExperimentResult) (bool, error) {
		r.Evidence = append(r.Evidence, ev)
		return true, nil
	})
}

// AddInsight records an insight; repeating the same text is a no-op
func (t *Tracker) AddInsight(ctx context.Context, id, text string) (*domain.ExperimentResult, error) {
	if text == "" {
		return nil, domain.InvalidExperimentf("insight text required")
	}
	return t.mutate(ctx, id, func(r *domain.ExperimentResult) (bool, error) {
		return r.AddInsight(text), nil
	})
}

// AddLearning records a learning; repeating the same text is a no-op
func (t *Tracker) AddLearning(ctx context.Context, id, text string) (*domain.ExperimentResult, error) {
	if text == "" {
		return nil, domain.InvalidExperimentf("learning text required")
	}
	return t.mutate(ctx, id, func(r *domain.ExperimentResult) (bool, error) {
		for _, l := range r.Learnings {
			if l == text {
				return false, nil
			}
		}
		r.Learnings = append(r.Learnings, text)
		return true, nil
	})
}

// SetStatus records the classified outcome and settles the result
func (t *Tracker) SetStatus(ctx context.Context, id string, status domain.ResultStatus) (*domain.ExperimentResult, error) {
	switch status {
	case domain.ResultSuccess, domain.ResultFailure, domain.ResultInconclusive:
	default:
		return nil, domain.InvalidExperimentf("unknown result status %q", status)
	}
	res, err := t.mutate(ctx, id, func(r *domain.ExperimentResult) (bool, error) {
		if r.Status == status {
			return false, nil
		}
		r.Status = status
		return true, nil
	})
	if err == nil {
		t.Settle(id)
	}
	return res, err
}

// Settle marks a result as no longer written by its run, making it
// eligible for reports. Unknown ids are ignored.
func (t *Tracker) Settle(id string) {
	tr, err := t.lookup(id)
	if err != nil {
		return
	}
	tr.mu.Lock()
	tr.inFlight = false
	tr.mu.Unlock()
}

// Get returns a copy of the current result version
func (t *Tracker) Get(id string) (*domain.ExperimentResult, error) {
	tr, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	return t.snapshot(tr), nil
}

// Revisions returns the archived versions of a result, oldest first
func (t *Tracker) Revisions(id string) ([]*domain.ExperimentResult, error) {
	tr, err := t.lookup(id)
	if err != nil {
		return nil, err
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	out := make([]*domain.ExperimentResult, 0, len(tr.revisions))
	for _, r := range tr.revisions {
		out = append(out, r.Clone())
	}
	return out, nil
}

// Len returns the number of retained results for a type
func (t *Tracker) Len(typ domain.ExperimentType) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byType[typ])
}

// Snapshot copies every retained result of a type, oldest first
func (t *Tracker) Snapshot(typ domain.ExperimentType) []*domain.ExperimentResult {
	return t.collect(typ, true)
}

// settled copies the retained results of a type whose runs have finished
func (t *Tracker) settled(typ domain.ExperimentType) []*domain.ExperimentResult {
	return t.collect(typ, false)
}

func (t *Tracker) collect(typ domain.ExperimentType, inFlight bool) []*domain.ExperimentResult {
	t.mu.RLock()
	trs := make([]*trackedResult, 0, len(t.byType[typ]))
	for _, id := range t.byType[typ] {
		trs = append(trs, t.results[id])
	}
	t.mu.RUnlock()

	out := make([]*domain.ExperimentResult, 0, len(trs))
	for _, tr := range trs {
		tr.mu.Lock()
		if inFlight || !tr.inFlight {
			out = append(out, tr.result.Clone())
		}
		tr.mu.Unlock()
	}
	return out
}

// Aggregates returns the mean of every metric across retained results of a
// type, over the results that carry that metric
func (t *Tracker) Aggregates(typ domain.ExperimentType) map[string]float64 {
	values := make(map[string][]float64)
	for _, r := range t.Snapshot(typ) {
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}

	out := make(map[string]float64, len(values))
	for name, vs := range values {
		out[name] = stats.Mean(vs)
	}
	return out
}

// GenerateReport summarizes every settled result of a type and seals the
// results it covered
func (t *Tracker) GenerateReport(ctx context.Context, typ domain.ExperimentType) (*domain.Report, error) {
	if !typ.Valid() {
		return nil, domain.InvalidExperimentf("unknown experiment type %q", typ)
	}

	snap := t.settled(typ)
	report := &domain.Report{
		ExperimentType:  typ,
		GeneratedAt:     t.now(),
		Insights:        []string{},
		Recommendations: []string{},
		Timeline:        []domain.TimelineEntry{},
	}

	if len(snap) > 0 {
		var successes int
		confidences := make([]float64, 0, len(snap))
		strengths := make([]float64, 0, len(snap))
		seen := make(map[string]bool)

		for _, r := range snap {
			if r.Status == domain.ResultSuccess {
				successes++
			}
			confidences = append(confidences, r.Confidence)
			strengths = append(strengths, r.EvidenceStrength)
			for _, in := range r.Insights {
				if !seen[in] {
					seen[in] = true
					report.Insights = append(report.Insights, in)
				}
			}
			report.Timeline = append(report.Timeline, domain.TimelineEntry{
				ExperimentID: r.ExperimentID,
				Timestamp:    r.Timestamp,
				Status:       r.Status,
				Confidence:   r.Confidence,
			})
		}

		report.TotalExperiments = len(snap)
		report.SuccessRate = float64(successes) / float64(len(snap))
		low, high := stats.WilsonInterval(successes, len(snap), wilsonZ95)
		report.SuccessRateCI95 = domain.Interval{Low: low, High: high}
		report.AverageConfidence = stats.Mean(confidences)
		report.EvidenceStrength = stats.Mean(strengths)

		sort.SliceStable(report.Timeline, func(i, j int) bool {
			a, b := report.Timeline[i], report.Timeline[j]
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.ExperimentID < b.ExperimentID
		})

		report.Recommendations = reportRecommendations(report)
		t.seal(ctx, snap)
	}

	t.metrics.ReportGenerated(string(typ))
	t.bus.Publish(Event{
		Type:    EventReportGenerated,
		Payload: map[string]any{"type": string(typ), "total_experiments": report.TotalExperiments},
	})
	return report, nil
}

func reportRecommendations(r *domain.Report) []string {
	recs := []string{}
	if r.SuccessRate < reportMinSuccessRate {
		recs = append(recs, fmt.Sprintf("Success rate is %.0f%%: review experiment design and success criteria", r.SuccessRate*100))
	}
	if r.EvidenceStrength < reportMinEvidenceStrength {
		recs = append(recs, fmt.Sprintf("Evidence strength is %.2f: collect more quantitative data", r.EvidenceStrength))
	}
	if r.AverageConfidence < reportMinConfidence {
		recs = append(recs, fmt.Sprintf("Average confidence is %.2f: strengthen the validation methodology", r.AverageConfidence))
	}
	return recs
}

// seal marks the reported versions as sealed. A result that moved on since
// the snapshot is left alone.
func (t *Tracker) seal(ctx context.Context, snap []*domain.ExperimentResult) {
	for _, r := range snap {
		tr, err := t.lookup(r.ExperimentID)
		if err != nil {
			continue
		}
		tr.mu.Lock()
		if !tr.evicted && !tr.result.Sealed && tr.result.Version == r.Version {
			tr.result.Sealed = true
			t.persist(ctx, tr.result)
		}
		tr.mu.Unlock()
	}
}

// SuccessFactors finds the metrics that distinguish successful experiments
// of a type. Threshold is the mean among successes, confidence is one minus
// their coefficient of variation, and importance is the absolute
// point-biserial correlation with success across all results carrying the
// metric. Factors are ordered by importance, ties by metric name.
func (t *Tracker) SuccessFactors(typ domain.ExperimentType) ([]domain.SuccessFactor, error) {
	if !typ.Valid() {
		return nil, domain.InvalidExperimentf("unknown experiment type %q", typ)
	}

	snap := t.settled(typ)
	successValues := make(map[string][]float64)
	for _, r := range snap {
		if r.Status != domain.ResultSuccess {
			continue
		}
		for name, v := range r.Metrics {
			successValues[name] = append(successValues[name], v)
		}
	}

	names := make([]string, 0, len(successValues))
	for name := range successValues {
		names = append(names, name)
	}
	sort.Strings(names)

	factors := make([]domain.SuccessFactor, 0, len(names))
	for _, name := range names {
		vals := successValues[name]

		confidence := 0.0
		if cv, err := stats.CoefficientOfVariation(vals); err == nil {
			confidence = domain.Clamp01(1 - cv)
		}

		var (
			all      []float64
			outcomes []bool
		)
		for _, r := range snap {
			if v, ok := r.Metrics[name]; ok {
				all = append(all, v)
				outcomes = append(outcomes, r.Status == domain.ResultSuccess)
			}
		}
		importance := 0.0
		if rpb, err := stats.PointBiserial(all, outcomes); err == nil {
			importance = math.Abs(rpb)
		}

		factors = append(factors, domain.SuccessFactor{
			Metric:     name,
			Threshold:  stats.Mean(vals),
			Confidence: confidence,
			Importance: importance,
			SampleSize: len(vals),
		})
	}

	sort.SliceStable(factors, func(i, j int) bool {
		return factors[i].Importance > factors[j].Importance
	})
	return factors, nil
}

// Restore reloads results from the store, honoring the retention cap.
// Results beyond the cap are deleted from the store.
func (t *Tracker) Restore(ctx context.Context) (int, error) {
	if t.store == nil {
		return 0, nil
	}

	results, err := t.store.ListResults(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("restore results: %w", err)
	}

	var restored []*trackedResult
	for _, r := range results {
		if !r.ExperimentType.Valid() {
			t.logger.Warn("skipping result with unknown type", zap.String("experiment", r.ExperimentID))
			continue
		}
		revs, err := t.store.ListRevisions(ctx, r.ExperimentID)
		if err != nil {
			return 0, fmt.Errorf("restore revisions for %s: %w", r.ExperimentID, err)
		}
		restored = append(restored, &trackedResult{result: r, revisions: revs})
	}

	t.mu.Lock()
	var (
		evicted  []*trackedResult
		inserted int
	)
	for _, tr := range restored {
		if _, exists := t.results[tr.result.ExperimentID]; exists {
			continue
		}
		inserted++
		evicted = append(evicted, t.insertLocked(tr)...)
	}
	counts := make(map[domain.ExperimentType]int, len(t.byType))
	for typ, ids := range t.byType {
		counts[typ] = len(ids)
	}
	t.mu.Unlock()

	t.dropEvicted(ctx, evicted)
	for typ, n := range counts {
		t.metrics.SetTrackedResults(string(typ), n)
	}
	return inserted - len(evicted), nil
}

func (t *Tracker) persist(ctx context.Context, r *domain.ExperimentResult) {
	if t.store == nil {
		return
	}
	if err := t.store.SaveResult(context.WithoutCancel(ctx), r); err != nil {
		t.logger.Warn("result write-through failed", zap.String("experiment", r.ExperimentID), zap.Error(err))
	}
}
