package service

import (
	"context"
	"strings"

	"venturelab/internal/catalog"
	"venturelab/internal/domain"
	"venturelab/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TargetAdjuster rescales a criterion target for a specific venture context
type TargetAdjuster func(base float64, vctx domain.ValidationContext) float64

// IdentityTargets leaves targets unchanged
func IdentityTargets(base float64, _ domain.ValidationContext) float64 {
	return base
}

// Hypothesis placeholder fallbacks used when the context leaves a field empty
const (
	fallbackProblem  = "the identified problem"
	fallbackSolution = "the proposed solution"
	fallbackSegment  = "target customers"
	fallbackIndustry = "the target industry"
	fallbackLocation = "the target market"
)

// Factory creates experiments from catalog templates
type Factory struct {
	catalog *catalog.Catalog
	store   *ExperimentStore
	bus     *EventBus
	metrics *metrics.Metrics
	logger  *zap.Logger
	adjust  TargetAdjuster
	newID   func() string
}

// NewFactory creates a new experiment factory
func NewFactory(cat *catalog.Catalog, store *ExperimentStore, bus *EventBus, m *metrics.Metrics, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		catalog: cat,
		store:   store,
		bus:     bus,
		metrics: m,
		logger:  logger.Named("factory"),
		adjust:  IdentityTargets,
		newID:   uuid.NewString,
	}
}

// WithTargetAdjuster replaces the identity target adjustment
func (f *Factory) WithTargetAdjuster(a TargetAdjuster) *Factory {
	if a != nil {
		f.adjust = a
	}
	return f
}

// CreateExperiment instantiates the first catalog template for typ
func (f *Factory) CreateExperiment(ctx context.Context, typ domain.ExperimentType, vctx domain.ValidationContext) (*domain.Experiment, error) {
	tmpl, err := f.catalog.ForType(typ)
	if err != nil {
		return nil, err
	}
	return f.create(ctx, tmpl, vctx)
}

// CreateFromTemplate instantiates a specific template, including customized ones
func (f *Factory) CreateFromTemplate(ctx context.Context, templateID string, vctx domain.ValidationContext) (*domain.Experiment, error) {
	tmpl, err := f.catalog.Get(templateID)
	if err != nil {
		return nil, err
	}
	return f.create(ctx, tmpl, vctx)
}

func (f *Factory) create(ctx context.Context, tmpl domain.ExperimentTemplate, vctx domain.ValidationContext) (*domain.Experiment, error) {
	if err := vctx.Validate(); err != nil {
		return nil, err
	}

	exp := domain.NewExperiment(f.newID(), tmpl, vctx)
	exp.Hypothesis = FillHypothesis(tmpl.HypothesisTemplate, vctx)
	for i := range exp.SuccessCriteria {
		exp.SuccessCriteria[i].Target = f.adjust(exp.SuccessCriteria[i].Target, vctx)
	}

	if err := f.store.Insert(ctx, exp); err != nil {
		return nil, err
	}

	f.metrics.ExperimentCreated(string(exp.Type))
	f.logger.Info("experiment created",
		zap.String("experiment", exp.ID),
		zap.String("template", tmpl.ID),
		zap.String("type", string(exp.Type)))
	f.bus.Publish(Event{
		Type:    EventExperimentCreated,
		Payload: experimentPayload(exp.ID, string(exp.Type), string(exp.Status)),
	})

	return exp, nil
}

// FillHypothesis substitutes [problem], [solution], [segment], [industry]
// and [location] from the context, with generic wording for empty fields.
func FillHypothesis(template string, vctx domain.ValidationContext) string {
	r := strings.NewReplacer(
		"[problem]", orDefault(vctx.Problem, fallbackProblem),
		"[solution]", orDefault(vctx.Solution, fallbackSolution),
		"[segment]", orDefault(vctx.TargetSegment, fallbackSegment),
		"[industry]", orDefault(vctx.Industry, fallbackIndustry),
		"[location]", orDefault(vctx.Location, fallbackLocation),
	)
	return r.Replace(template)
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}
