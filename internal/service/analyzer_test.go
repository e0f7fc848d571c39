package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"venturelab/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnricher struct {
	market      *domain.MarketData
	competitors *domain.CompetitorData
	err         error
	calls       []string
}

func (f *fakeEnricher) MarketData(_ context.Context, _ domain.ValidationContext) (*domain.MarketData, error) {
	f.calls = append(f.calls, "market")
	if f.err != nil {
		return nil, f.err
	}
	return f.market, nil
}

func (f *fakeEnricher) CompetitorData(_ context.Context, _ domain.ValidationContext) (*domain.CompetitorData, error) {
	f.calls = append(f.calls, "competitor")
	if f.err != nil {
		return nil, f.err
	}
	return f.competitors, nil
}

func solutionExperiment(metrics map[string]float64, evidence ...domain.Evidence) *domain.Experiment {
	res := domain.NewExperimentResult("s1", domain.ExperimentTypeSolutionInterview)
	for k, v := range metrics {
		res.Metrics[k] = v
	}
	res.Evidence = append(res.Evidence, evidence...)
	recompute(res)

	return &domain.Experiment{
		ID:   "s1",
		Type: domain.ExperimentTypeSolutionInterview,
		SuccessCriteria: []domain.SuccessCriterion{
			{Metric: "problem_validation", Target: 70, Minimum: 50, Unit: "%"},
			{Metric: "solution_appeal", Target: 70, Minimum: 50, Unit: "%"},
			{Metric: "implementation_feasibility", Target: 60, Minimum: 40, Unit: "%"},
			{Metric: "willingness_to_pay", Target: 40, Minimum: 20, Unit: "%"},
		},
		RiskLevel: domain.RiskMedium,
		Results:   res,
	}
}

func TestSolutionFit(t *testing.T) {
	want := 0.3*0.8 + 0.3*0.6 + 0.2*0.5 + 0.2*0.3

	percent := map[string]float64{"problem_validation": 80, "solution_appeal": 60, "implementation_feasibility": 50, "willingness_to_pay": 30}
	assert.InDelta(t, want, solutionFit(newRates(percent, solutionExperiment(nil).SuccessCriteria)), 1e-9)

	fraction := map[string]float64{"problem_validation": 0.8, "solution_appeal": 0.6, "implementation_feasibility": 0.5, "willingness_to_pay": 0.3}
	var criteria []domain.SuccessCriterion
	for name := range fraction {
		criteria = append(criteria, domain.SuccessCriterion{Metric: name, Target: 0.7, Minimum: 0.5})
	}
	assert.InDelta(t, want, solutionFit(newRates(fraction, criteria)), 1e-9)

	assert.Equal(t, 0.0, solutionFit(newRates(nil, nil)))
}

func TestRatesFollowCriterionUnit(t *testing.T) {
	r := newRates(map[string]float64{"a": 1, "b": 0.5, "c": 40, "d": 0.9}, []domain.SuccessCriterion{
		{Metric: "a", Target: 80, Minimum: 60, Unit: "%"},
		{Metric: "b", Target: 0.7, Minimum: 0.5},
		{Metric: "c", Target: 50, Minimum: 30},
	})

	assert.InDelta(t, 0.01, r.frac("a"), 1e-9)
	assert.InDelta(t, 0.5, r.frac("b"), 1e-9)
	assert.InDelta(t, 0.4, r.frac("c"), 1e-9)
	assert.InDelta(t, 0.009, r.frac("d"), 1e-9, "metrics without a criterion are percentages")
	_, ok := r.of("missing")
	assert.False(t, ok)
}

func TestAnalyzeLowPercentages(t *testing.T) {
	res := domain.NewExperimentResult("p1", domain.ExperimentTypeProblemInterview)
	res.Metrics["problem_confirmation_rate"] = 1
	res.Metrics["active_solution_seeking"] = 0.9
	exp := &domain.Experiment{
		ID:   "p1",
		Type: domain.ExperimentTypeProblemInterview,
		SuccessCriteria: []domain.SuccessCriterion{
			{Metric: "problem_confirmation_rate", Target: 80, Minimum: 60, Unit: "%"},
			{Metric: "active_solution_seeking", Target: 60, Minimum: 40, Unit: "%"},
		},
		Results: res,
	}

	out, err := NewAnalyzer(nil, nil, nil, nil).Analyze(context.Background(), exp, domain.ValidationContext{})
	require.NoError(t, err)

	assert.Equal(t, domain.ResultFailure, out.Status)
	assert.Less(t, out.Confidence, 0.1)
	assert.Contains(t, out.Insights, "Weak problem validation: only 1% of customers confirmed the problem")
	assert.Contains(t, out.Insights, "Only 1% of customers are actively seeking a solution")
	for _, in := range out.Insights {
		assert.NotContains(t, in, "Strong problem validation")
		assert.NotContains(t, in, "signalling market pull")
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	evidence := []domain.Evidence{
		domain.NewEvidence(domain.EvidenceQuantitative, "interviews", "a", 0.8),
		domain.NewEvidence(domain.EvidenceQuantitative, "interviews", "b", 0.8),
		domain.NewEvidence(domain.EvidenceQualitative, "notes", "c", 0.8),
		domain.NewEvidence(domain.EvidenceQualitative, "notes", "d", 0.8),
		domain.NewEvidence(domain.EvidenceQualitative, "notes", "e", 0.8),
	}
	exp := solutionExperiment(map[string]float64{
		"problem_validation": 80, "solution_appeal": 75, "implementation_feasibility": 65, "willingness_to_pay": 45,
	}, evidence...)

	a := NewAnalyzer(nil, nil, nil, nil)
	out, err := a.Analyze(ctx, exp, domain.ValidationContext{})
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, domain.ResultSuccess, out.Status)

	fit := 0.3*0.8 + 0.3*0.75 + 0.2*0.65 + 0.2*0.45
	evidenceScore := 0.5*1 + 0.5*0.8
	assert.InDelta(t, 0.5*evidenceScore+0.5*fit, out.Confidence, 1e-9)
	assert.Equal(t, exp.Results.EvidenceStrength, out.EvidenceStrength)
	assert.False(t, out.Enriched)
	assert.Contains(t, out.Insights, "problem_validation met its target (80.00% vs 70.00%)")
	assert.Empty(t, out.Risks)

	for i := 1; i < len(out.NextSteps); i++ {
		assert.GreaterOrEqual(t, out.NextSteps[i-1].Priority, out.NextSteps[i].Priority)
	}
}

func TestAnalyzeRequiresResults(t *testing.T) {
	a := NewAnalyzer(NewTracker(0, nil, nil, nil, nil), nil, nil, nil)
	_, err := a.Analyze(context.Background(), &domain.Experiment{ID: "x", Type: domain.ExperimentTypeLandingPage}, domain.ValidationContext{})
	assert.ErrorIs(t, err, domain.ErrInvalidExperiment)
}

func TestAnalyzeRisksAndNextSteps(t *testing.T) {
	exp := solutionExperiment(map[string]float64{
		"problem_validation": 40, "solution_appeal": 30, "implementation_feasibility": 45, "willingness_to_pay": 10,
		"completion_rate": 70,
	})
	exp.RiskLevel = domain.RiskHigh
	vctx := domain.ValidationContext{Metrics: domain.ContextMetrics{
		IdeaStrength: 0.9, MarketFit: 0.2, ExecutionCapability: 0.8, CompetitiveAdvantage: 0.5, FinancialViability: 0.6,
	}}

	out, err := NewAnalyzer(nil, nil, nil, nil).Analyze(context.Background(), exp, vctx)
	require.NoError(t, err)

	assert.False(t, out.Success)
	assert.Equal(t, domain.ResultFailure, out.Status)
	assert.Contains(t, out.Risks, "problem_validation is below the minimum acceptable level")
	assert.Contains(t, out.Risks, "High-risk experiment: results carry significant cost if misread")
	assert.Contains(t, out.Risks, "Weak market fit (0.20)")
	assert.Contains(t, out.Risks, "Thin evidence base: 0 item(s) collected")

	var categories []domain.NextStepCategory
	for _, s := range out.NextSteps {
		categories = append(categories, s.Category)
	}
	assert.Equal(t, []domain.NextStepCategory{
		domain.StepValidation, domain.StepValidation, domain.StepImprovement, domain.StepImprovement,
	}, categories)
	assert.Equal(t, "Run a follow-up experiment to raise confidence above 0.8", out.NextSteps[0].Description)
	assert.Equal(t, "Improve experiment completion rate above 90%", out.NextSteps[2].Description)
}

func TestAnalyzeEnrichment(t *testing.T) {
	exp := solutionExperiment(map[string]float64{
		"problem_validation": 80, "solution_appeal": 80, "implementation_feasibility": 70, "willingness_to_pay": 10,
	})
	exp.Results.Insights = []string{"Customers compared us to a competitor feature"}

	t.Run("adds market and competitor context", func(t *testing.T) {
		enricher := &fakeEnricher{
			market:      &domain.MarketData{Industry: "fintech", Location: "Berlin", GrowthRate: 12.5, Trends: []string{"embedded finance"}},
			competitors: &domain.CompetitorData{Industry: "fintech", Competitors: []string{"Acme"}, Features: []string{"auto-reconciliation"}},
		}
		out, err := NewAnalyzer(nil, enricher, nil, nil).Analyze(context.Background(), exp, domain.ValidationContext{Industry: "fintech"})
		require.NoError(t, err)

		assert.True(t, out.Enriched)
		assert.Equal(t, []string{"market", "competitor"}, enricher.calls)
		assert.Contains(t, out.Insights, "Market context: fintech in Berlin, growing 12.5% per year")
		assert.Contains(t, out.Insights, "Market trend: embedded finance")
		assert.Contains(t, out.Insights, "Known competitors in fintech: Acme")
	})

	t.Run("failures are swallowed", func(t *testing.T) {
		enricher := &fakeEnricher{err: errors.New("lookup service down")}
		out, err := NewAnalyzer(nil, enricher, nil, nil).Analyze(context.Background(), exp, domain.ValidationContext{})
		require.NoError(t, err)
		assert.False(t, out.Enriched)
		for _, in := range out.Insights {
			assert.False(t, strings.HasPrefix(in, "Market context"))
		}
	})
}

func TestAnalyzerSuccessFactors(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(0, nil, nil, nil, nil)
	for id, pair := range map[string]struct {
		v  float64
		st domain.ResultStatus
	}{"a": {12, domain.ResultSuccess}, "b": {3, domain.ResultFailure}} {
		startResult(t, tr, id, domain.ExperimentTypeLandingPage)
		_, err := tr.TrackMetric(ctx, id, "signup_rate", pair.v)
		require.NoError(t, err)
		_, err = tr.SetStatus(ctx, id, pair.st)
		require.NoError(t, err)
	}

	fa, err := NewAnalyzer(tr, nil, nil, nil).SuccessFactors(domain.ExperimentTypeLandingPage)
	require.NoError(t, err)
	require.Len(t, fa.Factors, 1)
	require.Len(t, fa.Insights, 1)
	assert.Contains(t, fa.Insights[0], "signup_rate is a strong success factor (importance 1.00)")
}
