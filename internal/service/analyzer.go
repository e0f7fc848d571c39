package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"venturelab/internal/collector"
	"venturelab/internal/domain"
	"venturelab/internal/metrics"

	"go.uber.org/zap"
)

// Enricher supplies market and competitor context for insights
type Enricher interface {
	MarketData(ctx context.Context, vctx domain.ValidationContext) (*domain.MarketData, error)
	CompetitorData(ctx context.Context, vctx domain.ValidationContext) (*domain.CompetitorData, error)
}

// Analyzer thresholds
const (
	evidenceSaturation       = 5 // evidence items for full evidence-count credit
	nextStepMinConfidence    = 0.8
	nextStepMinEvidence      = 0.7
	nextStepMinCompletion    = 0.9
	weakContextMetric        = 0.4
	thinEvidenceCount        = 3
	strongFactorImportance   = 0.5
	moderateFactorImportance = 0.3
)

// Solution interview fit weights
var solutionFitWeights = []struct {
	metric string
	weight float64
}{
	{"problem_validation", 0.3},
	{"solution_appeal", 0.3},
	{"implementation_feasibility", 0.2},
	{"willingness_to_pay", 0.2},
}

// Analyzer interprets a single experiment's results
type Analyzer struct {
	tracker  *Tracker
	enricher Enricher
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewAnalyzer creates an analyzer; enricher may be nil
func NewAnalyzer(tracker *Tracker, enricher Enricher, m *metrics.Metrics, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		tracker:  tracker,
		enricher: enricher,
		metrics:  m,
		logger:   logger.Named("analyzer"),
	}
}

// Analyze produces the verdict, insights, risks and next steps for an
// experiment. The experiment must carry results or have them tracked.
// A zero vctx falls back to the experiment's own context.
func (a *Analyzer) Analyze(ctx context.Context, exp *domain.Experiment, vctx domain.ValidationContext) (*domain.AnalysisResult, error) {
	res := exp.Results
	if res == nil && a.tracker != nil {
		if tracked, err := a.tracker.Get(exp.ID); err == nil {
			res = tracked
		}
	}
	if res == nil {
		return nil, domain.InvalidExperimentf("experiment %s has no results to analyze", exp.ID)
	}
	if vctx == (domain.ValidationContext{}) {
		vctx = exp.Context
	}

	status, err := domain.Classify(res.Metrics, exp.SuccessCriteria)
	if err != nil {
		return nil, err
	}

	rs := newRates(res.Metrics, exp.SuccessCriteria)
	out := &domain.AnalysisResult{
		ExperimentID:     exp.ID,
		ExperimentType:   exp.Type,
		Status:           status,
		Success:          status == domain.ResultSuccess,
		Confidence:       domain.Clamp01(0.5*evidenceScore(res) + 0.5*typeScore(exp.Type, rs)),
		EvidenceStrength: res.EvidenceStrength,
	}

	insights := newStringSet()
	insights.add(typeInsights(exp.Type, rs)...)
	insights.add(criteriaInsights(exp.SuccessCriteria, res.Metrics)...)
	insights.add(res.Insights...)
	enriched := a.enrich(ctx, vctx, insights)
	out.Insights = insights.items
	out.Enriched = enriched

	out.Recommendations = recommendations(status, exp.SuccessCriteria, res.Metrics)
	out.Risks = risks(exp, vctx, res)
	out.NextSteps = nextSteps(exp.Type, out, rs)
	return out, nil
}

// evidenceScore blends evidence volume and reliability
func evidenceScore(r *domain.ExperimentResult) float64 {
	volume := math.Min(1, float64(len(r.Evidence))/evidenceSaturation)
	return 0.5*volume + 0.5*r.AverageReliability()
}

// rates reads metrics as 0-1 fractions on the scale their criteria
// declare. A criterion in "%" or with a target above 1 is a percentage.
// Metrics without a criterion are percentages, like every built-in rate.
type rates struct {
	metrics  map[string]float64
	criteria []domain.SuccessCriterion
	fraction map[string]bool
}

func newRates(m map[string]float64, criteria []domain.SuccessCriterion) rates {
	r := rates{metrics: m, criteria: criteria, fraction: make(map[string]bool, len(criteria))}
	for _, c := range criteria {
		r.fraction[c.Metric] = c.Unit != "%" && c.Target <= 1
	}
	return r
}

// of returns the metric as a fraction and whether it was measured
func (r rates) of(metric string) (float64, bool) {
	v, ok := r.metrics[metric]
	if !ok {
		return 0, false
	}
	if !r.fraction[metric] {
		v /= 100
	}
	return domain.Clamp01(v), true
}

func (r rates) frac(metric string) float64 {
	v, _ := r.of(metric)
	return v
}

// attainment is how far a metric got toward its criterion target
func (r rates) attainment(metric string) float64 {
	for _, c := range r.criteria {
		if c.Metric != metric {
			continue
		}
		v, ok := r.metrics[metric]
		if !ok {
			return 0
		}
		if c.Target <= 0 {
			return 1
		}
		return domain.Clamp01(v / c.Target)
	}
	return r.frac(metric)
}

// typeScore rates the experiment on the metrics that matter for its type
func typeScore(typ domain.ExperimentType, r rates) float64 {
	switch typ {
	case domain.ExperimentTypeProblemInterview:
		return (r.frac("problem_confirmation_rate") + r.frac("active_solution_seeking")) / 2
	case domain.ExperimentTypeSolutionInterview:
		return solutionFit(r)
	case domain.ExperimentTypePricingTest:
		return 0.5*r.attainment("conversion_rate") + 0.5*r.frac("price_acceptance")
	case domain.ExperimentTypeLandingPage:
		return 0.6*r.attainment("signup_rate") + 0.4*r.attainment("click_through_rate")
	}
	return 0
}

// solutionFit is the weighted solution interview fit score
func solutionFit(r rates) float64 {
	var score float64
	for _, w := range solutionFitWeights {
		score += w.weight * r.frac(w.metric)
	}
	return domain.Clamp01(score)
}

func pct(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

// typeInsights phrases the type-specific reading of the metrics
func typeInsights(typ domain.ExperimentType, r rates) []string {
	var out []string
	switch typ {
	case domain.ExperimentTypeProblemInterview:
		if f, ok := r.of("problem_confirmation_rate"); ok {
			switch {
			case f >= 0.8:
				out = append(out, fmt.Sprintf("Strong problem validation: %s of customers confirmed the problem", pct(f)))
			case f >= 0.6:
				out = append(out, fmt.Sprintf("Moderate problem validation: %s of customers confirmed the problem", pct(f)))
			default:
				out = append(out, fmt.Sprintf("Weak problem validation: only %s of customers confirmed the problem", pct(f)))
			}
		}
		if f, ok := r.of("active_solution_seeking"); ok {
			if f >= 0.6 {
				out = append(out, fmt.Sprintf("%s of customers are actively seeking a solution, signalling market pull", pct(f)))
			} else {
				out = append(out, fmt.Sprintf("Only %s of customers are actively seeking a solution", pct(f)))
			}
		}
	case domain.ExperimentTypeSolutionInterview:
		fit := solutionFit(r)
		switch {
		case fit >= 0.7:
			out = append(out, fmt.Sprintf("Strong solution fit (score %.2f)", fit))
		case fit >= 0.5:
			out = append(out, fmt.Sprintf("Partial solution fit (score %.2f): some features need refinement", fit))
		default:
			out = append(out, fmt.Sprintf("Poor solution fit (score %.2f)", fit))
		}
		if f, ok := r.of("willingness_to_pay"); ok && f < 0.3 {
			out = append(out, fmt.Sprintf("Low willingness to pay (%s) despite interest in the solution", pct(f)))
		}
		if f, ok := r.of("implementation_feasibility"); ok && f < 0.5 {
			out = append(out, "Customers doubt the solution can be implemented in their workflow")
		}
	case domain.ExperimentTypePricingTest:
		if f, ok := r.of("price_acceptance"); ok {
			if f >= 0.6 {
				out = append(out, fmt.Sprintf("Price point accepted by %s of prospects", pct(f)))
			} else {
				out = append(out, fmt.Sprintf("Price resistance: only %s of prospects accepted the price", pct(f)))
			}
		}
		if f, ok := r.of("conversion_rate"); ok {
			out = append(out, fmt.Sprintf("Paid conversion reached %.1f%%", f*100))
		}
	case domain.ExperimentTypeLandingPage:
		if f, ok := r.of("signup_rate"); ok {
			out = append(out, fmt.Sprintf("Landing page converted %.1f%% of visitors into signups", f*100))
		}
		if f, ok := r.of("click_through_rate"); ok && f < 0.01 {
			out = append(out, "Low click-through suggests the ad message misses the customer segment")
		}
	}
	return out
}

// criteriaInsights compares each criterion with its target and minimum
func criteriaInsights(criteria []domain.SuccessCriterion, m map[string]float64) []string {
	var out []string
	for _, c := range criteria {
		v, ok := m[c.Metric]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("%s was not measured", c.Metric))
		case v >= c.Target:
			out = append(out, fmt.Sprintf("%s met its target (%.2f%s vs %.2f%s)", c.Metric, v, c.Unit, c.Target, c.Unit))
		case v < c.Minimum:
			out = append(out, fmt.Sprintf("%s fell below its minimum (%.2f%s vs %.2f%s)", c.Metric, v, c.Unit, c.Minimum, c.Unit))
		default:
			out = append(out, fmt.Sprintf("%s is above minimum but short of target (%.2f%s vs %.2f%s)", c.Metric, v, c.Unit, c.Target, c.Unit))
		}
	}
	return out
}

func mentions(items []string, keywords ...string) bool {
	for _, it := range items {
		lower := strings.ToLower(it)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
	}
	return false
}

// enrich adds market and competitor context when insights mention them.
// Lookup failures are logged and counted, never returned.
func (a *Analyzer) enrich(ctx context.Context, vctx domain.ValidationContext, insights *stringSet) bool {
	if a.enricher == nil {
		return false
	}

	var enriched bool
	if mentions(insights.items, "market", "customer") {
		md, err := a.enricher.MarketData(ctx, vctx)
		if err != nil {
			a.enrichmentFailed("market", err)
		} else if md != nil {
			insights.add(marketInsight(md))
			for _, trend := range md.Trends {
				insights.add("Market trend: " + trend)
			}
			enriched = true
		}
	}
	if mentions(insights.items, "competitor", "feature") {
		cd, err := a.enricher.CompetitorData(ctx, vctx)
		if err != nil {
			a.enrichmentFailed("competitor", err)
		} else if cd != nil {
			if len(cd.Competitors) > 0 {
				insights.add(fmt.Sprintf("Known competitors in %s: %s", cd.Industry, strings.Join(cd.Competitors, ", ")))
			}
			if len(cd.Features) > 0 {
				insights.add("Competitors already offer: " + strings.Join(cd.Features, ", "))
			}
			enriched = true
		}
	}
	return enriched
}

func marketInsight(md *domain.MarketData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Market context: %s", md.Industry)
	if md.Location != "" {
		fmt.Fprintf(&b, " in %s", md.Location)
	}
	if md.MarketSize != "" {
		fmt.Fprintf(&b, ", size %s", md.MarketSize)
	}
	if md.GrowthRate != 0 {
		fmt.Fprintf(&b, ", growing %.1f%% per year", md.GrowthRate)
	}
	return b.String()
}

func (a *Analyzer) enrichmentFailed(kind string, err error) {
	a.metrics.EnrichmentFailed(kind)
	a.logger.Warn("enrichment failed", zap.String("kind", kind), zap.Error(fmt.Errorf("%w: %w", domain.ErrEnrichmentFailure, err)))
}

func recommendations(status domain.ResultStatus, criteria []domain.SuccessCriterion, m map[string]float64) []string {
	var out []string
	switch status {
	case domain.ResultSuccess:
		out = append(out, "Hypothesis validated: proceed to the next validation stage")
	case domain.ResultFailure:
		out = append(out, "Hypothesis not supported: revisit the problem or segment before investing further")
	default:
		out = append(out, "Results are inconclusive: extend the experiment or increase the sample size")
	}
	for _, c := range criteria {
		if v, ok := m[c.Metric]; ok && v < c.Target {
			out = append(out, fmt.Sprintf("Improve %s from %.2f%s toward the %.2f%s target", c.Metric, v, c.Unit, c.Target, c.Unit))
		}
	}
	return out
}

func risks(exp *domain.Experiment, vctx domain.ValidationContext, r *domain.ExperimentResult) []string {
	out := []string{}
	for _, c := range exp.SuccessCriteria {
		if v, ok := r.Metrics[c.Metric]; ok && v < c.Minimum {
			out = append(out, fmt.Sprintf("%s is below the minimum acceptable level", c.Metric))
		}
	}
	if exp.RiskLevel == domain.RiskHigh {
		out = append(out, "High-risk experiment: results carry significant cost if misread")
	}

	weak := []struct {
		name  string
		value float64
	}{
		{"market fit", vctx.Metrics.MarketFit},
		{"execution capability", vctx.Metrics.ExecutionCapability},
		{"competitive advantage", vctx.Metrics.CompetitiveAdvantage},
		{"financial viability", vctx.Metrics.FinancialViability},
	}
	if vctx.Metrics != (domain.ContextMetrics{}) {
		for _, w := range weak {
			if w.value < weakContextMetric {
				out = append(out, fmt.Sprintf("Weak %s (%.2f)", w.name, w.value))
			}
		}
	}

	if len(r.Evidence) < thinEvidenceCount {
		out = append(out, fmt.Sprintf("Thin evidence base: %d item(s) collected", len(r.Evidence)))
	}
	return out
}

func nextSteps(typ domain.ExperimentType, a *domain.AnalysisResult, r rates) []domain.NextStep {
	var steps []domain.NextStep
	add := func(cat domain.NextStepCategory, desc string) {
		steps = append(steps, domain.NextStep{Description: desc, Category: cat, Priority: cat.Priority()})
	}

	if a.Confidence < nextStepMinConfidence {
		add(domain.StepValidation, "Run a follow-up experiment to raise confidence above 0.8")
	}
	if a.EvidenceStrength < nextStepMinEvidence {
		add(domain.StepValidation, "Gather more quantitative evidence")
	}
	if f, ok := r.of(collector.CompletionRateMetric); ok && f < nextStepMinCompletion {
		add(domain.StepImprovement, "Improve experiment completion rate above 90%")
	}

	switch typ {
	case domain.ExperimentTypeProblemInterview:
		if a.Success {
			add(domain.StepExploration, "Design solution interviews with the validated segment")
		} else {
			add(domain.StepImprovement, "Refine the problem hypothesis and interview a narrower segment")
		}
	case domain.ExperimentTypeSolutionInterview:
		if a.Success {
			add(domain.StepExploration, "Test pricing with the most engaged interviewees")
		} else {
			add(domain.StepImprovement, "Iterate on the prototype around the weakest fit dimension")
		}
	case domain.ExperimentTypePricingTest:
		if a.Success {
			add(domain.StepOptimization, "Optimize pricing tiers and packaging")
		} else {
			add(domain.StepExploration, "Explore alternative price points and billing models")
		}
	case domain.ExperimentTypeLandingPage:
		if a.Success {
			add(domain.StepOptimization, "Scale the best performing acquisition channel")
		} else {
			add(domain.StepImprovement, "Rework the value proposition and rerun the landing page")
		}
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority > steps[j].Priority
	})
	return steps
}

// FactorAnalysis pairs success factors with their readable interpretation
type FactorAnalysis struct {
	ExperimentType domain.ExperimentType  `json:"experiment_type"`
	Factors        []domain.SuccessFactor `json:"factors"`
	Insights       []string               `json:"insights"`
}

// SuccessFactors computes and phrases the success factors of a type
func (a *Analyzer) SuccessFactors(typ domain.ExperimentType) (*FactorAnalysis, error) {
	factors, err := a.tracker.SuccessFactors(typ)
	if err != nil {
		return nil, err
	}

	out := &FactorAnalysis{ExperimentType: typ, Factors: factors, Insights: []string{}}
	for _, f := range factors {
		strength := "weak"
		switch {
		case f.Importance >= strongFactorImportance:
			strength = "strong"
		case f.Importance >= moderateFactorImportance:
			strength = "moderate"
		}
		out.Insights = append(out.Insights, fmt.Sprintf(
			"%s is a %s success factor (importance %.2f); successful experiments averaged %.2f across %d sample(s)",
			f.Metric, strength, f.Importance, f.Threshold, f.SampleSize))
	}
	return out, nil
}

// stringSet is an insertion-ordered set of strings
type stringSet struct {
	items []string
	seen  map[string]bool
}

func newStringSet() *stringSet {
	return &stringSet{items: []string{}, seen: make(map[string]bool)}
}

func (s *stringSet) add(items ...string) {
	for _, it := range items {
		if it == "" || s.seen[it] {
			continue
		}
		s.seen[it] = true
		s.items = append(s.items, it)
	}
}
