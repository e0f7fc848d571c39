package catalog

import "venturelab/internal/domain"

// DefaultTemplates returns the built-in template set, at least one per
// experiment type, ordered by validation stage
func DefaultTemplates() []domain.ExperimentTemplate {
	return []domain.ExperimentTemplate{
		{
			ID:                 "problem_interview",
			Name:               "Problem Interview",
			Stage:              domain.StageProblem,
			Type:               domain.ExperimentTypeProblemInterview,
			HypothesisTemplate: "[segment] experience [problem] often enough that they are actively looking for a better way",
			SuccessCriteria: []domain.SuccessCriterion{
				{Metric: "problem_confirmation_rate", Target: 80, Minimum: 60, Unit: "%"},
				{Metric: "active_solution_seeking", Target: 60, Minimum: 40, Unit: "%"},
			},
			DurationDays:      14,
			Cost:              500,
			RiskLevel:         domain.RiskLow,
			RequiredResources: []string{"interview script", "15-20 target customers", "note taker"},
			SetupInstructions: []string{
				"Recruit interviewees matching the target segment",
				"Ask about past behaviour, never pitch the solution",
				"Record whether the problem was confirmed and whether they seek alternatives",
			},
			Metrics: []domain.MetricDefinition{
				{Name: "problem_confirmation_rate", Description: "Share of interviewees confirming the problem", Unit: "%"},
				{Name: "active_solution_seeking", Description: "Share actively looking for a solution", Unit: "%"},
				{Name: "completion_rate", Description: "Share of scheduled interviews completed", Unit: "ratio"},
			},
			DataCollectionMethods: []string{"structured interviews", "interview notes"},
			AnalysisMethods:       []string{"affinity mapping", "frequency counts"},
			References:            []string{"The Mom Test", "Running Lean"},
		},
		{
			ID:                 "solution_interview",
			Name:               "Solution Interview",
			Stage:              domain.StageSolution,
			Type:               domain.ExperimentTypeSolutionInterview,
			HypothesisTemplate: "[segment] will find [solution] a compelling answer to [problem]",
			SuccessCriteria: []domain.SuccessCriterion{
				{Metric: "problem_validation", Target: 70, Minimum: 50, Unit: "%"},
				{Metric: "solution_appeal", Target: 70, Minimum: 50, Unit: "%"},
				{Metric: "implementation_feasibility", Target: 60, Minimum: 40, Unit: "%"},
				{Metric: "willingness_to_pay", Target: 40, Minimum: 20, Unit: "%"},
			},
			DurationDays:      21,
			Cost:              1500,
			RiskLevel:         domain.RiskMedium,
			RequiredResources: []string{"prototype or mockups", "10-15 validated early adopters"},
			SetupInstructions: []string{
				"Re-confirm the problem before demoing",
				"Walk through the prototype and capture reactions",
				"Close with a pricing and commitment question",
			},
			Metrics: []domain.MetricDefinition{
				{Name: "problem_validation", Unit: "%"},
				{Name: "solution_appeal", Unit: "%"},
				{Name: "implementation_feasibility", Unit: "%"},
				{Name: "willingness_to_pay", Unit: "%"},
			},
			DataCollectionMethods: []string{"demo sessions", "follow-up survey"},
			AnalysisMethods:       []string{"weighted fit score"},
		},
		{
			ID:                 "landing_page",
			Name:               "Landing Page Test",
			Stage:              domain.StageMarket,
			Type:               domain.ExperimentTypeLandingPage,
			HypothesisTemplate: "Visitors from [industry] in [location] will sign up to hear about [solution]",
			SuccessCriteria: []domain.SuccessCriterion{
				{Metric: "signup_rate", Target: 10, Minimum: 5, Unit: "%"},
				{Metric: "click_through_rate", Target: 3, Minimum: 1, Unit: "%"},
			},
			DurationDays:          14,
			Cost:                  800,
			RiskLevel:             domain.RiskLow,
			RequiredResources:     []string{"landing page", "ad budget", "analytics"},
			DataCollectionMethods: []string{"web analytics", "email signups"},
			AnalysisMethods:       []string{"conversion funnel"},
		},
		{
			ID:                 "landing_page_smoke_test",
			Name:               "Smoke Test with Pre-orders",
			Stage:              domain.StageMarket,
			Type:               domain.ExperimentTypeLandingPage,
			HypothesisTemplate: "[segment] will pre-order [solution] before it exists",
			SuccessCriteria: []domain.SuccessCriterion{
				{Metric: "signup_rate", Target: 15, Minimum: 8, Unit: "%"},
				{Metric: "preorder_rate", Target: 2, Minimum: 1, Unit: "%"},
			},
			DurationDays:          21,
			Cost:                  1200,
			RiskLevel:             domain.RiskMedium,
			RequiredResources:     []string{"landing page", "payment form", "ad budget"},
			DataCollectionMethods: []string{"web analytics", "payment intents"},
			AnalysisMethods:       []string{"conversion funnel"},
		},
		{
			ID:                 "pricing_test",
			Name:               "Pricing Test",
			Stage:              domain.StageBusinessModel,
			Type:               domain.ExperimentTypePricingTest,
			HypothesisTemplate: "[segment] will pay the proposed price for [solution]",
			SuccessCriteria: []domain.SuccessCriterion{
				{Metric: "conversion_rate", Target: 5, Minimum: 2, Unit: "%"},
				{Metric: "price_acceptance", Target: 60, Minimum: 40, Unit: "%"},
			},
			DurationDays:          30,
			Cost:                  2000,
			RiskLevel:             domain.RiskHigh,
			RequiredResources:     []string{"pricing page variants", "payment integration"},
			DataCollectionMethods: []string{"A/B price variants", "checkout analytics"},
			AnalysisMethods:       []string{"price sensitivity", "conversion comparison"},
			References:            []string{"Van Westendorp price sensitivity meter"},
		},
	}
}
