package domain

import "time"

// SuccessFactor is a metric that distinguishes successful experiments of a type
type SuccessFactor struct {
	Metric string `json:"metric"`
	// Threshold is the mean value among successful experiments
	Threshold float64 `json:"threshold"`
	// Confidence is 1 - coefficient of variation among successes, clamped to [0,1]
	Confidence float64 `json:"confidence"`
	// Importance is |point-biserial correlation| between the metric and success
	Importance float64 `json:"importance"`
	SampleSize int     `json:"sample_size"`
}

// TimelineEntry is one result's position in a report timeline
type TimelineEntry struct {
	ExperimentID string       `json:"experiment_id"`
	Timestamp    time.Time    `json:"timestamp"`
	Status       ResultStatus `json:"status"`
	Confidence   float64      `json:"confidence"`
}

// Interval is a closed numeric interval
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Report aggregates all tracked results of one experiment type
type Report struct {
	ExperimentType    ExperimentType  `json:"experiment_type"`
	GeneratedAt       time.Time       `json:"generated_at"`
	TotalExperiments  int             `json:"total_experiments"`
	SuccessRate       float64         `json:"success_rate"`
	SuccessRateCI95   Interval        `json:"success_rate_ci95"`
	AverageConfidence float64         `json:"average_confidence"`
	EvidenceStrength  float64         `json:"evidence_strength"`
	Insights          []string        `json:"insights"`
	Recommendations   []string        `json:"recommendations"`
	Timeline          []TimelineEntry `json:"timeline"`
}

// NextStepCategory orders follow-up work by urgency
type NextStepCategory string

const (
	StepValidation   NextStepCategory = "validation"
	StepImprovement  NextStepCategory = "improvement"
	StepExploration  NextStepCategory = "exploration"
	StepOptimization NextStepCategory = "optimization"
)

// Priority returns the sort score for a category, higher first
func (c NextStepCategory) Priority() int {
	switch c {
	case StepValidation:
		return 4
	case StepImprovement:
		return 3
	case StepExploration:
		return 2
	case StepOptimization:
		return 1
	}
	return 0
}

// NextStep is a prioritized follow-up action
type NextStep struct {
	Description string           `json:"description"`
	Category    NextStepCategory `json:"category"`
	Priority    int              `json:"priority"`
}

// AnalysisResult is the analyzer's verdict on a single experiment
type AnalysisResult struct {
	ExperimentID     string         `json:"experiment_id"`
	ExperimentType   ExperimentType `json:"experiment_type"`
	Status           ResultStatus   `json:"status"`
	Success          bool           `json:"success"`
	Confidence       float64        `json:"confidence"`
	Insights         []string       `json:"insights"`
	Recommendations  []string       `json:"recommendations"`
	Risks            []string       `json:"risks"`
	NextSteps        []NextStep     `json:"next_steps"`
	EvidenceStrength float64        `json:"evidence_strength"`
	Enriched         bool           `json:"enriched"`
}
