package domain

import "fmt"

// ExperimentType identifies the kind of validation experiment
type ExperimentType string

const (
	ExperimentTypeProblemInterview  ExperimentType = "problem_interview"
	ExperimentTypeSolutionInterview ExperimentType = "solution_interview"
	ExperimentTypePricingTest       ExperimentType = "pricing_test"
	ExperimentTypeLandingPage       ExperimentType = "landing_page"
)

// ExperimentTypes returns every supported experiment type in declaration order
func ExperimentTypes() []ExperimentType {
	return []ExperimentType{
		ExperimentTypeProblemInterview,
		ExperimentTypeSolutionInterview,
		ExperimentTypePricingTest,
		ExperimentTypeLandingPage,
	}
}

// Valid reports whether t is one of the supported experiment types
func (t ExperimentType) Valid() bool {
	switch t {
	case ExperimentTypeProblemInterview,
		ExperimentTypeSolutionInterview,
		ExperimentTypePricingTest,
		ExperimentTypeLandingPage:
		return true
	}
	return false
}

// ParseExperimentType converts a string into an ExperimentType
func ParseExperimentType(s string) (ExperimentType, error) {
	t := ExperimentType(s)
	if !t.Valid() {
		return "", InvalidExperimentf("unknown experiment type %q", s)
	}
	return t, nil
}

// ValidationStage is the phase of startup validation a template belongs to
type ValidationStage string

const (
	StageProblem       ValidationStage = "problem"
	StageSolution      ValidationStage = "solution"
	StageMarket        ValidationStage = "market"
	StageBusinessModel ValidationStage = "business_model"
)

// Valid reports whether s is a known validation stage
func (s ValidationStage) Valid() bool {
	switch s {
	case StageProblem, StageSolution, StageMarket, StageBusinessModel:
		return true
	}
	return false
}

// RiskLevel describes how risky an experiment is to run
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is a known risk level
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// SuccessCriterion is a named metric with the target used to judge an outcome
type SuccessCriterion struct {
	Metric  string  `json:"metric" yaml:"metric"`
	Target  float64 `json:"target" yaml:"target"`
	Minimum float64 `json:"minimum" yaml:"minimum"`
	Unit    string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// MetricDefinition documents a metric collected by an experiment
type MetricDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Unit        string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// ExperimentTemplate is the immutable blueprint experiments are created from
type ExperimentTemplate struct {
	ID                    string             `json:"id" yaml:"id"`
	Name                  string             `json:"name" yaml:"name"`
	Stage                 ValidationStage    `json:"stage" yaml:"stage"`
	Type                  ExperimentType     `json:"type" yaml:"type"`
	HypothesisTemplate    string             `json:"hypothesis_template" yaml:"hypothesis_template"`
	SuccessCriteria       []SuccessCriterion `json:"success_criteria" yaml:"success_criteria"`
	DurationDays          int                `json:"duration_days" yaml:"duration_days"`
	Cost                  float64            `json:"cost" yaml:"cost"`
	RiskLevel             RiskLevel          `json:"risk_level" yaml:"risk_level"`
	RequiredResources     []string           `json:"required_resources,omitempty" yaml:"required_resources,omitempty"`
	SetupInstructions     []string           `json:"setup_instructions,omitempty" yaml:"setup_instructions,omitempty"`
	Metrics               []MetricDefinition `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	DataCollectionMethods []string           `json:"data_collection_methods,omitempty" yaml:"data_collection_methods,omitempty"`
	AnalysisMethods       []string           `json:"analysis_methods,omitempty" yaml:"analysis_methods,omitempty"`
	References            []string           `json:"references,omitempty" yaml:"references,omitempty"`
}

// Clone returns a deep copy so callers can never mutate a catalog entry
func (t ExperimentTemplate) Clone() ExperimentTemplate {
	c := t
	c.SuccessCriteria = append([]SuccessCriterion(nil), t.SuccessCriteria...)
	c.RequiredResources = append([]string(nil), t.RequiredResources...)
	c.SetupInstructions = append([]string(nil), t.SetupInstructions...)
	c.Metrics = append([]MetricDefinition(nil), t.Metrics...)
	c.DataCollectionMethods = append([]string(nil), t.DataCollectionMethods...)
	c.AnalysisMethods = append([]string(nil), t.AnalysisMethods...)
	c.References = append([]string(nil), t.References...)
	return c
}

// Validate checks the fields every template needs
func (t ExperimentTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template ID required")
	}
	if !t.Type.Valid() {
		return fmt.Errorf("template %s: unknown experiment type %q", t.ID, t.Type)
	}
	if !t.Stage.Valid() {
		return fmt.Errorf("template %s: unknown stage %q", t.ID, t.Stage)
	}
	if t.RiskLevel != "" && !t.RiskLevel.Valid() {
		return fmt.Errorf("template %s: unknown risk level %q", t.ID, t.RiskLevel)
	}
	if len(t.SuccessCriteria) == 0 {
		return fmt.Errorf("template %s: at least one success criterion required", t.ID)
	}
	return nil
}
