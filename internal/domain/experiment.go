package domain

import (
	"fmt"
	"time"
)

// ExperimentStatus is the lifecycle state of an experiment
type ExperimentStatus string

const (
	StatusPlanned    ExperimentStatus = "planned"
	StatusInProgress ExperimentStatus = "in_progress"
	StatusCompleted  ExperimentStatus = "completed"
	StatusFailed     ExperimentStatus = "failed"
	StatusCancelled  ExperimentStatus = "cancelled"
)

// IsTerminal returns true once no further transition is possible
func (s ExperimentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransitionTo encodes the forward-only lifecycle:
// planned -> in_progress -> {completed, failed, cancelled}, planned -> cancelled
func (s ExperimentStatus) CanTransitionTo(next ExperimentStatus) bool {
	switch s {
	case StatusPlanned:
		return next == StatusInProgress || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// FailureReason explains why an experiment ended in failed or cancelled
type FailureReason string

const (
	ReasonTimeout           FailureReason = "timeout"
	ReasonCancelled         FailureReason = "cancelled"
	ReasonInvalidExperiment FailureReason = "invalid_experiment"
	ReasonCriteriaNotMet    FailureReason = "criteria_not_met"
	ReasonCollectionError   FailureReason = "collection_error"
	// the process stopped while the experiment was in progress
	ReasonInterrupted       FailureReason = "interrupted"
)

// Experiment is a running instance created from a template
type Experiment struct {
	ID                string             `json:"id"`
	TemplateID        string             `json:"template_id"`
	Type              ExperimentType     `json:"type"`
	Stage             ValidationStage    `json:"stage"`
	Name              string             `json:"name"`
	Hypothesis        string             `json:"hypothesis"`
	SuccessCriteria   []SuccessCriterion `json:"success_criteria"`
	DurationDays      int                `json:"duration_days"`
	Cost              float64            `json:"cost"`
	RiskLevel         RiskLevel          `json:"risk_level"`
	RequiredResources []string           `json:"required_resources,omitempty"`
	Context           ValidationContext  `json:"context"`

	Status        ExperimentStatus  `json:"status"`
	FailureReason FailureReason     `json:"failure_reason,omitempty"`
	StatusNote    string            `json:"status_note,omitempty"`
	Results       *ExperimentResult `json:"results,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewExperiment creates a planned experiment from a template copy
func NewExperiment(id string, tmpl ExperimentTemplate, vctx ValidationContext) *Experiment {
	tmpl = tmpl.Clone()
	return &Experiment{
		ID:                id,
		TemplateID:        tmpl.ID,
		Type:              tmpl.Type,
		Stage:             tmpl.Stage,
		Name:              tmpl.Name,
		Hypothesis:        tmpl.HypothesisTemplate,
		SuccessCriteria:   tmpl.SuccessCriteria,
		DurationDays:      tmpl.DurationDays,
		Cost:              tmpl.Cost,
		RiskLevel:         tmpl.RiskLevel,
		RequiredResources: tmpl.RequiredResources,
		Context:           vctx,
		Status:            StatusPlanned,
		CreatedAt:         time.Now(),
	}
}

// Transition moves the experiment to next, stamping lifecycle times
func (e *Experiment) Transition(next ExperimentStatus, reason FailureReason) error {
	if !e.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, next)
	}

	now := time.Now()
	switch next {
	case StatusInProgress:
		e.StartedAt = &now
	case StatusCompleted, StatusFailed, StatusCancelled:
		e.CompletedAt = &now
		e.FailureReason = reason
	}
	e.Status = next
	return nil
}

// Clone returns a copy safe to hand out of a store
func (e *Experiment) Clone() *Experiment {
	if e == nil {
		return nil
	}
	c := *e
	c.SuccessCriteria = append([]SuccessCriterion(nil), e.SuccessCriteria...)
	c.RequiredResources = append([]string(nil), e.RequiredResources...)
	if e.Results != nil {
		c.Results = e.Results.Clone()
	}
	return &c
}
