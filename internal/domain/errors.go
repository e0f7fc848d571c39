package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for unknown template or experiment IDs
	ErrNotFound = errors.New("not found")
	// ErrInvalidExperiment is returned for experiments that cannot be evaluated,
	// such as zero success criteria or malformed metrics
	ErrInvalidExperiment = errors.New("invalid experiment")
	// ErrTimeout is returned when a run exceeds the caller's deadline
	ErrTimeout = errors.New("experiment run timed out")
	// ErrEnrichmentFailure marks a failed market/competitor lookup. It is never
	// surfaced by the analyzer; it only appears in logs and metrics.
	ErrEnrichmentFailure = errors.New("enrichment failed")
	// ErrInvalidTransition is returned for lifecycle moves the state machine forbids
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrRunInProgress is returned when a second run targets the same experiment
	ErrRunInProgress = errors.New("experiment run already in progress")
	// ErrCancelled is returned by a run whose experiment was cancelled mid-flight
	ErrCancelled = errors.New("experiment cancelled")
)

// NotFoundError identifies what kind of entity was missing
type NotFoundError struct {
	Kind string // "template", "experiment", "result"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match any NotFoundError
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound builds a NotFoundError
func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// InvalidExperimentf wraps ErrInvalidExperiment with a formatted reason
func InvalidExperimentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidExperiment, fmt.Sprintf(format, args...))
}
