// Package domain defines the core domain types for the venturelab experiment
// lifecycle and results-aggregation service.
//
// This package contains the entities and value objects that describe
// startup-validation experiments: the templates they are built from, the
// running experiment instances, the results they produce, and the business
// context that parameterizes them.
//
// # Core Types
//
// ExperimentTemplate is an immutable blueprint keyed by ID and experiment type,
// carrying a hypothesis skeleton, default success criteria and
// duration/cost/risk metadata.
//
// Experiment is a running instance derived from a template. Its Status moves
// forward through planned, in_progress and one of the terminal states
// completed, failed or cancelled.
//
// ExperimentResult is the outcome snapshot of an experiment: metrics,
// insights, evidence and a confidence score.
//
// ValidationContext is the caller-supplied business context (industry,
// location, stage, 0-1 context metrics) used to customize and analyze
// experiments.
//
// # Classification
//
// Classify compares produced metrics against success criteria and assigns a
// ResultStatus. At least 80% of criteria met is a success, at most 30% is a
// failure, anything in between is inconclusive.
//
// # Errors
//
// The package exports the sentinel errors used across the service:
// ErrNotFound, ErrInvalidExperiment, ErrTimeout, ErrEnrichmentFailure,
// ErrInvalidTransition, ErrRunInProgress and ErrCancelled. Callers match them with
// errors.Is.
//
// # Design Principles
//
// - Immutable value objects where possible (templates are cloned, never shared)
// - No database or external dependencies beyond hashing and validation
// - Closed enumerations for experiment types so per-type logic is exhaustive
package domain
