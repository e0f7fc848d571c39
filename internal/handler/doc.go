// Package handler implements the venturelab HTTP API.
//
// Handlers are thin: they decode and validate the request, call the
// service.Engine and translate its sentinel errors into status codes.
//
// # Response Format
//
// Success responses return JSON data with appropriate status codes (200, 201).
// Error responses return JSON with {error, details} structure. Domain errors
// map as follows:
//   - domain.ErrNotFound: 404
//   - domain.ErrInvalidExperiment: 400
//   - domain.ErrInvalidTransition, ErrRunInProgress, ErrCancelled: 409
//   - domain.ErrTimeout: 504
//
// Reports can also be downloaded as YAML or Markdown with ?format=.
//
// # Server-Sent Events
//
// The /events endpoint streams engine events (experiment lifecycle, result
// updates, generated reports, catalog reloads) via the hub package.
package handler
