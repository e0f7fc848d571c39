// Package service implements the experiment lifecycle for venturelab.
//
// The services sit between the HTTP handlers and the repository layer. They
// own business rules, keep the working set in memory, write through to the
// repository and publish events.
//
// # Services
//
// Factory turns catalog templates into planned experiments, filling the
// hypothesis placeholders from the venture's validation context.
//
// Runner drives an experiment from planned to a terminal state. It collects
// data through the collector registry under a timeout, records it with the
// tracker and classifies the outcome. One run per experiment at a time.
//
// Tracker stores results per experiment, bounded per type, and aggregates
// them into reports and success factors. Results included in a report are
// sealed; changing one afterwards creates a new version.
//
// Analyzer interprets a single experiment: confidence, insights, risks and
// prioritized next steps, optionally enriched with market and competitor
// data.
//
// Engine composes all of the above and is what the transport layer talks to.
//
// # Event System
//
// All services publish events via EventBus for real-time updates to connected
// clients via Server-Sent Events (SSE).
package service
