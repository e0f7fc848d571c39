// Package repository defines the data access interfaces for venturelab.
//
// # Interfaces
//
// ExperimentStore persists experiment lifecycle records. ResultStore persists
// tracked results, plus the archived versions a result leaves behind when a
// sealed result is superseded.
//
// Both are optional to the service layer: the engine keeps its working set in
// memory and writes through to a store when one is configured.
//
// # SQLite Implementation
//
// The sqlite subpackage stores each entity as a JSON document next to the
// indexed columns used for filtering (type, status). It uses the pure Go
// modernc.org/sqlite driver and migrates its schema on open.
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
