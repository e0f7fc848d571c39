// Package collector supplies the data an experiment run measures.
//
// Collectors are pluggable sources of metrics, evidence, insights and
// learnings for a running experiment. Each collector declares which
// experiment types it supports and registers with a Registry along with a
// priority.
//
// # Collector Registry
//
// Registry picks the enabled collector with the highest priority for an
// experiment's type. Ties go to the collector registered first.
//
// # Core Collectors
//
// SimulatedCollector produces reproducible observations around each success
// criterion's target. Output depends only on the configured seed and the
// experiment ID, so reruns with the same seed see the same data.
//
// StaticCollector returns fixed observations. It backs manual data entry and
// tests.
package collector
