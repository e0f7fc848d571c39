// Package metrics exposes Prometheus collectors for the experiment engine.
//
// Collectors live on a dedicated registry owned by a Metrics value, so
// several engines (and tests) can coexist in one process. All recording
// methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "venturelab"

// Metrics holds the engine's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	experimentsCreated *prometheus.CounterVec
	runs               *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	classifications    *prometheus.CounterVec
	enrichmentFailures *prometheus.CounterVec
	reportsGenerated   *prometheus.CounterVec
	trackedResults     *prometheus.GaugeVec
	catalogReloads     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Labels: type
		experimentsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "experiments",
			Name:      "created_total",
			Help:      "Experiments created by type",
		}, []string{"type"}),

		// Labels: type, status (completed, failed, cancelled)
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "runs_total",
			Help:      "Finished experiment runs by type and final status",
		}, []string{"type", "status"}),

		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "run_duration_seconds",
			Help:      "Wall time of experiment runs",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}, []string{"type"}),

		// Labels: type, result (success, failure, inconclusive)
		classifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "results_total",
			Help:      "Classified experiment outcomes",
		}, []string{"type", "result"}),

		// Labels: kind (market, competitor)
		enrichmentFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "enrichment_failures_total",
			Help:      "Enrichment lookups that failed and were skipped",
		}, []string{"kind"}),

		reportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "reports_total",
			Help:      "Generated reports by experiment type",
		}, []string{"type"}),

		trackedResults: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "results",
			Help:      "Results currently retained per experiment type",
		}, []string{"type"}),

		// Labels: outcome (ok, error)
		catalogReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "reloads_total",
			Help:      "Template pack reload attempts",
		}, []string{"outcome"}),
	}
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ExperimentCreated(typ string) {
	if m == nil {
		return
	}
	m.experimentsCreated.WithLabelValues(typ).Inc()
}

// RunFinished records the final status and duration of a run
func (m *Metrics) RunFinished(typ, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(typ, status).Inc()
	m.runDuration.WithLabelValues(typ).Observe(d.Seconds())
}

func (m *Metrics) Classified(typ, result string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(typ, result).Inc()
}

func (m *Metrics) EnrichmentFailed(kind string) {
	if m == nil {
		return
	}
	m.enrichmentFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ReportGenerated(typ string) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(typ).Inc()
}

// SetTrackedResults sets the retained result count for a type
func (m *Metrics) SetTrackedResults(typ string, n int) {
	if m == nil {
		return
	}
	m.trackedResults.WithLabelValues(typ).Set(float64(n))
}

// CatalogReloaded counts a reload attempt
func (m *Metrics) CatalogReloaded(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.catalogReloads.WithLabelValues(outcome).Inc()
}
