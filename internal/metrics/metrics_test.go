package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecording(t *testing.T) {
	m := New()

	m.ExperimentCreated("pricing_test")
	m.ExperimentCreated("pricing_test")
	m.RunFinished("pricing_test", "completed", 250*time.Millisecond)
	m.Classified("pricing_test", "success")
	m.EnrichmentFailed("market")
	m.SetTrackedResults("pricing_test", 3)
	m.CatalogReloaded(errors.New("bad yaml"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.experimentsCreated.WithLabelValues("pricing_test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("pricing_test", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("pricing_test", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrichmentFailures.WithLabelValues("market")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.trackedResults.WithLabelValues("pricing_test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogReloads.WithLabelValues("error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ExperimentCreated("x")
		m.RunFinished("x", "failed", time.Second)
		m.Classified("x", "failure")
		m.EnrichmentFailed("competitor")
		m.ReportGenerated("x")
		m.SetTrackedResults("x", 1)
		m.CatalogReloaded(nil)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ReportGenerated("landing_page")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `venturelab_tracker_reports_total{type="landing_page"} 1`))
}
