package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venturelab/internal/catalog"
	"venturelab/internal/collector"
	"venturelab/internal/domain"
	"venturelab/internal/metrics"
	"venturelab/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := collector.NewRegistry(nil)
	require.NoError(t, reg.Register(&collector.StaticCollector{Collection: collector.Collection{
		Metrics: map[string]float64{
			"problem_confirmation_rate": 85,
			"active_solution_seeking":   65,
		},
		Evidence: []domain.Evidence{
			domain.NewEvidence(domain.EvidenceQuantitative, "interviews", "17 of 20 confirmed", 0.9),
		},
		Insights: []string{"Customers already pay for workarounds"},
	}}, collector.Config{Enabled: true}))

	m := metrics.New()
	engine, err := service.NewEngine(service.Options{
		Catalog:        catalog.Default(),
		Collectors:     reg,
		Metrics:        m,
		DefaultTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(engine, RouterConfig{Metrics: m.Handler()}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func createExperiment(t *testing.T, srv *httptest.Server) domain.Experiment {
	t.Helper()
	resp, body := do(t, http.MethodPost, srv.URL+"/api/experiments", map[string]any{
		"type":    "problem_interview",
		"context": map[string]any{"industry": "fintech", "problem": "slow invoicing"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var exp domain.Experiment
	require.NoError(t, json.Unmarshal(body, &exp))
	return exp
}

func errorOf(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestTemplates(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/templates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []domain.ExperimentTemplate
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 5)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/templates?stage=market", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var market []domain.ExperimentTemplate
	require.NoError(t, json.Unmarshal(body, &market))
	assert.Len(t, market, 2)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/templates?stage=growth", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/templates/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/templates/pricing_test/customize", map[string]any{
		"name":          "Annual pricing test",
		"duration_days": 21,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var custom domain.ExperimentTemplate
	require.NoError(t, json.Unmarshal(body, &custom))
	assert.True(t, strings.HasPrefix(custom.ID, "pricing_test_custom_"))
	assert.Equal(t, 21, custom.DurationDays)
}

func TestCreateExperimentValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"neither type nor template", map[string]any{"context": map[string]any{}}, http.StatusBadRequest},
		{"unknown type", map[string]any{"type": "focus_group"}, http.StatusBadRequest},
		{"unknown template", map[string]any{"template_id": "missing"}, http.StatusNotFound},
		{"unknown field", map[string]any{"type": "landing_page", "owner": "x"}, http.StatusBadRequest},
		{"context out of range", map[string]any{
			"type":    "landing_page",
			"context": map[string]any{"metrics": map[string]any{"market_fit": 3}},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, srv.URL+"/api/experiments", tt.body)
			assert.Equal(t, tt.code, resp.StatusCode, string(body))
			assert.NotEmpty(t, errorOf(t, body).Error)
		})
	}

	resp, body := do(t, http.MethodPost, srv.URL+"/api/experiments", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "request body is empty", errorOf(t, body).Details)
}

func TestExperimentLifecycle(t *testing.T) {
	srv := newTestServer(t)
	exp := createExperiment(t, srv)
	assert.Equal(t, domain.StatusPlanned, exp.Status)
	assert.Contains(t, exp.Hypothesis, "slow invoicing")

	base := srv.URL + "/api/experiments/" + exp.ID

	resp, body := do(t, http.MethodPost, base+"/run?timeout=2s", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var ran domain.Experiment
	require.NoError(t, json.Unmarshal(body, &ran))
	assert.Equal(t, domain.StatusCompleted, ran.Status)
	require.NotNil(t, ran.Results)
	assert.Equal(t, domain.ResultSuccess, ran.Results.Status)

	// a finished experiment cannot run or be cancelled again
	resp, _ = do(t, http.MethodPost, base+"/run", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, base+"/cancel", map[string]any{"reason": "too late"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, base+"/run?timeout=soon", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/experiments?status=completed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []domain.Experiment
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, exp.ID, listed[0].ID)

	resp, body = do(t, http.MethodGet, base+"/analysis", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var analysis domain.AnalysisResult
	require.NoError(t, json.Unmarshal(body, &analysis))
	assert.True(t, analysis.Success)
	assert.NotEmpty(t, analysis.NextSteps)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/experiments/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelPlanned(t *testing.T) {
	srv := newTestServer(t)
	exp := createExperiment(t, srv)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/experiments/"+exp.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var cancelled domain.Experiment
	require.NoError(t, json.Unmarshal(body, &cancelled))
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
}

func TestResultEndpoints(t *testing.T) {
	srv := newTestServer(t)
	exp := createExperiment(t, srv)
	base := srv.URL + "/api/experiments/" + exp.ID

	resp, body := do(t, http.MethodPost, base+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodPost, base+"/metrics", map[string]any{"name": "interviews_completed", "value": 20})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res domain.ExperimentResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, 20.0, res.Metrics["interviews_completed"])

	resp, body = do(t, http.MethodPost, base+"/metrics", map[string]any{"name": "interviews_completed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorOf(t, body).Details, "Value")

	resp, body = do(t, http.MethodPost, base+"/evidence", map[string]any{
		"type": "qualitative", "source": "follow-up call", "value": "wants a pilot", "reliability": 0.8,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, _ = do(t, http.MethodPost, base+"/evidence", map[string]any{"type": "anecdotal", "source": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodPost, base+"/insights", map[string]any{"text": "Finance teams own the budget"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Contains(t, res.Insights, "Finance teams own the budget")

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/experiments/missing/insights", map[string]any{"text": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodGet, base+"/revisions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestReports(t *testing.T) {
	srv := newTestServer(t)
	exp := createExperiment(t, srv)
	resp, body := do(t, http.MethodPost, srv.URL+"/api/experiments/"+exp.ID+"/run", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodGet, srv.URL+"/api/reports/problem_interview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var report domain.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 1, report.TotalExperiments)
	assert.Equal(t, 1.0, report.SuccessRate)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/reports/problem_interview?format=md", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/markdown; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "problem_interview-report.md")
	assert.True(t, strings.HasPrefix(string(body), "# problem_interview report"))

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/reports/problem_interview?format=csv", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/reports/focus_group", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/reports/problem_interview/success-factors", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"experiment_type":"problem_interview"`)

	resp, body = do(t, http.MethodGet, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `venturelab_tracker_reports_total{type="problem_interview"}`)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","templates":5}`, string(body))
}
