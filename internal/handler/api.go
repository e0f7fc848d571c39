package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"venturelab/internal/catalog"
	"venturelab/internal/codec"
	"venturelab/internal/domain"
	"venturelab/internal/service"
)

// APIHandler serves the template catalog and report endpoints
type APIHandler struct {
	engine *service.Engine
	logger *zap.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(engine *service.Engine, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{engine: engine, logger: logger.Named("handler")}
}

// ListTemplates returns catalog templates, optionally filtered by ?stage=
func (h *APIHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("stage"); raw != "" {
		stage := domain.ValidationStage(raw)
		if !stage.Valid() {
			writeError(w, "Invalid validation stage", raw, http.StatusBadRequest)
			return
		}
		writeJSON(w, h.engine.Catalog().ForStage(stage), http.StatusOK)
		return
	}

	writeJSON(w, h.engine.Catalog().List(), http.StatusOK)
}

// GetTemplate returns a single template
func (h *APIHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.engine.Catalog().Get(r.PathValue("id"))
	if err != nil {
		writeError(w, "Not found", err.Error(), statusFor(err))
		return
	}

	writeJSON(w, tmpl, http.StatusOK)
}

// CustomizeTemplate derives and registers a new template from an existing one
func (h *APIHandler) CustomizeTemplate(w http.ResponseWriter, r *http.Request) {
	var o catalog.Overrides
	if !decode(w, r, &o) {
		return
	}

	tmpl, err := h.engine.Catalog().Customize(r.PathValue("id"), o)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			// template validation failures
			status = http.StatusBadRequest
		}
		writeError(w, "Failed to customize template", err.Error(), status)
		return
	}

	writeJSON(w, tmpl, http.StatusCreated)
}

// GetReport aggregates results of one experiment type. ?format= selects
// json (default), yaml or markdown.
func (h *APIHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	exporter, err := codec.ExporterFor(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, "Invalid format", err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.engine.Report(r.Context(), domain.ExperimentType(r.PathValue("type")))
	if err != nil {
		writeError(w, "Failed to generate report", err.Error(), statusFor(err))
		return
	}

	// render fully before writing so encoder errors can still become a 500
	var buf bytes.Buffer
	if err := exporter.Export(report, &buf); err != nil {
		h.logger.Error("failed to export report", zap.String("format", exporter.Format()), zap.Error(err))
		writeError(w, "Failed to export report", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	if exporter.Format() != "json" {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s-report.%s", report.ExperimentType, extension(exporter.Format())))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// GetSuccessFactors returns the metrics that distinguish successes of a type
func (h *APIHandler) GetSuccessFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := h.engine.SuccessFactors(domain.ExperimentType(r.PathValue("type")))
	if err != nil {
		writeError(w, "Failed to compute success factors", err.Error(), statusFor(err))
		return
	}

	writeJSON(w, factors, http.StatusOK)
}

// Health reports liveness
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "templates": h.engine.Catalog().Len()}, http.StatusOK)
}

func extension(format string) string {
	if format == "markdown" {
		return "md"
	}
	return format
}

// RouterConfig collects what NewRouter needs beyond the engine
type RouterConfig struct {
	Events      http.Handler // SSE stream; omitted when nil
	Metrics     http.Handler // Prometheus exposition; omitted when nil
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter registers every route and wraps the mux in middleware
func NewRouter(engine *service.Engine, cfg RouterConfig) http.Handler {
	api := NewAPIHandler(engine, cfg.Logger)
	exps := NewExperimentHandler(engine, cfg.Logger)

	mux := http.NewServeMux()

	// Templates
	mux.HandleFunc("GET /api/templates", api.ListTemplates)
	mux.HandleFunc("GET /api/templates/{id}", api.GetTemplate)
	mux.HandleFunc("POST /api/templates/{id}/customize", api.CustomizeTemplate)

	// Experiments
	mux.HandleFunc("GET /api/experiments", exps.ListExperiments)
	mux.HandleFunc("POST /api/experiments", exps.CreateExperiment)
	mux.HandleFunc("GET /api/experiments/{id}", exps.GetExperiment)
	mux.HandleFunc("POST /api/experiments/{id}/run", exps.RunExperiment)
	mux.HandleFunc("POST /api/experiments/{id}/cancel", exps.CancelExperiment)

	// Results
	mux.HandleFunc("POST /api/experiments/{id}/metrics", exps.TrackMetric)
	mux.HandleFunc("POST /api/experiments/{id}/evidence", exps.AddEvidence)
	mux.HandleFunc("POST /api/experiments/{id}/insights", exps.AddInsight)
	mux.HandleFunc("GET /api/experiments/{id}/revisions", exps.ListRevisions)
	mux.HandleFunc("GET /api/experiments/{id}/analysis", exps.Analyze)

	// Reports
	mux.HandleFunc("GET /api/reports/{type}", api.GetReport)
	mux.HandleFunc("GET /api/reports/{type}/success-factors", api.GetSuccessFactors)

	mux.HandleFunc("GET /healthz", api.Health)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}
	if cfg.Events != nil {
		mux.Handle("GET /events", cfg.Events)
	}

	return Chain(mux,
		Recover(cfg.Logger),
		CORS(cfg.CORSOrigins),
		Logger(cfg.Logger),
	)
}
