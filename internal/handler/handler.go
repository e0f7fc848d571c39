package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"venturelab/internal/domain"
	"venturelab/internal/repository"
	"venturelab/internal/service"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CreateExperimentRequest creates an experiment from a type or a template ID
type CreateExperimentRequest struct {
	Type       string                   `json:"type" validate:"required_without=TemplateID"`
	TemplateID string                   `json:"template_id" validate:"required_without=Type"`
	Context    domain.ValidationContext `json:"context"`
}

// CancelRequest carries an optional cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// MetricRequest records one metric observation
type MetricRequest struct {
	Name  string   `json:"name" validate:"required,max=200"`
	Value *float64 `json:"value" validate:"required"`
}

// EvidenceRequest records one piece of evidence
type EvidenceRequest struct {
	Type        domain.EvidenceType `json:"type" validate:"required,oneof=qualitative quantitative"`
	Source      string              `json:"source" validate:"required,max=500"`
	Value       string              `json:"value" validate:"max=5000"`
	Reliability float64             `json:"reliability" validate:"gte=0,lte=1"`
}

// InsightRequest records one free-text insight
type InsightRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// ExperimentHandler handles experiment lifecycle and result requests
type ExperimentHandler struct {
	engine *service.Engine
	logger *zap.Logger
}

// NewExperimentHandler creates a new experiment handler
func NewExperimentHandler(engine *service.Engine, logger *zap.Logger) *ExperimentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExperimentHandler{engine: engine, logger: logger.Named("handler")}
}

// ListExperiments returns experiments, optionally filtered by type and status
func (h *ExperimentHandler) ListExperiments(w http.ResponseWriter, r *http.Request) {
	opts := repository.ListOptions{
		Type:   domain.ExperimentType(r.URL.Query().Get("type")),
		Status: domain.ExperimentStatus(r.URL.Query().Get("status")),
	}
	if opts.Type != "" && !opts.Type.Valid() {
		writeError(w, "Invalid experiment type", string(opts.Type), http.StatusBadRequest)
		return
	}

	writeJSON(w, h.engine.ListExperiments(opts), http.StatusOK)
}

// CreateExperiment creates a planned experiment
func (h *ExperimentHandler) CreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req CreateExperimentRequest
	if !decode(w, r, &req) {
		return
	}

	var (
		exp *domain.Experiment
		err error
	)
	if req.TemplateID != "" {
		exp, err = h.engine.CreateFromTemplate(r.Context(), req.TemplateID, req.Context)
	} else {
		var typ domain.ExperimentType
		typ, err = domain.ParseExperimentType(req.Type)
		if err == nil {
			exp, err = h.engine.CreateExperiment(r.Context(), typ, req.Context)
		}
	}
	if err != nil {
		h.fail(w, "Failed to create experiment", err)
		return
	}

	writeJSON(w, exp, http.StatusCreated)
}

// GetExperiment returns a single experiment with its results
func (h *ExperimentHandler) GetExperiment(w http.ResponseWriter, r *http.Request) {
	exp, err := h.engine.GetExperiment(r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to get experiment", err)
		return
	}

	writeJSON(w, exp, http.StatusOK)
}

// RunExperiment runs a planned experiment and waits for the outcome.
// An optional ?timeout= (Go duration) overrides the default run timeout.
func (h *ExperimentHandler) RunExperiment(w http.ResponseWriter, r *http.Request) {
	var timeout time.Duration
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, "Invalid timeout", raw, http.StatusBadRequest)
			return
		}
		timeout = d
	}

	exp, err := h.engine.RunExperiment(r.Context(), r.PathValue("id"), timeout)
	if err != nil {
		h.fail(w, "Experiment run failed", err)
		return
	}

	writeJSON(w, exp, http.StatusOK)
}

// CancelExperiment cancels a planned or running experiment
func (h *ExperimentHandler) CancelExperiment(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	exp, err := h.engine.CancelExperiment(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		h.fail(w, "Failed to cancel experiment", err)
		return
	}

	writeJSON(w, exp, http.StatusOK)
}

// TrackMetric records a metric on the experiment's result
func (h *ExperimentHandler) TrackMetric(w http.ResponseWriter, r *http.Request) {
	var req MetricRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.TrackMetric(r.Context(), r.PathValue("id"), req.Name, *req.Value)
	if err != nil {
		h.fail(w, "Failed to track metric", err)
		return
	}

	writeJSON(w, res, http.StatusOK)
}

// AddEvidence records evidence on the experiment's result
func (h *ExperimentHandler) AddEvidence(w http.ResponseWriter, r *http.Request) {
	var req EvidenceRequest
	if !decode(w, r, &req) {
		return
	}

	ev := domain.NewEvidence(req.Type, req.Source, req.Value, req.Reliability)
	res, err := h.engine.AddEvidence(r.Context(), r.PathValue("id"), ev)
	if err != nil {
		h.fail(w, "Failed to add evidence", err)
		return
	}

	writeJSON(w, res, http.StatusOK)
}

// AddInsight records an insight on the experiment's result
func (h *ExperimentHandler) AddInsight(w http.ResponseWriter, r *http.Request) {
	var req InsightRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.AddInsight(r.Context(), r.PathValue("id"), req.Text)
	if err != nil {
		h.fail(w, "Failed to add insight", err)
		return
	}

	writeJSON(w, res, http.StatusOK)
}

// ListRevisions returns superseded versions of the experiment's result
func (h *ExperimentHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := h.engine.Revisions(r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to list revisions", err)
		return
	}

	writeJSON(w, revs, http.StatusOK)
}

// Analyze returns the analyzer's verdict for one experiment
func (h *ExperimentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.engine.Analyze(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "Failed to analyze experiment", err)
		return
	}

	writeJSON(w, analysis, http.StatusOK)
}

func (h *ExperimentHandler) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		h.logger.Error(msg, zap.Error(err))
	}
	writeError(w, msg, err.Error(), status)
}

// Helper functions

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidExperiment):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRunInProgress),
		errors.Is(err, domain.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v and validates it, writing a 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("request body is empty")
		}
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return false
	}
	if err := requestValidator.Struct(v); err != nil {
		writeError(w, "Invalid request body", validationDetails(err), http.StatusBadRequest)
		return false
	}
	return true
}

func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(fields, "; ")
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: error, Details: details}, statusCode)
}
