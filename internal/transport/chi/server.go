// Package chi exposes the lead-search API over HTTP: start a run, poll
// its progress, stop it, and download its results.
package chi

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/leadstack/leadscout/internal/domain"
	"github.com/leadstack/leadscout/internal/domain/filters"
	healthuc "github.com/leadstack/leadscout/internal/usecase/health"
	searchuc "github.com/leadstack/leadscout/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest     = "bad_request"
	CodeInvalidFilters = "invalid_filters"
	CodeRunNotFound    = "run_not_found"
	CodeRunNotFinished = "run_not_finished"
	CodeProviderError  = "provider_error"
	CodeInternalError  = "internal_error"
)

// Server holds the HTTP handlers for the search API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search *searchuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidFilters, http.StatusBadRequest, CodeInvalidFilters),
		sentinelHandler(domain.ErrRunNotFound, http.StatusNotFound, CodeRunNotFound),
		sentinelHandler(domain.ErrRunNotFinished, http.StatusConflict, CodeRunNotFinished),
		sentinelHandler(domain.ErrProvider, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// RegisterRoutes mounts all API routes on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/searches", func(r chi.Router) {
		r.Post("/", s.StartSearch)
		r.Get("/{runID}", s.GetProgress)
		r.Post("/{runID}/stop", s.StopSearch)
		r.Get("/{runID}/results", s.GetResults)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// startSearchRequest is the POST /searches body.
type startSearchRequest struct {
	Keywords      string   `json:"keywords"`
	Sectors       []string `json:"sectors"`
	Provinces     []string `json:"provinces"`
	Regions       []string `json:"regions"`
	RevenueBand   string   `json:"revenue_band"`
	EmployeesBand string   `json:"employees_band"`
	MaxResults    int      `json:"max_results"`
}

type startSearchResponse struct {
	RunID  string        `json:"runId"`
	Status domain.Status `json:"status"`
}

// StartSearch handles POST /api/v1/searches. The run executes in the
// background; the response carries the id to poll.
func (s *Server) StartSearch(w http.ResponseWriter, r *http.Request) {
	var req startSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	f, err := filters.New(
		req.Keywords, req.Sectors, req.Provinces, req.Regions,
		req.RevenueBand, req.EmployeesBand, req.MaxResults,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	runID, err := s.search.Start(r.Context(), f)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startSearchResponse{
		RunID:  runID,
		Status: domain.StatusRunning,
	})
}

// GetProgress handles GET /api/v1/searches/{runID}.
func (s *Server) GetProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	rec, err := s.search.Progress(r.Context(), runID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// StopSearch handles POST /api/v1/searches/{runID}/stop. Stopping an
// already-finished run is a no-op.
func (s *Server) StopSearch(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if err := s.search.Stop(r.Context(), runID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	rec, err := s.search.Progress(r.Context(), runID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type resultsResponse struct {
	RunID string        `json:"runId"`
	Count int           `json:"count"`
	Leads []domain.Lead `json:"leads"`
}

// GetResults handles GET /api/v1/searches/{runID}/results. ?format=csv
// switches the body to CSV; the default is JSON.
func (s *Server) GetResults(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	leads, err := s.search.Results(r.Context(), runID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		writeJSON(w, http.StatusOK, resultsResponse{
			RunID: runID,
			Count: len(leads),
			Leads: leads,
		})
	case "csv":
		s.writeCSV(w, runID, leads)
	default:
		writeError(w, http.StatusBadRequest, CodeBadRequest, "format must be json or csv")
	}
}

func (s *Server) writeCSV(w http.ResponseWriter, runID string, leads []domain.Lead) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="leads-`+runID+`.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(domain.LeadCSVHeader); err != nil {
		s.logger.Error("csv write failed", zap.Error(err))
		return
	}
	for _, l := range leads {
		if err := cw.Write(l.CSVRecord()); err != nil {
			s.logger.Error("csv write failed", zap.Error(err))
			return
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Error("csv flush failed", zap.Error(err))
	}
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: report.Status,
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidFilters,
		domain.ErrRunNotFound,
		domain.ErrRunNotFinished,
		domain.ErrProvider,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
