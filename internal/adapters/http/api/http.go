// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jlenander/firestat/internal/adapters/results"
	"github.com/jlenander/firestat/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	results.Store

	// Boundaries returns the fire company territories behind the current
	// response table, for map rendering.
	Boundaries(ctx context.Context) []model.FireCompany

	// Firehouses returns the station locations for the marker layer.
	Firehouses(ctx context.Context) []model.Firehouse
}

// Server wires HTTP routes for the analytics API.
type Server struct {
	healthHandler     *HealthHandler
	summaryHandler    *SummaryHandler
	responsesHandler  *ResponsesHandler
	labelsHandler     *LabelsHandler
	boundariesHandler *BoundariesHandler
	firehousesHandler *FirehousesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		summaryHandler:    NewSummaryHandler(statsProvider),
		responsesHandler:  NewResponsesHandler(deps),
		labelsHandler:     NewLabelsHandler(deps),
		boundariesHandler: NewBoundariesHandler(deps),
		firehousesHandler: NewFirehousesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/api/summary", MetricsMiddleware(s.summaryHandler.HandleSummary, "summary"))
	mux.HandleFunc("/api/responses", MetricsMiddleware(s.responsesHandler.HandleResponses, "responses"))
	mux.HandleFunc("/api/periods", MetricsMiddleware(s.labelsHandler.HandlePeriods, "periods"))
	mux.HandleFunc("/api/companies", MetricsMiddleware(s.labelsHandler.HandleCompanies, "companies"))
	mux.HandleFunc("/api/companies.geojson", MetricsMiddleware(s.boundariesHandler.HandleBoundaries, "companies_geojson"))
	mux.HandleFunc("/api/firehouses", MetricsMiddleware(s.firehousesHandler.HandleFirehouses, "firehouses"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
