// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jlenander/firestat/internal/adapters/results"
	"github.com/jlenander/firestat/internal/domain/model"
)

// ResponseSource provides filtered access to the aggregated response table.
type ResponseSource interface {
	Rows(ctx context.Context, q results.Query) ([]model.CompanyResponse, error)
}

// ResponsesHandler handles response table requests.
type ResponsesHandler struct {
	source ResponseSource
}

// NewResponsesHandler creates a new responses handler.
func NewResponsesHandler(source ResponseSource) *ResponsesHandler {
	return &ResponsesHandler{source: source}
}

// HandleResponses handles GET /api/responses?period=YYYY-MM&company=NAME
// requests. Both filters are optional; omitting them returns the full table.
func (h *ResponsesHandler) HandleResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := results.Query{
		Period:  strings.TrimSpace(r.URL.Query().Get("period")),
		Company: strings.TrimSpace(r.URL.Query().Get("company")),
	}
	rows, err := h.source.Rows(r.Context(), q)
	if err != nil {
		switch {
		case errors.Is(err, results.ErrUnknownPeriod):
			writeError(w, http.StatusNotFound, "unknown_period", err)
		case errors.Is(err, results.ErrNoResults):
			writeError(w, http.StatusNotFound, "no_results", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	if rows == nil {
		// Keep the response a JSON array even when the filter matches nothing.
		rows = []model.CompanyResponse{}
	}
	writeJSON(w, http.StatusOK, rows)
}
