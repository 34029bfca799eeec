// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// LabelSource lists the distinct axes of the response table.
type LabelSource interface {
	Periods(ctx context.Context) []string
	Companies(ctx context.Context) []string
}

// LabelsHandler handles period and company label requests.
type LabelsHandler struct {
	source LabelSource
}

// NewLabelsHandler creates a new labels handler.
func NewLabelsHandler(source LabelSource) *LabelsHandler {
	return &LabelsHandler{source: source}
}

// HandlePeriods handles GET /api/periods requests. Labels come back oldest
// first so selectors can render them without re-sorting.
func (h *LabelsHandler) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.source.Periods(r.Context())))
}

// HandleCompanies handles GET /api/companies requests.
func (h *LabelsHandler) HandleCompanies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.source.Companies(r.Context())))
}

func nonNil(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}
