// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// SummaryHandler handles run summary requests.
type SummaryHandler struct {
	statsProvider StatsProvider
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(statsProvider StatsProvider) *SummaryHandler {
	return &SummaryHandler{statsProvider: statsProvider}
}

// HandleSummary handles GET /api/summary requests.
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}
