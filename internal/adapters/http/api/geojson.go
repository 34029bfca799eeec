// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/jlenander/firestat/internal/adapters/dataset"
	"github.com/jlenander/firestat/internal/domain/model"
)

// BoundarySource exposes the fire company territories behind the current
// response table.
type BoundarySource interface {
	Boundaries(ctx context.Context) []model.FireCompany
}

// BoundariesHandler handles territory map requests.
type BoundariesHandler struct {
	source BoundarySource
}

// NewBoundariesHandler creates a new boundaries handler.
func NewBoundariesHandler(source BoundarySource) *BoundariesHandler {
	return &BoundariesHandler{source: source}
}

// HandleBoundaries handles GET /api/companies.geojson requests. The
// FeatureCollection is buffered before writing so an encoding failure
// surfaces as a 500 instead of a truncated body.
func (h *BoundariesHandler) HandleBoundaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	var buf bytes.Buffer
	if err := dataset.WriteCompaniesGeoJSON(&buf, h.source.Boundaries(r.Context())); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = buf.WriteTo(w)
}
