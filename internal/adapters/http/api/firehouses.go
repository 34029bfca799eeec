// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/jlenander/firestat/internal/domain/model"
)

// FirehouseSource exposes the station locations used for map markers.
type FirehouseSource interface {
	Firehouses(ctx context.Context) []model.Firehouse
}

// firehouseResponse mirrors the marker shape the map page consumes.
type firehouseResponse struct {
	FacilityName string   `json:"facility_name"`
	Address      string   `json:"address"`
	Borough      string   `json:"borough"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Companies    []string `json:"companies"`
}

// FirehousesHandler handles station location requests.
type FirehousesHandler struct {
	source FirehouseSource
}

// NewFirehousesHandler creates a new firehouses handler.
func NewFirehousesHandler(source FirehouseSource) *FirehousesHandler {
	return &FirehousesHandler{source: source}
}

// HandleFirehouses handles GET /api/firehouses requests.
func (h *FirehousesHandler) HandleFirehouses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	houses := h.source.Firehouses(r.Context())
	out := make([]firehouseResponse, 0, len(houses))
	for _, fh := range houses {
		out = append(out, firehouseResponse{
			FacilityName: fh.FacilityName,
			Address:      fh.Address,
			Borough:      fh.Borough,
			Latitude:     fh.Latitude,
			Longitude:    fh.Longitude,
			Companies:    fh.Companies,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
