package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jlenander/firestat/internal/domain/geo"
	"github.com/jlenander/firestat/internal/domain/model"
)

// companyRow is the wire shape of one territory record. The portal's
// JSON export carries numeric columns as strings.
type companyRow struct {
	Type      string          `json:"fire_co_type"`
	Number    string          `json:"fire_co_num"`
	Battalion string          `json:"fire_bn"`
	Division  string          `json:"fire_div"`
	Geometry  json.RawMessage `json:"the_geom"`
}

// firehouseRow is the wire shape of one station record.
type firehouseRow struct {
	FacilityName string `json:"facilityname"`
	Address      string `json:"facilityaddress"`
	Borough      string `json:"borough"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
}

// DecodeFireCompanies parses territory records: the display name is
// derived from the type letter and number, and the boundary is decoded
// from the embedded geometry. A boundary that does not decode fails the
// whole batch naming the company, because a company without a usable
// territory would silently swallow every incident inside it.
func DecodeFireCompanies(r io.Reader) ([]model.FireCompany, error) {
	var rows []companyRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode company rows: %v", err)
	}

	out := make([]model.FireCompany, 0, len(rows))
	for i, row := range rows {
		num, err := strconv.Atoi(strings.TrimSpace(row.Number))
		if err != nil {
			return nil, fmt.Errorf("company row %d: invalid fire_co_num %q", i, row.Number)
		}
		name, kind, err := model.ParseCompanyName(row.Type, num)
		if err != nil {
			return nil, fmt.Errorf("company row %d: %w", i, err)
		}
		boundary, err := geo.DecodeGeometry(row.Geometry)
		if err != nil {
			return nil, fmt.Errorf("company %s: %w", name, err)
		}
		out = append(out, model.FireCompany{
			Name:      name,
			Type:      kind,
			Number:    num,
			Battalion: strings.TrimSpace(row.Battalion),
			Division:  strings.TrimSpace(row.Division),
			Boundary:  boundary,
		})
	}
	return out, nil
}

// DecodeFirehouses parses station records. The facility label names
// every company the house hosts, slash separated.
func DecodeFirehouses(r io.Reader) ([]model.Firehouse, error) {
	var rows []firehouseRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode firehouse rows: %v", err)
	}

	out := make([]model.Firehouse, 0, len(rows))
	for i, row := range rows {
		lat, err := strconv.ParseFloat(strings.TrimSpace(row.Latitude), 64)
		if err != nil {
			return nil, fmt.Errorf("firehouse row %d (%s): invalid latitude %q", i, row.FacilityName, row.Latitude)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(row.Longitude), 64)
		if err != nil {
			return nil, fmt.Errorf("firehouse row %d (%s): invalid longitude %q", i, row.FacilityName, row.Longitude)
		}
		out = append(out, model.Firehouse{
			FacilityName: strings.TrimSpace(row.FacilityName),
			Address:      strings.TrimSpace(row.Address),
			Borough:      strings.TrimSpace(row.Borough),
			Latitude:     lat,
			Longitude:    lon,
			Companies:    splitFacilityCompanies(row.FacilityName),
		})
	}
	return out, nil
}

// EncodeFireCompanies writes territory records in the portal's JSON row
// shape, the inverse of DecodeFireCompanies.
func EncodeFireCompanies(w io.Writer, companies []model.FireCompany) error {
	rows := make([]companyRow, 0, len(companies))
	for _, c := range companies {
		letter := c.Type.Letter()
		if letter == "" {
			return fmt.Errorf("company %s: unknown type %q", c.Name, c.Type)
		}
		g, err := geo.EncodeGeometry(c.Boundary)
		if err != nil {
			return fmt.Errorf("company %s: %w", c.Name, err)
		}
		rows = append(rows, companyRow{
			Type:      letter,
			Number:    strconv.Itoa(c.Number),
			Battalion: c.Battalion,
			Division:  c.Division,
			Geometry:  g,
		})
	}
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		return fmt.Errorf("encode company rows: %v", err)
	}
	return nil
}

// EncodeFirehouses writes station records in the portal's JSON row shape,
// the inverse of DecodeFirehouses.
func EncodeFirehouses(w io.Writer, houses []model.Firehouse) error {
	rows := make([]firehouseRow, 0, len(houses))
	for _, fh := range houses {
		rows = append(rows, firehouseRow{
			FacilityName: fh.FacilityName,
			Address:      fh.Address,
			Borough:      fh.Borough,
			Latitude:     strconv.FormatFloat(fh.Latitude, 'f', -1, 64),
			Longitude:    strconv.FormatFloat(fh.Longitude, 'f', -1, 64),
		})
	}
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		return fmt.Errorf("encode firehouse rows: %v", err)
	}
	return nil
}

// splitFacilityCompanies expands a station label like
// "Engine 70/Ladder 53" into the company names the house hosts.
func splitFacilityCompanies(label string) []string {
	parts := strings.Split(label, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// featureProperties carries the keys the map page joins on.
type featureProperties struct {
	Company   string `json:"company"`
	Type      string `json:"type"`
	Battalion string `json:"battalion"`
	Division  string `json:"division"`
}

type feature struct {
	Type       string            `json:"type"`
	Properties featureProperties `json:"properties"`
	Geometry   json.RawMessage   `json:"geometry"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// WriteCompaniesGeoJSON renders company territories as a GeoJSON
// FeatureCollection keyed by company name, the shape the map page feeds
// its choropleth layer.
func WriteCompaniesGeoJSON(w io.Writer, companies []model.FireCompany) error {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Features: make([]feature, 0, len(companies)),
	}
	for _, c := range companies {
		g, err := geo.EncodeGeometry(c.Boundary)
		if err != nil {
			return fmt.Errorf("company %s: %w", c.Name, err)
		}
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			Properties: featureProperties{
				Company:   c.Name,
				Type:      string(c.Type),
				Battalion: c.Battalion,
				Division:  c.Division,
			},
			Geometry: g,
		})
	}
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return fmt.Errorf("encode feature collection: %v", err)
	}
	return nil
}
