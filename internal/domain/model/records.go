// Package model contains domain records passed between layers.
package model

import (
	"time"

	"github.com/jlenander/firestat/internal/domain/geo"
)

// Incident is one dispatched fire incident with a valid response time.
// Fields mirror the columns kept from the dispatch extract.
type Incident struct {
	AlarmBoxCode     string    // derived borough prefix + zero-padded box number
	IncidentDatetime time.Time // dispatch timestamp, local NYC time
	ResponseSeconds  float64   // dispatch-to-first-arrival, seconds
	Borough          string
	ZipCode          int // -1 when the source row has none
}

// AlarmBox is one in-service street alarm box.
type AlarmBox struct {
	Code      string // unique after load-time de-duplication
	Location  string
	Borough   string
	ZipCode   int
	Type      string
	Latitude  float64
	Longitude float64
}

// Position returns the box location as a geometry point.
func (b AlarmBox) Position() geo.Point {
	return geo.Point{Lat: b.Latitude, Lon: b.Longitude}
}

// CompanyType is the spelled-out kind of a fire company.
type CompanyType string

// Company kinds present in the territory dataset.
const (
	Engine CompanyType = "Engine"
	Ladder CompanyType = "Ladder"
	Squad  CompanyType = "Squad"
)

// FireCompany is one company with its territory boundary.
type FireCompany struct {
	Name      string // derived, e.g. "Engine 70"
	Type      CompanyType
	Number    int
	Battalion string
	Division  string
	Boundary  geo.MultiPolygon
}

// Firehouse is a station location; one house may host several companies.
type Firehouse struct {
	FacilityName string
	Address      string
	Borough      string
	Latitude     float64
	Longitude    float64
	Companies    []string // names parsed from the facility label
}

// CompanyResponse is one row of the long-form output table: a company's
// aggregate for a single reporting period.
type CompanyResponse struct {
	CompanyName   string  `json:"company_name"`
	ResponseTimes float64 `json:"response_times"` // incident-weighted average, seconds; 0.0 when no incidents
	IncidentCount int     `json:"incident_count"`
	Period        string  `json:"period"` // "2019-03" or "2019"
}
