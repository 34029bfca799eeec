package pipeline

import (
	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/pkg/metrics"
)

// Drop reasons reported to metrics.
const (
	dropReasonExcluded = "excluded_company"
	dropReasonCount    = "min_incidents"
	dropReasonBounds   = "response_bounds"
)

// Filter drops implausible rows from the concatenated table. Each check
// is enabled by a non-zero field and the checks compose independently:
// matching any enabled check drops the row. The zero Filter keeps
// everything.
//
// Rows with no incidents carry a 0.0 average that means "no data", not
// "instant response", so the response bounds skip them. MinIncidents
// does apply to them: any threshold of one or more drops empty rows.
type Filter struct {
	MinResponse      float64  // drop rows with an average at or below this, seconds
	MaxResponse      float64  // drop rows with an average at or above this, seconds
	MinIncidents     int      // drop rows backed by fewer incidents than this
	ExcludeCompanies []string // drop rows for these company names
}

func (f Filter) isZero() bool {
	return f.MinResponse == 0 && f.MaxResponse == 0 && f.MinIncidents == 0 && len(f.ExcludeCompanies) == 0
}

// outOfBounds reports whether an average falls outside the open
// interval (MinResponse, MaxResponse). Unset sides are not enforced.
func (f Filter) outOfBounds(avg float64) bool {
	if f.MinResponse > 0 && avg <= f.MinResponse {
		return true
	}
	if f.MaxResponse > 0 && avg >= f.MaxResponse {
		return true
	}
	return false
}

// Apply returns the rows surviving the filter, preserving order, plus a
// tally of drops by reason. A row matching several checks is counted
// once, under the first matching reason.
func (f Filter) Apply(rows []model.CompanyResponse) ([]model.CompanyResponse, DropCounts) {
	var d DropCounts
	if f.isZero() {
		return rows, d
	}

	excluded := make(map[string]struct{}, len(f.ExcludeCompanies))
	for _, name := range f.ExcludeCompanies {
		excluded[name] = struct{}{}
	}

	kept := make([]model.CompanyResponse, 0, len(rows))
	for _, row := range rows {
		if _, skip := excluded[row.CompanyName]; skip {
			d.ExcludedCompany++
			metrics.RecordOutlierDropped(dropReasonExcluded)
			continue
		}
		if f.MinIncidents > 0 && row.IncidentCount < f.MinIncidents {
			d.MinIncidents++
			metrics.RecordOutlierDropped(dropReasonCount)
			continue
		}
		if row.IncidentCount > 0 && f.outOfBounds(row.ResponseTimes) {
			d.ResponseBounds++
			metrics.RecordOutlierDropped(dropReasonBounds)
			continue
		}
		kept = append(kept, row)
	}
	return kept, d
}

// DropCounts tallies rows removed by the outlier filter, by reason.
type DropCounts struct {
	ResponseBounds  int `json:"response_bounds"`
	MinIncidents    int `json:"min_incidents"`
	ExcludedCompany int `json:"excluded_company"`
}

// Total returns the number of dropped rows.
func (d DropCounts) Total() int {
	return d.ResponseBounds + d.MinIncidents + d.ExcludedCompany
}
