package pipeline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/jlenander/firestat/internal/domain/model"
)

// colorStep is the granularity of the map color scale bounds.
const colorStep = 10.0

// Summary describes the distribution of company averages across a run.
// Rows with no incidents are left out: their 0.0 average is absence of
// data and would crush the scale. ColorMin and ColorMax widen the range
// outward to whole tens for use as fixed color scale bounds.
type Summary struct {
	Count    int     `json:"count"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	ColorMin float64 `json:"color_min"`
	ColorMax float64 `json:"color_max"`
}

// Summarize computes distribution statistics over the rows backed by at
// least one incident. An input with no such rows yields the zero
// Summary.
func Summarize(rows []model.CompanyResponse) Summary {
	vals := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.IncidentCount > 0 {
			vals = append(vals, row.ResponseTimes)
		}
	}
	if len(vals) == 0 {
		return Summary{}
	}
	sort.Float64s(vals)

	s := Summary{
		Count:  len(vals),
		Min:    vals[0],
		Max:    vals[len(vals)-1],
		Mean:   stat.Mean(vals, nil),
		Median: stat.Quantile(0.5, stat.Empirical, vals, nil),
	}
	if len(vals) > 1 {
		s.StdDev = stat.StdDev(vals, nil)
	}
	s.ColorMin = math.Floor(s.Min/colorStep) * colorStep
	s.ColorMax = math.Ceil(s.Max/colorStep) * colorStep
	return s
}
