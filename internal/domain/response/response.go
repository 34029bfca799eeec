// Package response accumulates incident response totals per alarm box
// and rolls them up to per-company averages.
//
// The company average is incident-weighted: the sum of all response
// seconds across the company's boxes divided by the total incident
// count across those boxes. Averaging the per-box averages would let a
// one-incident box outvote a busy one, so that formulation is
// deliberately not offered.
package response

import (
	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/internal/domain/partition"
)

// BoxTotal is the running count and response-second sum for one box.
type BoxTotal struct {
	Count int
	Sum   float64
}

// Average returns Sum/Count, or exactly 0.0 for a box with no incidents.
func (b BoxTotal) Average() float64 {
	if b.Count == 0 {
		return 0.0
	}
	return b.Sum / float64(b.Count)
}

// Totals is a per-window accumulator keyed by alarm box code. Every
// known code is present from the start, zero-valued, so downstream
// rollups read real entries instead of defaults.
type Totals map[string]BoxTotal

// NewTotals returns a fresh accumulator for one reporting window.
func NewTotals(codes []string) Totals {
	t := make(Totals, len(codes))
	for _, code := range codes {
		t[code] = BoxTotal{}
	}
	return t
}

// Accumulate folds incidents into the totals in a single pass.
// Incidents referencing codes the accumulator does not know are
// ignored; the number ignored is returned so callers can surface it.
func Accumulate(incidents []model.Incident, totals Totals) (ignored int) {
	for _, in := range incidents {
		bt, ok := totals[in.AlarmBoxCode]
		if !ok {
			ignored++
			continue
		}
		bt.Count++
		bt.Sum += in.ResponseSeconds
		totals[in.AlarmBoxCode] = bt
	}
	return ignored
}

// Option applies a configuration option to an aggregation.
type Option func(*aggregateConfig)

type aggregateConfig struct {
	minBoxIncidents int
}

// WithMinBoxIncidents excludes boxes with fewer incidents than n from
// the rollup entirely, both their sums and their counts. Zero keeps
// every box.
func WithMinBoxIncidents(n int) Option {
	return func(c *aggregateConfig) {
		if n > 0 {
			c.minBoxIncidents = n
		}
	}
}

// Aggregate rolls box totals up to one row per company, in partition
// company order. A company whose boxes saw no incidents gets an exact
// 0.0 average and a zero count; the Period field is left for the caller
// to tag.
func Aggregate(part *partition.Partition, totals Totals, opts ...Option) []model.CompanyResponse {
	var cfg aggregateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	companies := part.Companies()
	rows := make([]model.CompanyResponse, 0, len(companies))
	for _, company := range companies {
		var count int
		var sum float64
		for _, code := range part.Codes(company) {
			bt := totals[code]
			if bt.Count < cfg.minBoxIncidents {
				continue
			}
			count += bt.Count
			sum += bt.Sum
		}

		avg := 0.0
		if count > 0 {
			avg = sum / float64(count)
		}
		rows = append(rows, model.CompanyResponse{
			CompanyName:   company,
			ResponseTimes: avg,
			IncidentCount: count,
		})
	}
	return rows
}
