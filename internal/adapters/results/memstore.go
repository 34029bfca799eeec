package results

import (
	"context"
	"fmt"
	"sort"

	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/internal/pipeline"
)

// MemStore is an immutable in-memory Store over one run's output table.
// Every index is built at construction, so reads never lock; swapping in
// a fresh run means swapping in a fresh store.
type MemStore struct {
	rows      []model.CompanyResponse
	byPeriod  map[string][]model.CompanyResponse
	byCompany map[string][]model.CompanyResponse
	periods   []string
	companies []string
	summary   pipeline.Summary
}

// NewMemStore indexes a run's rows for serving. A nil result yields an
// empty store, which Rows reports as ErrNoResults.
func NewMemStore(res *pipeline.Result) *MemStore {
	s := &MemStore{
		byPeriod:  map[string][]model.CompanyResponse{},
		byCompany: map[string][]model.CompanyResponse{},
	}
	if res == nil {
		return s
	}

	s.rows = append([]model.CompanyResponse(nil), res.Rows...)
	s.summary = res.Summary
	for _, row := range s.rows {
		if _, ok := s.byPeriod[row.Period]; !ok {
			s.periods = append(s.periods, row.Period)
		}
		s.byPeriod[row.Period] = append(s.byPeriod[row.Period], row)

		if _, ok := s.byCompany[row.CompanyName]; !ok {
			s.companies = append(s.companies, row.CompanyName)
		}
		s.byCompany[row.CompanyName] = append(s.byCompany[row.CompanyName], row)
	}

	// Period labels ("2019-03", "2019") sort chronologically as strings.
	sort.Strings(s.periods)
	sort.Strings(s.companies)
	return s
}

// Rows returns the rows matching the query in table order. Callers get
// fresh slices and may mutate them freely.
func (s *MemStore) Rows(_ context.Context, q Query) ([]model.CompanyResponse, error) {
	if len(s.rows) == 0 {
		return nil, ErrNoResults
	}

	if q.Period != "" {
		rows, ok := s.byPeriod[q.Period]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, q.Period)
		}
		return filterCompany(rows, q.Company), nil
	}
	if q.Company != "" {
		return append([]model.CompanyResponse(nil), s.byCompany[q.Company]...), nil
	}
	return append([]model.CompanyResponse(nil), s.rows...), nil
}

// Periods lists the reporting period labels present, oldest first.
func (s *MemStore) Periods(_ context.Context) []string {
	return append([]string(nil), s.periods...)
}

// Companies lists the company names present, sorted by name.
func (s *MemStore) Companies(_ context.Context) []string {
	return append([]string(nil), s.companies...)
}

// Count returns the number of rows in the table.
func (s *MemStore) Count(_ context.Context) int {
	return len(s.rows)
}

// Summary describes the run's response time distribution.
func (s *MemStore) Summary(_ context.Context) pipeline.Summary {
	return s.summary
}

func filterCompany(rows []model.CompanyResponse, company string) []model.CompanyResponse {
	if company == "" {
		return append([]model.CompanyResponse(nil), rows...)
	}
	out := make([]model.CompanyResponse, 0, 1)
	for _, row := range rows {
		if row.CompanyName == company {
			out = append(out, row)
		}
	}
	return out
}
