// Package results serves one aggregation run's output table to readers.
package results

import (
	"context"

	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/internal/pipeline"
)

// Query narrows Rows. A zero field means no filtering on that axis.
type Query struct {
	Period  string
	Company string
}

// Store provides read access to the aggregated response table.
type Store interface {
	// Rows returns the rows matching the query in table order. Asking
	// for a period the table does not have returns ErrUnknownPeriod;
	// an empty store returns ErrNoResults.
	Rows(ctx context.Context, q Query) ([]model.CompanyResponse, error)

	// Periods lists the reporting period labels present, oldest first.
	Periods(ctx context.Context) []string

	// Companies lists the company names present, sorted by name.
	Companies(ctx context.Context) []string

	// Count returns the number of rows in the table.
	Count(ctx context.Context) int

	// Summary describes the response time distribution of the run that
	// produced the table.
	Summary(ctx context.Context) pipeline.Summary
}
