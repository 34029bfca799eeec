package socrata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jlenander/firestat/internal/adapters/dataset"
	"github.com/jlenander/firestat/internal/domain/model"
)

// DownloadIncidents streams the dispatch extract for [from, to) to w as
// CSV and reports the number of data rows written. The extract is large,
// so it goes straight to the writer instead of through memory.
func (c *Client) DownloadIncidents(ctx context.Context, w io.Writer, from, to time.Time) (int64, error) {
	n, err := c.FetchCSV(ctx, IncidentsDataset, IncidentQuery(from, to), w)
	return int64(n), err
}

// DownloadAlarmBoxes streams the in-service alarm box extract to w as CSV.
func (c *Client) DownloadAlarmBoxes(ctx context.Context, w io.Writer) (int64, error) {
	n, err := c.FetchCSV(ctx, AlarmBoxesDataset, nil, w)
	return int64(n), err
}

// FetchFireCompanies pulls the territory rows and decodes them into
// companies, boundaries included.
func (c *Client) FetchFireCompanies(ctx context.Context) ([]model.FireCompany, error) {
	var buf bytes.Buffer
	if _, err := c.FetchJSON(ctx, FireCompaniesDataset, nil, &buf); err != nil {
		return nil, err
	}
	companies, err := dataset.DecodeFireCompanies(&buf)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", FireCompaniesDataset, err)
	}
	return companies, nil
}

// FetchFirehouses pulls the station rows for the map's marker layer.
func (c *Client) FetchFirehouses(ctx context.Context) ([]model.Firehouse, error) {
	var buf bytes.Buffer
	if _, err := c.FetchJSON(ctx, FirehousesDataset, nil, &buf); err != nil {
		return nil, err
	}
	houses, err := dataset.DecodeFirehouses(&buf)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", FirehousesDataset, err)
	}
	return houses, nil
}
