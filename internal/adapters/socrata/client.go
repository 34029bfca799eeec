// Package socrata downloads datasets from the NYC open data portal,
// paging with $limit/$offset, throttling between pages, and retrying
// transient failures.
package socrata

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jlenander/firestat/pkg/logger"
	"github.com/jlenander/firestat/pkg/metrics"
)

// Dataset identifiers on the portal.
const (
	IncidentsDataset     = "8m42-w767" // Fire Incident Dispatch Data
	FireCompaniesDataset = "bst7-5464" // Fire Battalions, Divisions and Companies
	FirehousesDataset    = "hc8x-tcnd" // FDNY Firehouse Listing
	AlarmBoxesDataset    = "v57i-gtxb" // In Service Alarm Box Locations
)

const (
	defaultBaseURL    = "https://data.cityofnewyork.us"
	defaultPageLimit  = 50_000
	defaultThrottle   = 250 * time.Millisecond
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultTimeout    = 5 * time.Minute

	// timestampLayout is the portal's floating timestamp format.
	timestampLayout = "2006-01-02T15:04:05"
)

// Client fetches portal datasets. A zero app token works but the portal
// throttles anonymous requests aggressively.
type Client struct {
	baseURL    string
	appToken   string
	pageLimit  int
	throttle   time.Duration
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	logger     logger.Logger
}

// New constructs a Client with default configuration.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		pageLimit:  defaultPageLimit,
		throttle:   defaultThrottle,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.Get().Named("socrata")
	}

	return c
}

// IncidentQuery filters the dispatch dataset to rows with a valid
// response time inside the half-open range [start, end).
func IncidentQuery(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("VALID_INCIDENT_RSPNS_TIME_INDC", "Y")
	v.Set("$where", fmt.Sprintf("incident_datetime >= '%s' AND incident_datetime < '%s'",
		start.Format(timestampLayout), end.Format(timestampLayout)))
	return v
}

// FetchCSV streams a dataset to w as one CSV document: the header from
// the first page followed by every page's data rows. It returns the
// number of data rows written.
func (c *Client) FetchCSV(ctx context.Context, dataset string, query url.Values, w io.Writer) (int, error) {
	if dataset == "" {
		return 0, fmt.Errorf("%w: empty dataset id", ErrFetchFailed)
	}

	out := csv.NewWriter(w)
	total := 0
	for page := 0; ; page++ {
		if page > 0 {
			if err := sleep(ctx, c.throttle); err != nil {
				return total, err
			}
		}

		pageURL := c.resourceURL(dataset, "csv", query, page*c.pageLimit)
		rows, err := c.fetchCSVPage(ctx, pageURL, page > 0, out)
		if err != nil {
			return total, fmt.Errorf("dataset %s page %d: %w", dataset, page, err)
		}
		total += rows

		c.logger.Debug(ctx, "fetched csv page",
			logger.String("dataset", dataset),
			logger.Int("page", page),
			logger.Int("rows", rows),
		)
		if rows < c.pageLimit {
			break
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return total, fmt.Errorf("flushing csv: %w", err)
	}
	return total, nil
}

// FetchJSON collects a dataset's rows across pages and writes them to w
// as a single JSON array. It returns the number of rows written.
func (c *Client) FetchJSON(ctx context.Context, dataset string, query url.Values, w io.Writer) (int, error) {
	if dataset == "" {
		return 0, fmt.Errorf("%w: empty dataset id", ErrFetchFailed)
	}

	var rows []json.RawMessage
	for page := 0; ; page++ {
		if page > 0 {
			if err := sleep(ctx, c.throttle); err != nil {
				return len(rows), err
			}
		}

		pageURL := c.resourceURL(dataset, "json", query, page*c.pageLimit)
		batch, err := c.fetchJSONPage(ctx, pageURL)
		if err != nil {
			return len(rows), fmt.Errorf("dataset %s page %d: %w", dataset, page, err)
		}
		rows = append(rows, batch...)

		c.logger.Debug(ctx, "fetched json page",
			logger.String("dataset", dataset),
			logger.Int("page", page),
			logger.Int("rows", len(batch)),
		)
		if len(batch) < c.pageLimit {
			break
		}
	}

	if err := json.NewEncoder(w).Encode(rows); err != nil {
		return len(rows), fmt.Errorf("encoding json: %w", err)
	}
	return len(rows), nil
}

func (c *Client) fetchCSVPage(ctx context.Context, pageURL string, skipHeader bool, out *csv.Writer) (int, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	metrics.RecordFetchPage()

	cr := &countingReader{r: resp.Body}
	r := csv.NewReader(cr)
	r.FieldsPerRecord = -1

	rows := 0
	header := true
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("reading csv: %w", err)
		}

		if header {
			header = false
			if skipHeader {
				continue
			}
			if err := out.Write(record); err != nil {
				return rows, fmt.Errorf("writing csv: %w", err)
			}
			continue
		}

		if err := out.Write(record); err != nil {
			return rows, fmt.Errorf("writing csv: %w", err)
		}
		rows++
	}
	metrics.AddFetchBytes(cr.n)
	return rows, nil
}

func (c *Client) fetchJSONPage(ctx context.Context, pageURL string) ([]json.RawMessage, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	metrics.RecordFetchPage()

	cr := &countingReader{r: resp.Body}
	var batch []json.RawMessage
	if err := json.NewDecoder(cr).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	metrics.AddFetchBytes(cr.n)
	return batch, nil
}

// get performs one GET with exponential backoff on transport errors,
// 429, and 5xx responses. The caller owns the returned body.
func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		if err == nil {
			status := resp.StatusCode
			_ = resp.Body.Close()
			if !retryable(status) || attempt >= c.maxRetries {
				return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, status)
			}
		} else if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}

		metrics.RecordFetchRetry()
		if serr := sleep(ctx, c.retryDelay*time.Duration(1<<attempt)); serr != nil {
			return nil, serr
		}
	}
}

func (c *Client) resourceURL(dataset, format string, query url.Values, offset int) string {
	v := url.Values{}
	for key, vals := range query {
		for _, val := range vals {
			v.Add(key, val)
		}
	}
	v.Set("$limit", strconv.Itoa(c.pageLimit))
	v.Set("$offset", strconv.Itoa(offset))
	// Paging without an explicit order is not stable on the portal.
	v.Set("$order", ":id")
	return fmt.Sprintf("%s/resource/%s.%s?%s", c.baseURL, dataset, format, v.Encode())
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
