// Package service runs the fetch and aggregation stages and implements
// the read dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jlenander/firestat/internal/adapters/dataset"
	"github.com/jlenander/firestat/internal/adapters/results"
	"github.com/jlenander/firestat/internal/adapters/socrata"
	"github.com/jlenander/firestat/internal/config"
	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/internal/domain/period"
	"github.com/jlenander/firestat/internal/pipeline"
	"github.com/jlenander/firestat/pkg/logger"
)

// runInfo is the bookkeeping of the run behind the current table,
// reported through GetStats.
type runInfo struct {
	runID      string
	dropped    pipeline.DropCounts
	ignored    int
	coverage   pipeline.Coverage
	failures   []string
	elapsed    time.Duration
	finishedAt time.Time
	restored   bool
}

// Service orchestrates the response time pipeline: Fetch downloads the
// portal extracts, Process aggregates them into the response table, and
// the accessor methods serve that table to the HTTP API. Queries read
// an immutable store that is swapped in whole after each successful
// run, so readers never observe a half-built table.
type Service struct {
	mu sync.RWMutex

	// Core components
	client *socrata.Client
	store  results.Store

	// Reference data behind the map endpoints.
	companies  []model.FireCompany
	firehouses []model.Firehouse

	// Configuration
	cfg *config.Config

	// State
	started bool
	lastRun runInfo

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClient sets a custom portal client, e.g. one pointed at a test
// server.
func WithClient(c *socrata.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// New constructs a Service around cfg. Queries report no results until
// Process or Restore installs a table.
func New(cfg *config.Config, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.New()
	}

	s := &Service{
		cfg:    cfg,
		store:  results.NewMemStore(nil),
		logger: nil, // resolved when the service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start prepares the service for fetch, process, and serve calls.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.client == nil {
		s.client = socrata.New(
			socrata.WithBaseURL(s.cfg.SocrataBaseURL),
			socrata.WithAppToken(s.cfg.SocrataAppToken),
			socrata.WithPageLimit(s.cfg.SocrataPageLimit),
			socrata.WithThrottle(s.cfg.Throttle()),
			socrata.WithMaxRetries(s.cfg.SocrataMaxRetries),
		)
	}

	s.started = true
	s.logger.Info(ctx, "response time service started",
		logger.String("data_dir", s.cfg.DataDir),
		logger.String("granularity", s.cfg.Granularity),
		logger.String("window", s.cfg.StartDate+".."+s.cfg.EndDate),
		logger.Int("workers", s.cfg.WorkerCount),
	)

	return nil
}

// Stop shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "response time service stopped")
}

// Fetch downloads the four source datasets into the data directory,
// overwriting any previous extracts.
func (s *Service) Fetch(ctx context.Context) error {
	log, client, started := s.state()
	if !started {
		return ErrNotStarted
	}

	from, to, err := s.cfg.Window()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", s.cfg.DataDir, err)
	}

	start := time.Now()
	log.Info(ctx, "fetching datasets",
		logger.String("data_dir", s.cfg.DataDir),
		logger.Time("from", from),
		logger.Time("to", to),
	)

	rows, err := downloadTo(s.dataPath(dataset.IncidentsFile), func(w io.Writer) (int64, error) {
		return client.DownloadIncidents(ctx, w, from, to)
	})
	if err != nil {
		return fmt.Errorf("fetching incidents: %w", err)
	}
	log.Info(ctx, "fetched incidents", logger.Int64("rows", rows))

	rows, err = downloadTo(s.dataPath(dataset.AlarmBoxesFile), func(w io.Writer) (int64, error) {
		return client.DownloadAlarmBoxes(ctx, w)
	})
	if err != nil {
		return fmt.Errorf("fetching alarm boxes: %w", err)
	}
	log.Info(ctx, "fetched alarm boxes", logger.Int64("rows", rows))

	companies, err := client.FetchFireCompanies(ctx)
	if err != nil {
		return fmt.Errorf("fetching fire companies: %w", err)
	}
	if err := dataset.SaveFireCompanies(ctx, s.dataPath(dataset.FireCompaniesFile), companies); err != nil {
		return err
	}

	houses, err := client.FetchFirehouses(ctx)
	if err != nil {
		return fmt.Errorf("fetching firehouses: %w", err)
	}
	if err := dataset.SaveFirehouses(ctx, s.dataPath(dataset.FirehousesFile), houses); err != nil {
		return err
	}

	log.Info(ctx, "fetch complete", logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Process loads the fetched extracts, aggregates them into the response
// table, writes the table and boundary GeoJSON back to the data
// directory, and swaps the table into the store the API reads from.
// Reporting windows that fail are dropped from the table and surfaced
// through GetStats; only run-level failures abort.
func (s *Service) Process(ctx context.Context) (*pipeline.Result, error) {
	log, _, started := s.state()
	if !started {
		return nil, ErrNotStarted
	}

	from, to, err := s.cfg.Window()
	if err != nil {
		return nil, err
	}
	granularity := period.Granularity(strings.ToLower(s.cfg.Granularity))
	periods, err := period.Sequence(granularity, from, to)
	if err != nil {
		return nil, fmt.Errorf("building reporting windows: %w", err)
	}

	incidents, err := dataset.LoadIncidents(ctx, s.dataPath(dataset.IncidentsFile))
	if err != nil {
		return nil, err
	}
	boxes, err := dataset.LoadAlarmBoxes(ctx, s.dataPath(dataset.AlarmBoxesFile))
	if err != nil {
		return nil, err
	}
	companies, err := dataset.LoadFireCompanies(ctx, s.dataPath(dataset.FireCompaniesFile))
	if err != nil {
		return nil, err
	}
	houses, err := dataset.LoadFirehouses(ctx, s.dataPath(dataset.FirehousesFile))
	if err != nil {
		return nil, err
	}

	runner := pipeline.New(
		pipeline.WithWorkers(s.cfg.WorkerCount),
		pipeline.WithFilter(pipeline.Filter{
			MinResponse:      s.cfg.MinResponse,
			MaxResponse:      s.cfg.MaxResponse,
			MinIncidents:     s.cfg.MinIncidents,
			ExcludeCompanies: s.cfg.ExcludeCompanies,
		}),
		pipeline.WithMinBoxIncidents(s.cfg.MinBoxIncidents),
	)
	res, err := runner.Run(ctx, companies, boxes, incidents, periods)
	if err != nil {
		return nil, fmt.Errorf("aggregation run: %w", err)
	}

	if err := s.saveOutputs(ctx, res, companies); err != nil {
		return nil, err
	}

	failures := make([]string, 0, len(res.PeriodErrors))
	for _, pe := range res.PeriodErrors {
		failures = append(failures, pe.Label)
	}

	s.mu.Lock()
	s.store = results.NewMemStore(res)
	s.companies = companies
	s.firehouses = houses
	s.lastRun = runInfo{
		runID:      res.RunID,
		dropped:    res.Dropped,
		ignored:    res.Ignored,
		coverage:   res.Coverage,
		failures:   failures,
		elapsed:    res.Elapsed,
		finishedAt: time.Now(),
	}
	s.mu.Unlock()

	log.Info(ctx, "response table installed",
		logger.String("run_id", res.RunID),
		logger.Int("rows", len(res.Rows)),
		logger.Int("failed_periods", len(failures)),
		logger.Int("dropped", res.Dropped.Total()),
		logger.Int("ignored", res.Ignored),
		logger.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Restore loads the outputs of a previous run from the data directory,
// so the API can serve without reprocessing.
func (s *Service) Restore(ctx context.Context) error {
	log, _, started := s.state()
	if !started {
		return ErrNotStarted
	}

	rows, err := dataset.LoadCompanyResponses(ctx, s.dataPath(dataset.ResponsesFile))
	if err != nil {
		return err
	}
	companies, err := dataset.LoadFireCompanies(ctx, s.dataPath(dataset.FireCompaniesFile))
	if err != nil {
		return err
	}
	houses, err := dataset.LoadFirehouses(ctx, s.dataPath(dataset.FirehousesFile))
	if err != nil {
		return err
	}

	res := &pipeline.Result{Rows: rows, Summary: pipeline.Summarize(rows)}

	s.mu.Lock()
	s.store = results.NewMemStore(res)
	s.companies = companies
	s.firehouses = houses
	s.lastRun = runInfo{restored: true}
	s.mu.Unlock()

	log.Info(ctx, "restored previous response table", logger.Int("rows", len(rows)))
	return nil
}

// saveOutputs writes the response table and the boundary GeoJSON next to
// the extracts they were derived from.
func (s *Service) saveOutputs(ctx context.Context, res *pipeline.Result, companies []model.FireCompany) error {
	if err := dataset.SaveCompanyResponses(ctx, s.dataPath(dataset.ResponsesFile), res.Rows); err != nil {
		return err
	}

	path := s.dataPath(dataset.BoundariesFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %v", path, err)
	}
	if err := dataset.WriteCompaniesGeoJSON(f, companies); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing company boundaries: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %v", path, err)
	}
	return nil
}

// Rows returns the response rows matching q from the current table.
func (s *Service) Rows(ctx context.Context, q results.Query) ([]model.CompanyResponse, error) {
	return s.currentStore().Rows(ctx, q)
}

// Periods lists the reporting period labels served, oldest first.
func (s *Service) Periods(ctx context.Context) []string {
	return s.currentStore().Periods(ctx)
}

// Companies lists the company names served, sorted by name.
func (s *Service) Companies(ctx context.Context) []string {
	return s.currentStore().Companies(ctx)
}

// Count returns the number of rows served.
func (s *Service) Count(ctx context.Context) int {
	return s.currentStore().Count(ctx)
}

// Summary describes the response time distribution behind the table.
func (s *Service) Summary(ctx context.Context) pipeline.Summary {
	return s.currentStore().Summary(ctx)
}

// Boundaries returns the company territories behind the current table.
func (s *Service) Boundaries(_ context.Context) []model.FireCompany {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.FireCompany(nil), s.companies...)
}

// Firehouses returns the station locations for the map's marker layer.
func (s *Service) Firehouses(_ context.Context) []model.Firehouse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Firehouse(nil), s.firehouses...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"granularity": s.cfg.Granularity,
		"start_date":  s.cfg.StartDate,
		"end_date":    s.cfg.EndDate,
		"workers":     s.cfg.WorkerCount,
		"rows":        s.store.Count(ctx),
		"periods":     len(s.store.Periods(ctx)),
		"companies":   len(s.store.Companies(ctx)),
		"firehouses":  len(s.firehouses),
		"summary":     s.store.Summary(ctx),
	}

	if s.lastRun.restored {
		stats["restored"] = true
	}
	if s.lastRun.runID != "" {
		stats["run_id"] = s.lastRun.runID
		stats["dropped"] = s.lastRun.dropped
		stats["ignored_incidents"] = s.lastRun.ignored
		stats["coverage"] = s.lastRun.coverage
		stats["failed_periods"] = s.lastRun.failures
		stats["run_elapsed_ms"] = s.lastRun.elapsed.Milliseconds()
		stats["finished_at"] = s.lastRun.finishedAt.UTC().Format(time.RFC3339)
	}

	return stats
}

// currentStore returns the table installed by the last Process or
// Restore, or an empty store before either.
func (s *Service) currentStore() results.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *Service) state() (logger.Logger, *socrata.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger, s.client, s.started
}

func (s *Service) dataPath(name string) string {
	return filepath.Join(s.cfg.DataDir, name)
}

// downloadTo streams one extract into path via dl, creating or
// truncating the file.
func downloadTo(path string, dl func(io.Writer) (int64, error)) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %v", path, err)
	}
	rows, err := dl(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %v", path, cerr)
	}
	return rows, err
}
