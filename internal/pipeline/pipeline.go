// Package pipeline runs the full aggregation flow: build the spatial
// partition once, aggregate every reporting window concurrently, and
// apply the outlier filter to the concatenated table.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jlenander/firestat/internal/domain/model"
	"github.com/jlenander/firestat/internal/domain/partition"
	"github.com/jlenander/firestat/internal/domain/period"
	"github.com/jlenander/firestat/internal/domain/response"
	"github.com/jlenander/firestat/pkg/logger"
	"github.com/jlenander/firestat/pkg/metrics"
)

const (
	// defaultWorkerMultiplier scales the period worker count by CPU
	// cores when no explicit count is configured.
	defaultWorkerMultiplier = 2
)

// Runner executes aggregation runs against a fixed set of inputs. Build
// one with New; the zero value is not usable. A Runner may be reused
// for sequential runs but is not safe for concurrent Run calls.
type Runner struct {
	workers         int
	filter          Filter
	minBoxIncidents int
	runID           string
	logger          logger.Logger
}

// New constructs a Runner with default configuration.
func New(opts ...Option) *Runner {
	r := &Runner{
		workers: runtime.NumCPU() * defaultWorkerMultiplier,
		runID:   uuid.NewString(),
		logger:  nil, // resolved when the run starts
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RunID returns the identifier stamped on this runner's results.
func (r *Runner) RunID() string {
	return r.runID
}

// log returns the injected logger, or the global one once available.
func (r *Runner) log() logger.Logger {
	if r.logger != nil {
		return r.logger
	}
	return logger.Get().Named("pipeline")
}

// PeriodError records a reporting window that failed without stopping
// the rest of the run.
type PeriodError struct {
	Label string
	Err   error
}

func (e PeriodError) Error() string {
	return fmt.Sprintf("period %s: %v", e.Label, e.Err)
}

func (e PeriodError) Unwrap() error {
	return e.Err
}

// Coverage describes how the spatial partition behind a run covered
// the alarm boxes.
type Coverage struct {
	Companies       int `json:"companies"`
	BoxesAssigned   int `json:"boxes_assigned"`
	BoxesUnassigned int `json:"boxes_unassigned"`
	BoxesSkipped    int `json:"boxes_skipped"`
}

// Result is the outcome of a single aggregation run. Rows holds the
// concatenated per-company, per-period table after outlier filtering,
// in period order and company order within each period.
type Result struct {
	RunID        string
	Rows         []model.CompanyResponse
	PeriodErrors []PeriodError
	Dropped      DropCounts
	Ignored      int // incidents referencing boxes outside the partition
	Coverage     Coverage
	Summary      Summary
	Elapsed      time.Duration
}

// Failed reports whether any reporting window failed.
func (r *Result) Failed() bool {
	return len(r.PeriodErrors) > 0
}

// periodOutcome is the per-window slot filled by a worker. Workers
// write disjoint indexes, so no locking is needed.
type periodOutcome struct {
	rows    []model.CompanyResponse
	ignored int
	err     error
}

// Run builds the spatial partition from companies and boxes, then
// aggregates incidents into one row per company per reporting window.
// A malformed company boundary or a duplicate company or box fails the
// whole run before any aggregation happens.
func (r *Runner) Run(ctx context.Context, companies []model.FireCompany, boxes []model.AlarmBox, incidents []model.Incident, periods []period.Period) (*Result, error) {
	buildStart := time.Now()
	part, err := partition.Build(ctx, companies, boxes)
	if err != nil {
		return nil, fmt.Errorf("building spatial partition: %w", err)
	}
	metrics.RecordPartitionBuildDuration(float64(time.Since(buildStart).Milliseconds()))
	metrics.UpdateCompanyCount(len(part.Companies()))
	metrics.UpdateBoxesAssigned(part.Assigned())
	metrics.UpdateBoxesUnassigned(len(part.Unassigned()))
	metrics.AddContainmentTests(part.Tests())
	for range part.Skipped() {
		metrics.RecordBoxSkipped()
	}
	if skipped := part.Skipped(); len(skipped) > 0 {
		r.log().Warn(ctx, "skipped alarm boxes with unusable coordinates",
			logger.String("run_id", r.runID),
			logger.Int("count", len(skipped)),
		)
	}

	return r.RunWithPartition(ctx, part, incidents, periods)
}

// RunWithPartition aggregates incidents over an already-built partition.
// Callers that report over many period sets can build the partition once
// and reuse it here; aggregation never mutates it.
func (r *Runner) RunWithPartition(ctx context.Context, part *partition.Partition, incidents []model.Incident, periods []period.Period) (*Result, error) {
	start := time.Now()

	if err := period.Validate(periods); err != nil {
		return nil, fmt.Errorf("validating reporting windows: %w", err)
	}

	log := r.log()

	metrics.RecordRun()
	log.Info(ctx, "starting aggregation run",
		logger.String("run_id", r.runID),
		logger.Int("companies", len(part.Companies())),
		logger.Int("boxes", part.Assigned()),
		logger.Int("incidents", len(incidents)),
		logger.Int("periods", len(periods)),
	)

	outcomes := make([]periodOutcome, len(periods))
	if len(periods) > 0 {
		workers := r.workers
		if workers < 1 {
			workers = 1
		}
		if workers > len(periods) {
			workers = len(periods)
		}

		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for idx := range jobs {
					rows, ignored, err := r.processPeriod(part, incidents, periods[idx])
					outcomes[idx] = periodOutcome{rows: rows, ignored: ignored, err: err}
				}
			}()
		}

	feed:
		for idx := range periods {
			select {
			case <-ctx.Done():
				break feed
			case jobs <- idx:
			}
		}
		close(jobs)
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregation run interrupted: %w", err)
	}

	var (
		rows    []model.CompanyResponse
		perrs   []PeriodError
		ignored int
	)
	for i, out := range outcomes {
		if out.err != nil {
			perrs = append(perrs, PeriodError{Label: periods[i].Label, Err: out.err})
			metrics.RecordPeriodFailed()
			log.Error(ctx, "period aggregation failed",
				logger.String("run_id", r.runID),
				logger.String("period", periods[i].Label),
				logger.Error(out.err),
			)
			continue
		}
		metrics.RecordPeriodProcessed()
		rows = append(rows, out.rows...)
		ignored += out.ignored
	}

	if ignored > 0 {
		metrics.AddUnknownBoxCodes(ignored)
		log.Debug(ctx, "ignored incidents referencing unpartitioned boxes",
			logger.String("run_id", r.runID),
			logger.Int("count", ignored),
		)
	}

	kept, dropped := r.filter.Apply(rows)
	metrics.AddRowsEmitted(len(kept))

	res := &Result{
		RunID:        r.runID,
		Rows:         kept,
		PeriodErrors: perrs,
		Dropped:      dropped,
		Ignored:      ignored,
		Coverage: Coverage{
			Companies:       len(part.Companies()),
			BoxesAssigned:   part.Assigned(),
			BoxesUnassigned: len(part.Unassigned()),
			BoxesSkipped:    len(part.Skipped()),
		},
		Summary: Summarize(kept),
		Elapsed: time.Since(start),
	}
	metrics.RecordRunDuration(float64(res.Elapsed.Milliseconds()))

	log.Info(ctx, "aggregation run complete",
		logger.String("run_id", r.runID),
		logger.Int("rows", len(res.Rows)),
		logger.Int("dropped", dropped.Total()),
		logger.Int("failed_periods", len(perrs)),
		logger.Duration("elapsed", res.Elapsed),
	)

	return res, nil
}

// processPeriod aggregates one reporting window into per-company rows.
// Panics are converted to errors so a bad window cannot take down the
// run or leak a worker goroutine.
func (r *Runner) processPeriod(part *partition.Partition, incidents []model.Incident, win period.Period) (rows []model.CompanyResponse, ignored int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			rows, ignored = nil, 0
			err = fmt.Errorf("%w: %v", ErrPeriodPanic, rec)
		}
	}()

	start := time.Now()

	totals := response.NewTotals(part.AssignedCodes())
	ignored = response.Accumulate(win.Window(incidents), totals)

	var opts []response.Option
	if r.minBoxIncidents > 0 {
		opts = append(opts, response.WithMinBoxIncidents(r.minBoxIncidents))
	}
	rows = response.Aggregate(part, totals, opts...)
	for i := range rows {
		rows[i].Period = win.Label
	}

	metrics.RecordPeriodLatency(float64(time.Since(start).Milliseconds()))
	return rows, ignored, nil
}
