package pipeline

import (
	"github.com/jlenander/firestat/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithWorkers sets the number of goroutines aggregating reporting
// windows concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithFilter sets the outlier filter applied to the concatenated table
// after every window has been aggregated.
func WithFilter(f Filter) Option {
	return func(r *Runner) {
		r.filter = f
	}
}

// WithMinBoxIncidents excludes alarm boxes with fewer than n incidents
// in a window from that window's company averages. This trims noisy
// boxes before averaging, unlike Filter.MinIncidents which drops
// finished rows.
func WithMinBoxIncidents(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.minBoxIncidents = n
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.runID = id
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
