// Package config defines process configuration and loading.
//
// Conventions:
// - Flat koanf keys; env vars map FIRESTAT_FOO_BAR -> foo_bar.
// - Provide New() to build a Config with defaults; Load layers file
//   and environment on top.
// - External errors must be wrapped via this package's sentinels.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// dateLayout is the wire format of start_date and end_date.
const dateLayout = "2006-01-02"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds fetched datasets and written results.
	DataDir string `koanf:"data_dir"`

	// Socrata portal access. The token is optional but raises the
	// portal's rate limits considerably.
	SocrataBaseURL    string `koanf:"socrata_base_url"`
	SocrataAppToken   string `koanf:"socrata_app_token"`
	SocrataPageLimit  int    `koanf:"socrata_page_limit"`
	SocrataThrottleMS int    `koanf:"socrata_throttle_ms"`
	SocrataMaxRetries int    `koanf:"socrata_max_retries"`

	// Reporting window generation: [start_date, end_date) split by
	// granularity (monthly or yearly).
	Granularity string `koanf:"granularity"`
	StartDate   string `koanf:"start_date"`
	EndDate     string `koanf:"end_date"`

	// WorkerCount sets the number of concurrent period workers.
	WorkerCount int `koanf:"worker_count"`

	// Outlier filtering over the finished table. Zero values disable a
	// check; exclude_companies drops rows by company name.
	MinResponse      float64  `koanf:"min_response"`
	MaxResponse      float64  `koanf:"max_response"`
	MinIncidents     int      `koanf:"min_incidents"`
	ExcludeCompanies []string `koanf:"exclude_companies"`

	// MinBoxIncidents excludes boxes with fewer incidents in a window
	// from that window's company averages. Zero disables.
	MinBoxIncidents int `koanf:"min_box_incidents"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		DataDir:           "data",
		SocrataBaseURL:    "https://data.cityofnewyork.us",
		SocrataAppToken:   "",
		SocrataPageLimit:  50_000,
		SocrataThrottleMS: 250,
		SocrataMaxRetries: 3,
		Granularity:       "yearly",
		StartDate:         "2016-01-01",
		EndDate:           "2021-01-01",
		WorkerCount:       runtime.NumCPU() * 2,
		MinResponse:       1.0,
		MaxResponse:       2500.0,
		MinIncidents:      0,
		MinBoxIncidents:   0,
	}
}

// Window parses the configured reporting range. Start is inclusive,
// end exclusive.
func (c *Config) Window() (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date %q: %v", ErrInvalidConfig, c.StartDate, err)
	}
	end, err := time.Parse(dateLayout, c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date %q: %v", ErrInvalidConfig, c.EndDate, err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date %s is not before end_date %s", ErrInvalidConfig, c.StartDate, c.EndDate)
	}
	return start, end, nil
}

// Throttle returns the configured inter-page fetch delay.
func (c *Config) Throttle() time.Duration {
	if c.SocrataThrottleMS < 1 {
		return 0
	}
	return time.Duration(c.SocrataThrottleMS) * time.Millisecond
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Granularity) {
	case "monthly", "yearly":
	default:
		return fmt.Errorf("%w: granularity %q (want monthly or yearly)", ErrInvalidConfig, c.Granularity)
	}
	if _, _, err := c.Window(); err != nil {
		return err
	}
	if c.SocrataPageLimit < 1 {
		return fmt.Errorf("%w: socrata_page_limit must be positive", ErrInvalidConfig)
	}
	if c.MinResponse > 0 && c.MaxResponse > 0 && c.MinResponse >= c.MaxResponse {
		return fmt.Errorf("%w: min_response must be below max_response", ErrInvalidConfig)
	}
	return nil
}
