package results

import (
	"errors"
)

// Sentinel kinds for serving-store reads.
var (
	ErrNoResults     = errors.New("no results loaded")
	ErrUnknownPeriod = errors.New("unknown reporting period")
)
