package pipeline

import "errors"

// ErrPeriodPanic marks a reporting window whose aggregation panicked.
// The panic is contained to that window's PeriodError instead of
// crashing the run.
var ErrPeriodPanic = errors.New("period aggregation panicked")
