package dataset

import (
	"errors"
)

// Sentinel kinds for dataset file handling.
var (
	ErrLoadFailed    = errors.New("dataset load failed")
	ErrSaveFailed    = errors.New("dataset save failed")
	ErrMissingColumn = errors.New("missing dataset column")
)
