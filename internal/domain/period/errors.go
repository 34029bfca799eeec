package period

import (
	"errors"
)

// Sentinel kinds for window sequence errors.
var (
	ErrInvalidRange       = errors.New("invalid reporting range")
	ErrUnknownGranularity = errors.New("unknown reporting granularity")
)
