package config

import "errors"

// Error kinds callers can match with errors.Is. Load failures and
// validation failures are separated so a bad file path is not mistaken
// for a bad value.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
