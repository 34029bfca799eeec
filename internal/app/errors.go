package service

import "errors"

// ErrNotStarted is returned by stage methods called before Start.
var ErrNotStarted = errors.New("service not started")
