package geo

import (
	"errors"
)

// Sentinel kinds for geometry errors.
var (
	ErrEmptyGeometry       = errors.New("empty geometry")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrMalformedRing       = errors.New("malformed ring")
)
