package partition

import (
	"errors"
)

// Sentinel kinds for partition build errors.
var (
	ErrMalformedBoundary = errors.New("malformed territory boundary")
	ErrDuplicateCompany  = errors.New("duplicate company name")
	ErrDuplicateBox      = errors.New("duplicate alarm box code")
)
