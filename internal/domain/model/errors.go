package model

import (
	"errors"
)

// Sentinel kinds for record derivation errors.
var (
	ErrUnknownBorough     = errors.New("unknown borough label")
	ErrUnknownCompanyType = errors.New("unknown company type letter")
	ErrInvalidBoxNumber   = errors.New("invalid alarm box number")
)
