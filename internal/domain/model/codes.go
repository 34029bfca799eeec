package model

import (
	"fmt"
	"strings"
)

// boroughPrefix maps source borough labels to the single-letter prefix
// used in alarm box codes. The alarm box dataset labels Staten Island
// two different ways.
var boroughPrefix = map[string]string{
	"BROOKLYN":                 "B",
	"BRONX":                    "X",
	"QUEENS":                   "Q",
	"MANHATTAN":                "M",
	"STATEN ISLAND":            "R",
	"RICHMOND / STATEN ISLAND": "R",
}

// companyKind maps territory dataset type letters to company kinds.
var companyKind = map[string]CompanyType{
	"E": Engine,
	"L": Ladder,
	"Q": Squad,
}

// BoxCode derives the alarm box identifier joining incidents to box
// locations: borough prefix plus the zero-padded box number, e.g.
// BoxCode("BROOKLYN", 361) == "B0361".
func BoxCode(borough string, number int) (string, error) {
	prefix, ok := boroughPrefix[strings.ToUpper(strings.TrimSpace(borough))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBorough, borough)
	}
	if number < 0 {
		return "", fmt.Errorf("%w: box number %d", ErrInvalidBoxNumber, number)
	}
	return fmt.Sprintf("%s%04d", prefix, number), nil
}

// ParseCompanyName derives the display name used throughout the output
// table, e.g. ParseCompanyName("E", 70) == "Engine 70".
func ParseCompanyName(typeLetter string, number int) (string, CompanyType, error) {
	kind, ok := companyKind[strings.ToUpper(strings.TrimSpace(typeLetter))]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownCompanyType, typeLetter)
	}
	return fmt.Sprintf("%s %d", kind, number), kind, nil
}

// Letter returns the territory dataset type letter for the kind, e.g.
// Engine.Letter() == "E". Unknown kinds return "".
func (t CompanyType) Letter() string {
	for letter, kind := range companyKind {
		if kind == t {
			return letter
		}
	}
	return ""
}
