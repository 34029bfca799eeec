// Package period slices the incident history into half-open reporting
// windows. A window spans [Start, End): an incident stamped exactly at
// Start belongs to the window, one stamped exactly at End belongs to
// the next. Generated sequences tile the requested range with no gap
// and no overlap; the final bucket is clamped so the union of windows
// is exactly the requested range.
package period

import (
	"fmt"
	"time"

	"github.com/jlenander/firestat/internal/domain/model"
)

// Granularity selects the reporting bucket size.
type Granularity string

// Supported granularities.
const (
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// Label formats per granularity.
const (
	monthLabelFormat = "2006-01"
	yearLabelFormat  = "2006"
)

// Period is one half-open reporting window.
type Period struct {
	Start time.Time // inclusive
	End   time.Time // exclusive
	Label string    // "2019-03" for months, "2019" for years
}

// Contains reports whether t falls inside the window.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Window returns the incidents falling inside the period. Input order
// does not matter and the input is never mutated; an empty result is a
// valid outcome for a quiet window.
func (p Period) Window(incidents []model.Incident) []model.Incident {
	var out []model.Incident
	for _, in := range incidents {
		if p.Contains(in.IncidentDatetime) {
			out = append(out, in)
		}
	}
	return out
}

// Sequence produces consecutive windows of the given granularity
// covering [start, end).
func Sequence(g Granularity, start, end time.Time) ([]Period, error) {
	switch g {
	case Monthly:
		return Months(start, end)
	case Yearly:
		return Years(start, end)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
}

// Months produces calendar-month windows covering [start, end). A
// mid-month start keeps its day of month on every bucket boundary.
func Months(start, end time.Time) ([]Period, error) {
	return sequence(start, end, monthLabelFormat, func(t time.Time) time.Time {
		return addMonths(t, 1)
	})
}

// Years produces calendar-year windows covering [start, end).
func Years(start, end time.Time) ([]Period, error) {
	return sequence(start, end, yearLabelFormat, func(t time.Time) time.Time {
		return addMonths(t, 12)
	})
}

func sequence(start, end time.Time, labelFormat string, step func(time.Time) time.Time) ([]Period, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	var out []Period
	for cur := start; cur.Before(end); {
		next := step(cur)
		bucketEnd := next
		if bucketEnd.After(end) {
			bucketEnd = end
		}
		out = append(out, Period{Start: cur, End: bucketEnd, Label: cur.Format(labelFormat)})
		cur = next
	}
	return out, nil
}

// addMonths steps by calendar months, clamping the day of month so that
// one month past Jan 31 is Feb 28 (or 29), not Mar 2.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in a month; day zero of the next
// month is the last day of this one.
func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Validate checks a window sequence is usable as a pipeline input:
// every window non-empty and the sequence strictly ordered without
// overlap. An empty sequence is valid and yields an empty table.
func Validate(periods []Period) error {
	for i, p := range periods {
		if !p.Start.Before(p.End) {
			return fmt.Errorf("%w: window %d (%s) has start %s not before end %s",
				ErrInvalidRange, i, p.Label, p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
		}
		if i > 0 && periods[i-1].End.After(p.Start) {
			return fmt.Errorf("%w: window %d (%s) overlaps window %d",
				ErrInvalidRange, i, p.Label, i-1)
		}
	}
	return nil
}
