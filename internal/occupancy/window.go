// Package occupancy answers point-in-time occupancy queries over session
// records: campus-wide per-building counts, single-building statistics, and
// per-access-point counts, at minute or hour granularity.
package occupancy

import (
	"fmt"
	"strings"
)

// Granularity selects how wide the query window is.
type Granularity int

const (
	// GranularityHour matches stays against a 60-minute bucket. This is
	// the default.
	GranularityHour Granularity = iota

	// GranularityMinute matches stays against a single minute instant.
	GranularityMinute
)

// String returns the query-parameter spelling of the granularity.
func (g Granularity) String() string {
	if g == GranularityMinute {
		return "minute"
	}
	return "hour"
}

// ParseGranularity parses the granularity query parameter. An empty value
// defaults to hour.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(s) {
	case "", "hour":
		return GranularityHour, nil
	case "minute":
		return GranularityMinute, nil
	default:
		return GranularityHour, fmt.Errorf("unknown granularity %q", s)
	}
}

// Window is a query's time of interest: either the single instant at
// Reference (minute granularity) or the inclusive bucket
// [Reference, Reference+59] (hour granularity).
type Window struct {
	Reference   int
	Granularity Granularity
}

// Bounds returns the window's inclusive lower and upper minute bounds.
// For minute granularity both bounds are the reference instant.
func (w Window) Bounds() (lower, upper float64) {
	lower = float64(w.Reference)
	if w.Granularity == GranularityHour {
		return lower, lower + 59
	}
	return lower, lower
}

// Matches reports whether a stay interval intersects the window. A stay
// matches iff it starts no later than the upper bound and ends strictly
// after the lower bound; for minute granularity this reduces to
// start <= reference < end.
func (w Window) Matches(start, end float64) bool {
	lower, upper := w.Bounds()
	return start <= upper && end > lower
}

// OverlapDuration computes how many minutes of a matching stay fall inside
// an hour window. The four boundary cases are enumerated explicitly; they
// are mutually exclusive given Matches.
func (w Window) OverlapDuration(start, end float64) float64 {
	lower, upper := w.Bounds()

	switch {
	case start < lower && end > upper:
		// Stay fully spans the window.
		return 60.0
	case start < lower:
		// Starts before the window, ends within it.
		return end - lower
	case end > upper:
		// Starts within the window, ends after it.
		return upper - start
	default:
		// Fully inside the window.
		return end - start
	}
}
