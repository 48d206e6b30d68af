// Package timecode converts between the timestamp strings used by the
// session exports and the (date key, minute-of-day) pairs the analytics
// engine works with.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// MinutesPerDay is the number of minutes in one day.
	MinutesPerDay = 1440

	layoutDateTime    = "2006-01-02T15:04"
	layoutDateTimeSec = "2006-01-02T15:04:05"
	layoutDate        = "2006-01-02"
)

var (
	// ErrInvalidFormat is returned when a timestamp string does not match
	// any recognized date-time pattern.
	ErrInvalidFormat = errors.New("invalid timestamp format")

	// ErrOutOfRange is returned when a minute offset falls outside [0,1440).
	ErrOutOfRange = errors.New("minute offset out of range")
)

// Parse splits a simplified ISO 8601 timestamp (2021-03-01T10:30, with
// optional seconds, or a bare 2021-03-01 date) into an 8-digit YYYYMMDD date
// key and a minute-of-day offset.
//
// The date key is assembled from the input's fixed character positions
// rather than re-formatted from the parsed value, so the source date
// components are echoed verbatim regardless of locale or timezone.
func Parse(ts string) (string, int, error) {
	var parsed time.Time
	var err error

	switch {
	case len(ts) == len(layoutDate):
		parsed, err = time.Parse(layoutDate, ts)
	case len(ts) == len(layoutDateTime):
		parsed, err = time.Parse(layoutDateTime, ts)
	case len(ts) == len(layoutDateTimeSec):
		parsed, err = time.Parse(layoutDateTimeSec, ts)
	default:
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidFormat, ts)
	}
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidFormat, ts)
	}

	dateKey := ts[0:4] + ts[5:7] + ts[8:10]
	minute := parsed.Hour()*60 + parsed.Minute()

	return dateKey, minute, nil
}

// ValidateOffset checks that a minute offset lies within a single day.
func ValidateOffset(minute int) error {
	if minute < 0 || minute >= MinutesPerDay {
		return fmt.Errorf("%w: %d", ErrOutOfRange, minute)
	}
	return nil
}

// Render converts a minute-of-day offset into a 12-hour clock display
// string such as "12:05 pm". Offsets beyond one day wrap around.
func Render(minute float64) string {
	total := math.Mod(minute, MinutesPerDay)
	if total < 0 {
		total += MinutesPerDay
	}

	hours := int(total) / 60
	minutes := int(total) % 60

	period := "am"
	if hours >= 12 {
		period = "pm"
		if hours > 12 {
			hours -= 12
		}
	} else if hours == 0 {
		hours = 12
	}

	return fmt.Sprintf("%d:%02d %s", hours, minutes, period)
}

// ParseDateKey converts an 8-digit YYYYMMDD date key back into a UTC time
// at midnight. The prediction feature encoder uses this for day arithmetic.
func ParseDateKey(dateKey string) (time.Time, error) {
	t, err := time.Parse("20060102", dateKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, dateKey)
	}
	return t, nil
}
