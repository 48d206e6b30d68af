// Package session parses raw connectivity-export rows into structured
// session records. One row describes one device's sequence of access-point
// associations for a date; three positionally-coupled list columns carry the
// access-point names and their start/end minutes.
package session

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRow is returned when a row's list lengths disagree with
	// its room count or a numeric field does not parse. Callers skip the
	// row and continue the scan.
	ErrMalformedRow = errors.New("malformed session row")

	// ErrUnresolvableFloor is returned when no floor digit can be found in
	// an access-point name.
	ErrUnresolvableFloor = errors.New("unresolvable floor level")
)

// Stay is a single access-point association interval within a session.
// End minutes may be fractional in the source data.
type Stay struct {
	AccessPoint string
	StartMinute float64
	EndMinute   float64
}

// Duration returns the stay's length in minutes.
func (s Stay) Duration() float64 {
	return s.EndMinute - s.StartMinute
}

// Session is one parsed export row.
type Session struct {
	DeviceID string
	Building string
	DateKey  string // 8-digit YYYYMMDD
	Stays    []Stay
}

// DisplayDate returns the session's date in YYYY-MM-DD form, as carried
// through to aggregation results.
func (s *Session) DisplayDate() string {
	if len(s.DateKey) != 8 {
		return s.DateKey
	}
	return s.DateKey[0:4] + "-" + s.DateKey[4:6] + "-" + s.DateKey[6:8]
}

// Envelope returns the session's overall interval: the first stay's start
// and the last stay's end. Campus and building aggregation match sessions
// by this envelope; access-point aggregation matches individual stays.
func (s *Session) Envelope() (start, end float64) {
	if len(s.Stays) == 0 {
		return 0, 0
	}
	return s.Stays[0].StartMinute, s.Stays[len(s.Stays)-1].EndMinute
}

// Schema maps the positional columns of an export row. The offsets are
// fixed by the existing data exports; deployments with a different layout
// supply their own schema.
type Schema struct {
	RoomCount    int
	AccessPoints int
	StartList    int
	EndList      int
	DeviceID     int
	Date         int
	Building     int
}

// DefaultSchema is the column layout of the standard session exports.
var DefaultSchema = Schema{
	RoomCount:    0,
	AccessPoints: 1,
	StartList:    2,
	EndList:      3,
	DeviceID:     26,
	Date:         32,
	Building:     36,
}

// Validate rejects schemas with negative or colliding column indices.
// It runs once at load time so per-row access can index blindly.
func (s Schema) Validate() error {
	cols := []int{s.RoomCount, s.AccessPoints, s.StartList, s.EndList, s.DeviceID, s.Date, s.Building}
	seen := make(map[int]bool, len(cols))
	for _, c := range cols {
		if c < 0 {
			return fmt.Errorf("schema column index %d is negative", c)
		}
		if seen[c] {
			return fmt.Errorf("schema column index %d used twice", c)
		}
		seen[c] = true
	}
	return nil
}

// minColumns returns the minimum row width the schema requires.
func (s Schema) minColumns() int {
	max := s.RoomCount
	for _, c := range []int{s.AccessPoints, s.StartList, s.EndList, s.DeviceID, s.Date, s.Building} {
		if c > max {
			max = c
		}
	}
	return max + 1
}
