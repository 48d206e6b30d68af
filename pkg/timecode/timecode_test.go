package timecode

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantDate   string
		wantMinute int
	}{
		{"morning with minutes", "2021-03-01T10:30", "20210301", 630},
		{"midnight", "2021-03-01T00:00", "20210301", 0},
		{"with seconds", "2013-11-29T23:59:59", "20131129", 1439},
		{"date only", "2013-11-29", "20131129", 0},
		{"noon", "2021-03-09T12:00", "20210309", 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, minute, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if date != tt.wantDate {
				t.Errorf("date key: expected %s, got %s", tt.wantDate, date)
			}
			if minute != tt.wantMinute {
				t.Errorf("minute offset: expected %d, got %d", tt.wantMinute, minute)
			}
		})
	}
}

func TestParse_InvalidFormat(t *testing.T) {
	inputs := []string{
		"",
		"2021-3-1T10:30",
		"01/03/2021 10:30",
		"2021-03-01T25:99",
		"not a timestamp",
		"20210301",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, _, err := Parse(input)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Parse(%q): expected ErrInvalidFormat, got %v", input, err)
			}
		})
	}
}

func TestValidateOffset(t *testing.T) {
	if err := ValidateOffset(0); err != nil {
		t.Errorf("offset 0 should be valid, got %v", err)
	}
	if err := ValidateOffset(1439); err != nil {
		t.Errorf("offset 1439 should be valid, got %v", err)
	}
	if err := ValidateOffset(1440); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("offset 1440: expected ErrOutOfRange, got %v", err)
	}
	if err := ValidateOffset(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("offset -1: expected ErrOutOfRange, got %v", err)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		minute   float64
		expected string
	}{
		{725, "12:05 pm"},
		{0, "12:00 am"},
		{60, "1:00 am"},
		{630, "10:30 am"},
		{720, "12:00 pm"},
		{780, "1:00 pm"},
		{1439, "11:59 pm"},
		{1440, "12:00 am"},  // wraps to next day
		{1500, "1:00 am"},   // multi-day wrap
		{725.7, "12:05 pm"}, // fractional minutes truncate
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := Render(tt.minute)
			if got != tt.expected {
				t.Errorf("Render(%v): expected %q, got %q", tt.minute, tt.expected, got)
			}
		})
	}
}

// Round-trip: rendering the minute offset of a parsed timestamp must agree
// with the wall-clock hour and minute of the input.
func TestParseRenderRoundTrip(t *testing.T) {
	tests := []struct {
		input    string
		rendered string
	}{
		{"2021-03-01T10:30", "10:30 am"},
		{"2021-03-01T00:05", "12:05 am"},
		{"2021-03-01T12:05", "12:05 pm"},
		{"2021-03-01T16:45", "4:45 pm"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, minute, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if got := Render(float64(minute)); got != tt.rendered {
				t.Errorf("expected %q, got %q", tt.rendered, got)
			}
		})
	}
}
