package occupancy

import "testing"

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		input   string
		want    Granularity
		wantErr bool
	}{
		{"", GranularityHour, false},
		{"hour", GranularityHour, false},
		{"minute", GranularityMinute, false},
		{"Minute", GranularityMinute, false},
		{"daily", GranularityHour, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGranularity(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestWindowMatches_Minute(t *testing.T) {
	win := Window{Reference: 600, Granularity: GranularityMinute}

	tests := []struct {
		name  string
		start float64
		end   float64
		want  bool
	}{
		{"spans reference", 590, 610, true},
		{"starts at reference", 600, 610, true},
		{"ends at reference", 590, 600, false}, // end is exclusive
		{"entirely before", 500, 550, false},
		{"entirely after", 601, 650, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := win.Matches(tt.start, tt.end); got != tt.want {
				t.Errorf("Matches(%v, %v): expected %v, got %v", tt.start, tt.end, tt.want, got)
			}
		})
	}
}

func TestWindowMatches_Hour(t *testing.T) {
	win := Window{Reference: 100, Granularity: GranularityHour}

	tests := []struct {
		name  string
		start float64
		end   float64
		want  bool
	}{
		{"spans window", 90, 200, true},
		{"inside window", 120, 140, true},
		{"starts at upper bound", 159, 200, true},
		{"ends at lower bound", 50, 100, false},
		{"starts after window", 160, 200, false},
		{"ends within window", 50, 120, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := win.Matches(tt.start, tt.end); got != tt.want {
				t.Errorf("Matches(%v, %v): expected %v, got %v", tt.start, tt.end, tt.want, got)
			}
		})
	}
}

func TestOverlapDuration(t *testing.T) {
	win := Window{Reference: 100, Granularity: GranularityHour}

	tests := []struct {
		name  string
		start float64
		end   float64
		want  float64
	}{
		{"spans window", 90, 200, 60.0},
		{"starts on lower bound ends after", 100, 200, 59.0},
		{"starts within ends after", 150, 180, 9.0},
		{"starts before ends within", 50, 120, 20.0},
		{"fully inside", 110, 140, 30.0},
		{"fractional end", 110, 120.5, 10.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := win.OverlapDuration(tt.start, tt.end)
			if got != tt.want {
				t.Errorf("OverlapDuration(%v, %v): expected %v, got %v", tt.start, tt.end, tt.want, got)
			}
			if got < 0 || got > 60 {
				t.Errorf("overlap duration %v outside [0, 60]", got)
			}
		})
	}
}
