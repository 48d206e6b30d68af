package session

import (
	"errors"
	"testing"
)

// makeRow builds a raw export row wide enough for the default schema.
func makeRow(roomCount, aps, starts, ends, device, date, building string) []string {
	row := make([]string, 37)
	row[0] = roomCount
	row[1] = aps
	row[2] = starts
	row[3] = ends
	row[26] = device
	row[32] = date
	row[36] = building
	return row
}

func TestParse(t *testing.T) {
	parser, err := NewParser(DefaultSchema)
	if err != nil {
		t.Fatalf("NewParser returned error: %v", err)
	}

	row := makeRow("2", "['KNWL-2A', 'KNWL-3B']", "[600, 640]", "[630.5, 700]",
		"#Y4kGl.FiowcKk0z8xyTEjU#", "2021-03-01T00:00:00", "KNWL")

	sess, err := parser.Parse(row)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if sess.DeviceID != "#Y4kGl.FiowcKk0z8xyTEjU#" {
		t.Errorf("device id: got %q", sess.DeviceID)
	}
	if sess.Building != "KNWL" {
		t.Errorf("building: got %q", sess.Building)
	}
	if sess.DateKey != "20210301" {
		t.Errorf("date key: expected 20210301, got %q", sess.DateKey)
	}
	if sess.DisplayDate() != "2021-03-01" {
		t.Errorf("display date: got %q", sess.DisplayDate())
	}

	if len(sess.Stays) != 2 {
		t.Fatalf("expected 2 stays, got %d", len(sess.Stays))
	}
	first := sess.Stays[0]
	if first.AccessPoint != "KNWL-2A" || first.StartMinute != 600 || first.EndMinute != 630.5 {
		t.Errorf("unexpected first stay: %+v", first)
	}

	start, end := sess.Envelope()
	if start != 600 || end != 700 {
		t.Errorf("envelope: expected (600, 700), got (%v, %v)", start, end)
	}
}

func TestParseMalformedRows(t *testing.T) {
	parser, _ := NewParser(DefaultSchema)

	tests := []struct {
		name string
		row  []string
	}{
		{"short row", []string{"1", "['KNWL-2A']"}},
		{"room count mismatch", makeRow("3", "['KNWL-2A', 'KNWL-3B']", "[600, 640]", "[630, 700]", "#d#", "2021-03-01", "KNWL")},
		{"non-numeric room count", makeRow("two", "['KNWL-2A']", "[600]", "[630]", "#d#", "2021-03-01", "KNWL")},
		{"non-numeric start", makeRow("1", "['KNWL-2A']", "[abc]", "[630]", "#d#", "2021-03-01", "KNWL")},
		{"non-numeric end", makeRow("1", "['KNWL-2A']", "[600]", "[xyz]", "#d#", "2021-03-01", "KNWL")},
		{"start list shorter", makeRow("2", "['KNWL-2A', 'KNWL-3B']", "[600]", "[630, 700]", "#d#", "2021-03-01", "KNWL")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(tt.row)
			if !errors.Is(err, ErrMalformedRow) {
				t.Errorf("expected ErrMalformedRow, got %v", err)
			}
		})
	}
}

func TestNewParserRejectsBadSchema(t *testing.T) {
	bad := DefaultSchema
	bad.Building = bad.DeviceID // collision
	if _, err := NewParser(bad); err == nil {
		t.Error("expected error for colliding schema columns")
	}

	bad = DefaultSchema
	bad.Date = -1
	if _, err := NewParser(bad); err == nil {
		t.Error("expected error for negative schema column")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"quoted names", "['KNWL-2A', 'KNWL-3B']", []string{"KNWL-2A", "KNWL-3B"}},
		{"numbers", "[600, 640.5]", []string{"600", "640.5"}},
		{"single entry", "['LGRC-A1']", []string{"LGRC-A1"}},
		{"empty list", "[]", nil},
		{"double quotes", `["KNWL-2A"]`, []string{"KNWL-2A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitList(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d tokens, got %d (%v)", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestFloorLevel(t *testing.T) {
	tests := []struct {
		name    string
		apName  string
		want    int
		wantErr bool
	}{
		{"digit first", "KNWL-2A", 2, false},
		{"digit after letter", "LGRC-A1", 1, false},
		{"multi digit takes first", "DUBOIS-12B", 1, false},
		{"no separator", "KNWL2A", 0, true},
		{"no digit", "KNWL-AB", 0, true},
		{"trailing separator", "KNWL-", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FloorLevel(tt.apName)
			if tt.wantErr {
				if !errors.Is(err, ErrUnresolvableFloor) {
					t.Errorf("expected ErrUnresolvableFloor, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected floor %d, got %d", tt.want, got)
			}
		})
	}
}
