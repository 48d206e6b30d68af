package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/crowdvisual/crowdvisual-platform/internal/session"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolver(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Sessions_Total", "20210301_sessions_final.csv"), "header\n")
	writeFile(t, filepath.Join(root, "Sessions_KNWL", "20210301_sessions_final.csv"), "header\n")
	writeFile(t, filepath.Join(root, "Trajectory", "20210301_finaltraj.csv"), "header\n")
	writeFile(t, filepath.Join(root, "Sessions_Total", "notes.txt"), "ignored\n")

	r := NewResolver(root)

	path, err := r.SessionFile("20210301", "")
	if err != nil {
		t.Fatalf("SessionFile(total): %v", err)
	}
	if filepath.Base(path) != "20210301_sessions_final.csv" {
		t.Errorf("unexpected file %s", path)
	}

	if _, err := r.SessionFile("20210301", "KNWL"); err != nil {
		t.Errorf("SessionFile(KNWL): %v", err)
	}

	if _, err := r.TrajectoryFile("20210301"); err != nil {
		t.Errorf("TrajectoryFile: %v", err)
	}
}

func TestResolver_DataUnavailable(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Sessions_Total", "20210301_sessions_final.csv"), "header\n")

	r := NewResolver(root)

	tests := []struct {
		name string
		run  func() error
	}{
		{"wrong date", func() error { _, err := r.SessionFile("20991231", ""); return err }},
		{"missing category dir", func() error { _, err := r.SessionFile("20210301", "GHOST"); return err }},
		{"missing trajectory dir", func() error { _, err := r.TrajectoryFile("20210301"); return err }},
		{"bad date key", func() error { _, err := r.SessionFile("2021-03-01", ""); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, ErrDataUnavailable) {
				t.Errorf("expected ErrDataUnavailable, got %v", err)
			}
		})
	}
}

// sessionCSV is a two-row export in the standard 37-column layout, padded
// with empty filler columns.
func sessionCSV(t *testing.T) string {
	t.Helper()

	header := "count,aps,starts,ends"
	for i := 4; i < 37; i++ {
		header += ",c"
	}

	row := func(count, aps, starts, ends, device, date, building string) string {
		cols := make([]string, 37)
		cols[0] = count
		cols[1] = aps
		cols[2] = starts
		cols[3] = ends
		cols[26] = device
		cols[32] = date
		cols[36] = building
		out := ""
		for i, c := range cols {
			if i > 0 {
				out += ","
			}
			// Quote the list columns, which contain commas.
			if i >= 1 && i <= 3 {
				out += `"` + c + `"`
			} else {
				out += c
			}
		}
		return out
	}

	return header + "\n" +
		row("2", "['KNWL-2A', 'KNWL-3B']", "[600, 640]", "[630, 700.5]", "#dev1#", "2021-03-01T00:00:00", "KNWL") + "\n" +
		row("2", "['KNWL-2A']", "[600]", "[630]", "#dev2#", "2021-03-01T00:00:00", "KNWL") + "\n" + // malformed: count 2, lists 1
		row("1", "['DUBOIS-1A']", "[100]", "[160]", "#dev3#", "2021-03-01T00:00:00", "DUBOIS") + "\n"
}

func TestCSVSessions(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "20210301_sessions_final.csv")
	writeFile(t, path, sessionCSV(t))

	src, err := OpenSessionCSV(path, session.DefaultSchema)
	if err != nil {
		t.Fatalf("OpenSessionCSV: %v", err)
	}
	defer src.Close()

	first, err := src.Next()
	if err != nil {
		t.Fatalf("first row: %v", err)
	}
	if first.DeviceID != "#dev1#" || first.Building != "KNWL" || len(first.Stays) != 2 {
		t.Errorf("unexpected first session: %+v", first)
	}
	if first.Stays[1].EndMinute != 700.5 {
		t.Errorf("fractional end minute: expected 700.5, got %v", first.Stays[1].EndMinute)
	}

	_, err = src.Next()
	if !errors.Is(err, session.ErrMalformedRow) {
		t.Fatalf("second row: expected ErrMalformedRow, got %v", err)
	}

	third, err := src.Next()
	if err != nil {
		t.Fatalf("third row: %v", err)
	}
	if third.Building != "DUBOIS" {
		t.Errorf("unexpected third session: %+v", third)
	}

	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestCSVRows(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "20210301_finaltraj.csv")
	writeFile(t, path, "device,traj,starts,ends\n"+
		`#dev1#,"['KNWL']","[600]","[700]"`+"\n")

	src, err := OpenCSVRows(path)
	if err != nil {
		t.Fatalf("OpenCSVRows: %v", err)
	}
	defer src.Close()

	row, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if row[0] != "#dev1#" || row[1] != "['KNWL']" {
		t.Errorf("unexpected row: %v", row)
	}

	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
