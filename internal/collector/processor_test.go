package collector

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/crowdvisual/crowdvisual-platform/internal/session"
	"github.com/crowdvisual/crowdvisual-platform/internal/source"
	"github.com/crowdvisual/crowdvisual-platform/pkg/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseMessage(t *testing.T) {
	p := NewProcessor(quietLogger())

	payload := []byte(`{
		"device_id": "#a1b2#",
		"date": "2021-03-16",
		"access_points": ["KNWL-2A", "KNWL-3B"],
		"start_minutes": [600, 660.5],
		"end_minutes": [660, 700]
	}`)

	msg, err := p.ParseMessage("campus/sessions/KNWL", payload)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	rec := msg.Session
	if rec.Building != "KNWL" {
		t.Errorf("expected building KNWL, got %s", rec.Building)
	}
	if rec.DeviceID != "#a1b2#" {
		t.Errorf("expected device #a1b2#, got %s", rec.DeviceID)
	}
	if rec.DateKey != "20210316" {
		t.Errorf("expected date key 20210316, got %s", rec.DateKey)
	}
	if len(rec.Stays) != 2 {
		t.Fatalf("expected 2 stays, got %d", len(rec.Stays))
	}
	if rec.Stays[1].StartMinute != 660.5 {
		t.Errorf("expected second start 660.5, got %v", rec.Stays[1].StartMinute)
	}
}

func TestParseMessageRejections(t *testing.T) {
	p := NewProcessor(quietLogger())

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{
			name:    "wrong topic shape",
			topic:   "campus/other/KNWL",
			payload: `{"device_id": "d", "date": "2021-03-16", "access_points": ["A-1"], "start_minutes": [0], "end_minutes": [1]}`,
		},
		{
			name:    "invalid JSON",
			topic:   "campus/sessions/KNWL",
			payload: `{not json`,
		},
		{
			name:    "missing device",
			topic:   "campus/sessions/KNWL",
			payload: `{"date": "2021-03-16", "access_points": ["A-1"], "start_minutes": [0], "end_minutes": [1]}`,
		},
		{
			name:    "list length mismatch",
			topic:   "campus/sessions/KNWL",
			payload: `{"device_id": "d", "date": "2021-03-16", "access_points": ["A-1", "A-2"], "start_minutes": [0], "end_minutes": [1]}`,
		},
		{
			name:    "bad date",
			topic:   "campus/sessions/KNWL",
			payload: `{"device_id": "d", "date": "16.3.2021", "access_points": ["A-1"], "start_minutes": [0], "end_minutes": [1]}`,
		},
		{
			name:    "start minute out of range",
			topic:   "campus/sessions/KNWL",
			payload: `{"device_id": "d", "date": "2021-03-16", "access_points": ["A-1"], "start_minutes": [2000], "end_minutes": [2010]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.ParseMessage(tt.topic, []byte(tt.payload)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// Stored rows must read back through the resolver and the CSV source.
func TestStoreSessionRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	cfg := config.NewConfig()
	cfg.DataDir = dataDir

	storage := NewStorage(nil, nil, cfg, quietLogger())
	p := NewProcessor(quietLogger())

	payload := []byte(`{
		"device_id": "#dev9#",
		"date": "2021-03-16",
		"access_points": ["KNWL-2A"],
		"start_minutes": [600],
		"end_minutes": [675.5]
	}`)

	msg, err := p.ParseMessage("campus/sessions/KNWL", payload)
	if err != nil {
		t.Fatalf("ParseMessage failed: %v", err)
	}

	if err := storage.StoreSession(context.Background(), msg); err != nil {
		t.Fatalf("StoreSession failed: %v", err)
	}

	resolver := source.NewResolver(dataDir)

	// The record must land in both the building export and the campus export
	for _, building := range []string{"KNWL", ""} {
		path, err := resolver.SessionFile("20210316", building)
		if err != nil {
			t.Fatalf("SessionFile(%q) failed: %v", building, err)
		}

		src, err := source.OpenSessionCSV(path, session.DefaultSchema)
		if err != nil {
			t.Fatalf("OpenSessionCSV failed: %v", err)
		}

		rec, err := src.Next()
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if rec.DeviceID != "#dev9#" || rec.Building != "KNWL" || rec.DateKey != "20210316" {
			t.Errorf("unexpected record: %+v", rec)
		}
		if len(rec.Stays) != 1 || rec.Stays[0].EndMinute != 675.5 {
			t.Errorf("unexpected stays: %+v", rec.Stays)
		}

		if _, err := src.Next(); err != io.EOF {
			t.Errorf("expected EOF after single record, got %v", err)
		}
		src.Close()
	}
}
