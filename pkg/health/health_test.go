package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/crowdvisual/crowdvisual-platform/pkg/mqtt"
	"github.com/crowdvisual/crowdvisual-platform/pkg/postgres"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type fakeMQTT struct {
	connected bool
}

func (f *fakeMQTT) Connect(ctx context.Context) error { return nil }
func (f *fakeMQTT) Disconnect()                       {}
func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	return nil
}
func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload []byte) error {
	return nil
}
func (f *fakeMQTT) IsConnected() bool { return f.connected }

type fakePostgres struct {
	status *postgres.HealthStatus
}

func (f *fakePostgres) Connect(ctx context.Context) error { return nil }
func (f *fakePostgres) Disconnect() error                 { return nil }
func (f *fakePostgres) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (f *fakePostgres) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (f *fakePostgres) Ping(ctx context.Context) error { return nil }
func (f *fakePostgres) HealthCheck(ctx context.Context) (*postgres.HealthStatus, error) {
	return f.status, nil
}

func probeDetailed(t *testing.T, checker *Checker) (int, HealthResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
	rec := httptest.NewRecorder()
	checker.DetailedHandlerFunc()(rec, req)

	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec.Code, body
}

func TestHandlerFuncAlwaysOK(t *testing.T) {
	checker := NewChecker(nil, nil, nil, quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	checker.HandlerFunc()(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("expected status ok, got %q", body.Status)
	}
	if body.Services != nil {
		t.Errorf("liveness probe should not report services")
	}
}

func TestDetailedHandlerHealthy(t *testing.T) {
	checker := NewChecker(
		&fakeMQTT{connected: true},
		nil,
		&fakePostgres{status: &postgres.HealthStatus{Connected: true, Database: "crowdvisual"}},
		quietLogger(),
	)

	code, body := probeDetailed(t, checker)

	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %q", body.Status)
	}
	if body.Services.MQTT != "connected" {
		t.Errorf("expected mqtt connected, got %q", body.Services.MQTT)
	}
	if body.Services.Postgres == nil || !body.Services.Postgres.Connected {
		t.Errorf("expected connected postgres status, got %+v", body.Services.Postgres)
	}
}

func TestDetailedHandlerDegraded(t *testing.T) {
	tests := []struct {
		name    string
		checker *Checker
	}{
		{
			"mqtt disconnected",
			NewChecker(&fakeMQTT{connected: false}, nil, nil, quietLogger()),
		},
		{
			"postgres disconnected",
			NewChecker(nil, nil, &fakePostgres{
				status: &postgres.HealthStatus{Connected: false, Error: "ping failed"},
			}, quietLogger()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := probeDetailed(t, tt.checker)
			if code != http.StatusServiceUnavailable {
				t.Fatalf("expected 503, got %d", code)
			}
			if body.Status != "degraded" {
				t.Errorf("expected degraded, got %q", body.Status)
			}
		})
	}
}
