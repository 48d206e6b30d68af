package model

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPredict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Instances) != 1 || len(req.Instances[0]) != 3 {
			t.Errorf("unexpected instances shape: %v", req.Instances)
		}
		json.NewEncoder(w).Encode(PredictResponse{
			Predictions: [][]float64{{42.5}},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, slog.Default())

	out, err := client.Predict(context.Background(), []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(out) != 1 || out[0] != 42.5 {
		t.Errorf("expected [42.5], got %v", out)
	}
}

func TestPredictServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, slog.Default())

	if _, err := client.Predict(context.Background(), []float64{1}); err == nil {
		t.Error("expected error for server failure, got nil")
	}
}

func TestPredictEmptyFeatures(t *testing.T) {
	client := NewHTTPClient("http://localhost:0", 0, slog.Default())

	if _, err := client.Predict(context.Background(), nil); err == nil {
		t.Error("expected error for empty feature vector, got nil")
	}
}

func TestPredictRowCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PredictResponse{
			Predictions: [][]float64{{1}, {2}},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, slog.Default())

	if _, err := client.Predict(context.Background(), []float64{1}); err == nil {
		t.Error("expected error for multi-row response, got nil")
	}
}
