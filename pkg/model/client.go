package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Client is the interface for the occupancy prediction model server
type Client interface {
	// Predict sends an encoded feature vector and returns the model output
	Predict(ctx context.Context, features []float64) ([]float64, error)

	// Health checks if the model server is available
	Health(ctx context.Context) error
}

// PredictRequest represents a request to the model server
type PredictRequest struct {
	Instances [][]float64 `json:"instances"`
}

// PredictResponse represents the model server's response
type PredictResponse struct {
	Predictions [][]float64 `json:"predictions"`
}

// httpClient implements Client against an HTTP model server
type httpClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a new model client for the given endpoint URL
func NewHTTPClient(endpoint string, timeout time.Duration, logger *slog.Logger) Client {
	return &httpClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Predict sends a feature vector to the model server and returns the output row
func (c *httpClient) Predict(ctx context.Context, features []float64) ([]float64, error) {
	startTime := time.Now()

	if len(features) == 0 {
		return nil, fmt.Errorf("feature vector is empty")
	}

	reqBody, err := json.Marshal(PredictRequest{Instances: [][]float64{features}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	c.logger.Debug("Model request", "feature_count", len(features))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(body))
	}

	var predResp PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&predResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(predResp.Predictions) != 1 {
		return nil, fmt.Errorf("model server returned %d prediction rows, expected 1", len(predResp.Predictions))
	}

	c.logger.Debug("Model response received",
		"duration_ms", time.Since(startTime).Milliseconds(),
		"output_size", len(predResp.Predictions[0]))

	return predResp.Predictions[0], nil
}

// Health checks if the model server is available
func (c *httpClient) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// MockClient is a mock model client for testing
type MockClient struct {
	PredictFunc func(ctx context.Context, features []float64) ([]float64, error)
	HealthFunc  func(ctx context.Context) error
}

func (m *MockClient) Predict(ctx context.Context, features []float64) ([]float64, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, features)
	}
	return []float64{0}, nil
}

func (m *MockClient) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}
