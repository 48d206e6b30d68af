package postgres

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus reports the state of the session store connection and its
// connection pool.
type HealthStatus struct {
	Connected       bool      `json:"connected"`
	Database        string    `json:"database"`
	PingLatencyMS   float64   `json:"ping_latency_ms,omitempty"`
	OpenConnections int       `json:"open_connections"`
	InUse           int       `json:"in_use"`
	Error           string    `json:"error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// HealthCheck pings the database and samples the pool. A failed ping is
// reported in the status rather than returned as an error, so probes can
// always render a response body.
func (c *PostgresClient) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Database:  c.config.PostgresDB,
		Timestamp: time.Now().UTC(),
	}

	if c.db == nil {
		status.Error = "not connected"
		return status, nil
	}

	start := time.Now()
	if err := c.db.PingContext(ctx); err != nil {
		status.Error = fmt.Sprintf("ping failed: %v", err)
		return status, nil
	}

	status.Connected = true
	status.PingLatencyMS = float64(time.Since(start).Microseconds()) / 1000.0

	stats := c.db.Stats()
	status.OpenConnections = stats.OpenConnections
	status.InUse = stats.InUse

	return status, nil
}
