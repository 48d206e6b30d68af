package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/lib/pq"

	"github.com/crowdvisual/crowdvisual-platform/internal/session"
	"github.com/crowdvisual/crowdvisual-platform/pkg/postgres"
)

// PostgresSessions streams session records from the sessions table, for
// deployments that ingest into Postgres instead of flat CSV exports. The
// row shape mirrors the CSV exports: parallel arrays of access points and
// start/end minutes.
type PostgresSessions struct {
	rows *sql.Rows
}

// OpenPostgresSessions queries the session records for a date. An empty
// building selects all buildings (the campus-wide scan). Arrival order is
// preserved via the insertion id, matching the first-seen ordering
// semantics of CSV scans.
func OpenPostgresSessions(ctx context.Context, client postgres.Client, dateKey, building string) (*PostgresSessions, error) {
	query := `
		SELECT device_id, building, date_key, access_points, start_minutes, end_minutes
		FROM sessions
		WHERE date_key = $1`
	args := []interface{}{dateKey}

	if building != "" {
		query += ` AND building = $2`
		args = append(args, building)
	}
	query += ` ORDER BY id`

	rows, err := client.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	return &PostgresSessions{rows: rows}, nil
}

// Next returns the next session record, io.EOF at end of the result set.
// Rows violating the list-length invariant surface as malformed, the same
// as CSV rows.
func (p *PostgresSessions) Next() (*session.Session, error) {
	if !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate sessions: %w", err)
		}
		return nil, io.EOF
	}

	var (
		deviceID string
		building string
		dateKey  string
		aps      []string
		starts   []float64
		ends     []float64
	)
	if err := p.rows.Scan(&deviceID, &building, &dateKey,
		pq.Array(&aps), pq.Array(&starts), pq.Array(&ends)); err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if len(starts) != len(aps) || len(ends) != len(aps) {
		return nil, fmt.Errorf("%w: %d access points but %d/%d minute entries",
			session.ErrMalformedRow, len(aps), len(starts), len(ends))
	}

	stays := make([]session.Stay, len(aps))
	for n := range aps {
		stays[n] = session.Stay{
			AccessPoint: aps[n],
			StartMinute: starts[n],
			EndMinute:   ends[n],
		}
	}

	return &session.Session{
		DeviceID: deviceID,
		Building: building,
		DateKey:  dateKey,
		Stays:    stays,
	}, nil
}

// Close releases the result set.
func (p *PostgresSessions) Close() error {
	return p.rows.Close()
}
