package collector

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/crowdvisual/crowdvisual-platform/internal/session"
	"github.com/crowdvisual/crowdvisual-platform/pkg/config"
	"github.com/crowdvisual/crowdvisual-platform/pkg/postgres"
	"github.com/crowdvisual/crowdvisual-platform/pkg/redis"
)

const (
	// TTL for per-building ingest metadata
	ingestMetaTTL = 24 * time.Hour

	// TTL for per-day ingest counters
	ingestCountTTL = 7 * 24 * time.Hour

	sessionsTotalDir  = "Sessions_Total"
	sessionsDirPrefix = "Sessions_"
	sessionSuffix     = "_sessions_final.csv"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id            BIGSERIAL PRIMARY KEY,
	device_id     TEXT NOT NULL,
	building      TEXT NOT NULL,
	date_key      TEXT NOT NULL,
	access_points TEXT[] NOT NULL,
	start_minutes DOUBLE PRECISION[] NOT NULL,
	end_minutes   DOUBLE PRECISION[] NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS sessions_date_key_idx ON sessions (date_key, building);
`

// Storage persists validated session records to the CSV exports, and
// optionally to Postgres, with ingest counters in Redis
type Storage struct {
	dataDir  string
	redis    redis.Client
	postgres postgres.Client
	schema   session.Schema
	logger   *slog.Logger
}

// NewStorage creates a new storage handler. The Postgres client may be
// nil when flat-file ingest is sufficient.
func NewStorage(redisClient redis.Client, pgClient postgres.Client, cfg *config.Config, logger *slog.Logger) *Storage {
	return &Storage{
		dataDir:  cfg.DataDir,
		redis:    redisClient,
		postgres: pgClient,
		schema:   session.DefaultSchema,
		logger:   logger,
	}
}

// EnsureSchema creates the sessions table when Postgres ingest is enabled
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if s.postgres == nil {
		return nil
	}
	if _, err := s.postgres.Exec(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// StoreSession appends the record to the building export and the
// campus-wide export, then mirrors it to Postgres when enabled
func (s *Storage) StoreSession(ctx context.Context, msg *SessionMessage) error {
	rec := msg.Session

	row := s.buildRow(rec)

	buildingDir := sessionsDirPrefix + rec.Building
	if err := s.appendRow(buildingDir, rec.DateKey, row); err != nil {
		return fmt.Errorf("failed to append building export: %w", err)
	}
	if err := s.appendRow(sessionsTotalDir, rec.DateKey, row); err != nil {
		return fmt.Errorf("failed to append campus export: %w", err)
	}

	if s.postgres != nil {
		if err := s.insertSession(ctx, rec); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
	}

	s.recordIngest(ctx, msg)

	return nil
}

// buildRow renders a session as a CSV export row. List columns use the
// bracketed quoted form the export pipeline emits, so the parser reads
// back what the collector writes.
func (s *Storage) buildRow(rec *session.Session) []string {
	row := make([]string, s.rowWidth())
	row[s.schema.RoomCount] = strconv.Itoa(len(rec.Stays))

	aps := make([]string, len(rec.Stays))
	starts := make([]string, len(rec.Stays))
	ends := make([]string, len(rec.Stays))
	for i, stay := range rec.Stays {
		aps[i] = fmt.Sprintf("'%s'", stay.AccessPoint)
		starts[i] = strconv.FormatFloat(stay.StartMinute, 'f', -1, 64)
		ends[i] = strconv.FormatFloat(stay.EndMinute, 'f', -1, 64)
	}
	row[s.schema.AccessPoints] = "[" + strings.Join(aps, ", ") + "]"
	row[s.schema.StartList] = "[" + strings.Join(starts, ", ") + "]"
	row[s.schema.EndList] = "[" + strings.Join(ends, ", ") + "]"

	row[s.schema.DeviceID] = rec.DeviceID
	row[s.schema.Date] = rec.DisplayDate()
	row[s.schema.Building] = rec.Building

	return row
}

// appendRow appends one row to the dated export file, creating the
// directory and header on first write
func (s *Storage) appendRow(dir, dateKey string, row []string) error {
	exportDir := filepath.Join(s.dataDir, dir)
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory %s: %w", exportDir, err)
	}

	path := filepath.Join(exportDir, dateKey+sessionSuffix)

	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open export file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(s.headerRow()); err != nil {
			return fmt.Errorf("failed to write export header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write export row: %w", err)
	}
	w.Flush()

	return w.Error()
}

// rowWidth returns the export row width implied by the schema
func (s *Storage) rowWidth() int {
	width := 0
	for _, col := range []int{
		s.schema.RoomCount, s.schema.AccessPoints, s.schema.StartList,
		s.schema.EndList, s.schema.DeviceID, s.schema.Date, s.schema.Building,
	} {
		if col+1 > width {
			width = col + 1
		}
	}
	return width
}

// headerRow produces a header matching the export row width
func (s *Storage) headerRow() []string {
	header := make([]string, s.rowWidth())
	for i := range header {
		header[i] = fmt.Sprintf("col%d", i)
	}
	header[s.schema.RoomCount] = "room_count"
	header[s.schema.AccessPoints] = "access_points"
	header[s.schema.StartList] = "start_minutes"
	header[s.schema.EndList] = "end_minutes"
	header[s.schema.DeviceID] = "device_id"
	header[s.schema.Date] = "date"
	header[s.schema.Building] = "building"
	return header
}

// insertSession mirrors the record into the sessions table
func (s *Storage) insertSession(ctx context.Context, rec *session.Session) error {
	aps := make([]string, len(rec.Stays))
	starts := make([]float64, len(rec.Stays))
	ends := make([]float64, len(rec.Stays))
	for i, stay := range rec.Stays {
		aps[i] = stay.AccessPoint
		starts[i] = stay.StartMinute
		ends[i] = stay.EndMinute
	}

	_, err := s.postgres.Exec(ctx,
		`INSERT INTO sessions (device_id, building, date_key, access_points, start_minutes, end_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.DeviceID, rec.Building, rec.DateKey,
		pq.Array(aps), pq.Array(starts), pq.Array(ends))
	return err
}

// recordIngest updates the Redis ingest counters and metadata.
// Counter failures are logged but never fail the ingest.
func (s *Storage) recordIngest(ctx context.Context, msg *SessionMessage) {
	if s.redis == nil {
		return
	}

	rec := msg.Session

	countKey := redis.IngestCountKey(rec.DateKey)
	if _, err := s.redis.HIncrBy(ctx, countKey, rec.Building, 1); err != nil {
		s.logger.Warn("Failed to increment ingest counter", "building", rec.Building, "error", err)
	} else if err := s.redis.Expire(ctx, countKey, ingestCountTTL); err != nil {
		s.logger.Warn("Failed to set TTL on ingest counter", "building", rec.Building, "error", err)
	}

	metaKey := redis.IngestMetaKey(rec.Building)
	if err := s.redis.HSet(ctx, metaKey, "last_ingest", msg.CollectedAt.Format(time.RFC3339Nano)); err != nil {
		s.logger.Warn("Failed to update ingest metadata", "building", rec.Building, "error", err)
	}
	if err := s.redis.HSet(ctx, metaKey, "last_date_key", rec.DateKey); err != nil {
		s.logger.Warn("Failed to update ingest metadata", "building", rec.Building, "error", err)
	}
	if err := s.redis.Expire(ctx, metaKey, ingestMetaTTL); err != nil {
		s.logger.Warn("Failed to set TTL on ingest metadata", "building", rec.Building, "error", err)
	}
}
