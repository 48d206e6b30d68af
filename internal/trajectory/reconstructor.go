// Package trajectory reconstructs the ordered sequence of a device's
// building stays for one day from the trajectory exports.
package trajectory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/crowdvisual/crowdvisual-platform/internal/refdata"
	"github.com/crowdvisual/crowdvisual-platform/internal/session"
	"github.com/crowdvisual/crowdvisual-platform/pkg/timecode"
)

// unknownBuilding is the sentinel the upstream pipeline writes when it
// could not attribute a stay to a building. Such stays never appear in
// trajectory output.
const unknownBuilding = "UNKNOWN"

// minStayMinutes filters sub-minute associations, which are churn noise
// rather than real presence.
const minStayMinutes = 1.0

// Trajectory export columns. The layout differs from the session exports:
// the list column holds building codes, not access-point names.
const (
	colDevice    = 0
	colBuildings = 1
	colStarts    = 2
	colEnds      = 3
)

// RowSource streams raw trajectory export rows. Implementations return
// io.EOF when the stream is exhausted.
type RowSource interface {
	Next() ([]string, error)
}

// Stay is one qualifying building visit in a device's day.
type Stay struct {
	Building    string              `json:"building"`
	Coordinates refdata.Coordinates `json:"coordinates"`
	StartTime   string              `json:"start_time"`
	EndTime     string              `json:"end_time"`
	TotalTime   float64             `json:"total_time"`
}

// Stats counts what a reconstruction scan saw.
type Stats struct {
	Rows             int
	MalformedRows    int
	UnknownBuildings int
}

// Reconstructor rebuilds device trajectories against the building
// reference table.
type Reconstructor struct {
	tables *refdata.Tables
	logger *slog.Logger
}

// NewReconstructor creates a reconstructor over the given reference tables.
func NewReconstructor(tables *refdata.Tables, logger *slog.Logger) *Reconstructor {
	return &Reconstructor{
		tables: tables,
		logger: logger.With("component", "trajectory"),
	}
}

// Device scans trajectory rows for one device id and emits the qualifying
// stays of each matching row as an independent ordered sub-list; the
// source may legitimately hold several rows per device per day. Stays
// shorter than one minute or attributed to the unknown-building sentinel
// are dropped; buildings missing from the reference table are skipped and
// counted, never fatal.
func (r *Reconstructor) Device(ctx context.Context, src RowSource, deviceID string) ([][]Stay, Stats, error) {
	var (
		stats  Stats
		result [][]Stay
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read trajectory row: %w", err)
		}

		if len(row) <= colEnds {
			stats.MalformedRows++
			continue
		}
		if row[colDevice] != deviceID {
			continue
		}
		stats.Rows++

		stays, ok := r.rowStays(row, &stats)
		if !ok {
			continue
		}
		result = append(result, stays)
	}

	r.logger.Debug("trajectory reconstructed",
		"device", deviceID,
		"rows", stats.Rows,
		"malformed_rows", stats.MalformedRows,
		"unknown_buildings", stats.UnknownBuildings)

	return result, stats, nil
}

// rowStays converts one matching row into its ordered qualifying stays.
// A row whose list lengths disagree is malformed and dropped whole.
func (r *Reconstructor) rowStays(row []string, stats *Stats) ([]Stay, bool) {
	buildings := session.SplitList(row[colBuildings])
	starts := session.SplitList(row[colStarts])
	ends := session.SplitList(row[colEnds])

	if len(starts) != len(buildings) || len(ends) != len(buildings) {
		stats.MalformedRows++
		return nil, false
	}

	stays := make([]Stay, 0, len(buildings))
	for n := range buildings {
		start, err := strconv.ParseFloat(starts[n], 64)
		if err != nil {
			stats.MalformedRows++
			return nil, false
		}
		end, err := strconv.ParseFloat(ends[n], 64)
		if err != nil {
			stats.MalformedRows++
			return nil, false
		}

		if end-start < minStayMinutes {
			continue
		}
		if buildings[n] == unknownBuilding {
			continue
		}

		coords, err := r.tables.Building(buildings[n])
		if err != nil {
			stats.UnknownBuildings++
			continue
		}

		stays = append(stays, Stay{
			Building:    buildings[n],
			Coordinates: coords,
			StartTime:   timecode.Render(start),
			EndTime:     timecode.Render(end),
			TotalTime:   end - start,
		})
	}

	return stays, true
}
