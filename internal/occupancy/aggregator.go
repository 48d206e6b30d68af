package occupancy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/crowdvisual/crowdvisual-platform/internal/refdata"
	"github.com/crowdvisual/crowdvisual-platform/internal/session"
)

// Source streams parsed session records for one scan. Implementations
// return io.EOF when the stream is exhausted.
type Source interface {
	Next() (*session.Session, error)
}

// ScanStats counts what a scan saw, for observability. Malformed rows and
// unresolvable floors are skipped, never fatal, but they are reported.
type ScanStats struct {
	Rows               int
	MalformedRows      int
	UnresolvableFloors int
}

// CampusEntry is one building's occupancy count in a campus-wide query.
// Entries appear in first-seen scan order.
type CampusEntry struct {
	Date            string              `json:"date"`
	Building        string              `json:"building"`
	Coordinates     refdata.Coordinates `json:"coordinates"`
	ConnectionCount int                 `json:"connection_count"`
}

// BuildingReport is a single building's occupancy summary. Average and
// standard deviation of per-device occupied minutes are computed only at
// hour granularity; Floors is the maximum floor level seen across all of
// the building's rows, window match or not.
type BuildingReport struct {
	Building          string              `json:"building"`
	Coordinates       refdata.Coordinates `json:"coordinates"`
	ConnectionCount   int                 `json:"connection_count"`
	Average           *float64            `json:"average,omitempty"`
	StandardDeviation *float64            `json:"standard_deviation,omitempty"`
	Floors            int                 `json:"no_floors"`
}

// AccessPointEntry is one access point's occupancy count on a floor.
// Access points absent from the reference table keep (0,0) coordinates.
type AccessPointEntry struct {
	Date            string              `json:"date"`
	AccessPoint     string              `json:"access_point"`
	Coordinates     refdata.Coordinates `json:"coordinates"`
	ConnectionCount int                 `json:"connection_count"`
}

// Aggregator folds session scans into per-key occupancy results. It holds
// only immutable reference data; every query builds its own transient
// dedup state, so one Aggregator serves concurrent queries.
type Aggregator struct {
	tables *refdata.Tables
	logger *slog.Logger
}

// NewAggregator creates an aggregator over the given reference tables.
func NewAggregator(tables *refdata.Tables, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		tables: tables,
		logger: logger.With("component", "aggregator"),
	}
}

// Campus scans sessions and counts connections per building across the
// whole campus. At hour granularity a device increments a building's count
// at most once; at minute granularity every matching session counts.
// Buildings missing from the reference table are skipped row-by-row.
func (a *Aggregator) Campus(ctx context.Context, src Source, win Window) ([]CampusEntry, ScanStats, error) {
	var (
		stats   ScanStats
		entries []CampusEntry
		index   = make(map[string]int)          // building -> entries offset
		counted = make(map[string]map[string]bool) // building -> devices already counted
	)

	err := a.scan(ctx, src, &stats, func(sess *session.Session) error {
		if !a.tables.HasBuilding(sess.Building) {
			return nil
		}

		start, end := sess.Envelope()
		if !win.Matches(start, end) {
			return nil
		}

		if win.Granularity == GranularityHour {
			devices := counted[sess.Building]
			if devices == nil {
				devices = make(map[string]bool)
				counted[sess.Building] = devices
			}
			if devices[sess.DeviceID] {
				return nil
			}
			devices[sess.DeviceID] = true
		}

		i, ok := index[sess.Building]
		if !ok {
			coords, _ := a.tables.Building(sess.Building)
			i = len(entries)
			index[sess.Building] = i
			entries = append(entries, CampusEntry{
				Date:        sess.DisplayDate(),
				Building:    sess.Building,
				Coordinates: coords,
			})
		}
		entries[i].ConnectionCount++
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	a.logScan("campus", win, stats)
	return entries, stats, nil
}

// Building scans sessions for one building and summarizes its occupancy.
// The whole query fails with refdata.ErrUnknownBuilding when the building
// is not in the reference table.
func (a *Aggregator) Building(ctx context.Context, src Source, building string, win Window) (*BuildingReport, ScanStats, error) {
	coords, err := a.tables.Building(building)
	if err != nil {
		return nil, ScanStats{}, err
	}

	var (
		stats     ScanStats
		report    = BuildingReport{Building: building, Coordinates: coords}
		durations []float64
		counted   = make(map[string]bool)
	)

	err = a.scan(ctx, src, &stats, func(sess *session.Session) error {
		if sess.Building != building {
			return nil
		}

		// Max floor is tracked across every row of the building,
		// regardless of whether the session matches the window.
		for _, stay := range sess.Stays {
			level, err := session.FloorLevel(stay.AccessPoint)
			if err != nil {
				stats.UnresolvableFloors++
				continue
			}
			if level > report.Floors {
				report.Floors = level
			}
		}

		start, end := sess.Envelope()
		if !win.Matches(start, end) {
			return nil
		}

		if win.Granularity == GranularityHour {
			durations = append(durations, win.OverlapDuration(start, end))
			if !counted[sess.DeviceID] {
				counted[sess.DeviceID] = true
				report.ConnectionCount++
			}
			return nil
		}

		report.ConnectionCount++
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	if win.Granularity == GranularityHour {
		avg := round1(mean(durations))
		std := round1(sampleStdDev(durations))
		report.Average = &avg
		report.StandardDeviation = &std
	}

	a.logScan("building", win, stats)
	return &report, stats, nil
}

// AccessPoints scans one building's sessions and counts connections per
// access point on the requested floor. Matching here is per stay, not per
// session envelope. Stays whose access-point name yields no floor digit are
// skipped and counted in the scan stats.
func (a *Aggregator) AccessPoints(ctx context.Context, src Source, building string, floor int, win Window) ([]AccessPointEntry, ScanStats, error) {
	if !a.tables.HasAccessPointBuilding(building) {
		return nil, ScanStats{}, fmt.Errorf("%w: %s", refdata.ErrUnknownBuilding, building)
	}

	var (
		stats   ScanStats
		entries []AccessPointEntry
		index   = make(map[string]int)
		counted = make(map[string]map[string]bool) // access point -> devices
	)

	err := a.scan(ctx, src, &stats, func(sess *session.Session) error {
		if sess.Building != building {
			return nil
		}

		for _, stay := range sess.Stays {
			level, err := session.FloorLevel(stay.AccessPoint)
			if err != nil {
				stats.UnresolvableFloors++
				continue
			}

			if !win.Matches(stay.StartMinute, stay.EndMinute) {
				continue
			}
			if level != floor {
				continue
			}

			if win.Granularity == GranularityHour {
				devices := counted[stay.AccessPoint]
				if devices == nil {
					devices = make(map[string]bool)
					counted[stay.AccessPoint] = devices
				}
				if devices[sess.DeviceID] {
					continue
				}
				devices[sess.DeviceID] = true
			}

			i, ok := index[stay.AccessPoint]
			if !ok {
				// Unknown access points still aggregate, at (0,0).
				coords, err := a.tables.AccessPoint(building, stay.AccessPoint)
				if err != nil {
					coords = refdata.Coordinates{}
				}
				i = len(entries)
				index[stay.AccessPoint] = i
				entries = append(entries, AccessPointEntry{
					Date:        sess.DisplayDate(),
					AccessPoint: stay.AccessPoint,
					Coordinates: coords,
				})
			}
			entries[i].ConnectionCount++
		}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	a.logScan("access_point", win, stats)
	return entries, stats, nil
}

// scan drives a single sequential pass over the source, skipping malformed
// rows and honoring context cancellation between rows.
func (a *Aggregator) scan(ctx context.Context, src Source, stats *ScanStats, fold func(*session.Session) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sess, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, session.ErrMalformedRow) {
			stats.MalformedRows++
			continue
		}
		if err != nil {
			return fmt.Errorf("read session: %w", err)
		}

		stats.Rows++
		if err := fold(sess); err != nil {
			return err
		}
	}
}

func (a *Aggregator) logScan(mode string, win Window, stats ScanStats) {
	a.logger.Debug("scan complete",
		"mode", mode,
		"granularity", win.Granularity.String(),
		"reference_minute", win.Reference,
		"rows", stats.Rows,
		"malformed_rows", stats.MalformedRows,
		"unresolvable_floors", stats.UnresolvableFloors)
}
