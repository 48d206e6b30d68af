package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/crowdvisual/crowdvisual-platform/internal/occupancy"
	"github.com/crowdvisual/crowdvisual-platform/internal/prediction"
	"github.com/crowdvisual/crowdvisual-platform/internal/refdata"
	"github.com/crowdvisual/crowdvisual-platform/internal/session"
	"github.com/crowdvisual/crowdvisual-platform/internal/source"
	"github.com/crowdvisual/crowdvisual-platform/internal/trajectory"
	"github.com/crowdvisual/crowdvisual-platform/pkg/config"
	"github.com/crowdvisual/crowdvisual-platform/pkg/postgres"
	"github.com/crowdvisual/crowdvisual-platform/pkg/redis"
	"github.com/crowdvisual/crowdvisual-platform/pkg/timecode"
)

const (
	defaultFloor = 1

	// TTL for cached occupancy responses
	occupancyCacheTTL = 5 * time.Minute
)

// Server holds the query engine and its collaborators
type Server struct {
	cfg           *config.Config
	tables        *refdata.Tables
	resolver      *source.Resolver
	aggregator    *occupancy.Aggregator
	reconstructor *trajectory.Reconstructor
	predictor     *prediction.Predictor
	postgres      postgres.Client
	cache         redis.Client
	logger        *slog.Logger
}

// NewServer creates the API server. The predictor, Postgres client and
// cache are optional; prediction endpoints return data_unavailable when
// no predictor is wired, and caching is skipped without a cache client.
func NewServer(cfg *config.Config, tables *refdata.Tables, predictor *prediction.Predictor, pgClient postgres.Client, cache redis.Client, logger *slog.Logger) *Server {
	return &Server{
		cfg:           cfg,
		tables:        tables,
		resolver:      source.NewResolver(cfg.DataDir),
		aggregator:    occupancy.NewAggregator(tables, logger),
		reconstructor: trajectory.NewReconstructor(tables, logger),
		predictor:     predictor,
		postgres:      pgClient,
		cache:         cache,
		logger:        logger,
	}
}

// sessionSource opens the session stream for a date, from the configured
// backend. Pass an empty building for the campus-wide export.
func (s *Server) sessionSource(ctx context.Context, dateKey, building string) (occupancy.Source, func() error, error) {
	if s.cfg.SessionBackend == "postgres" && s.postgres != nil {
		src, err := source.OpenPostgresSessions(ctx, s.postgres, dateKey, building)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	}

	path, err := s.resolver.SessionFile(dateKey, building)
	if err != nil {
		return nil, nil, err
	}
	src, err := source.OpenSessionCSV(path, session.DefaultSchema)
	if err != nil {
		return nil, nil, err
	}
	return src, src.Close, nil
}

// parseQueryTime extracts date key, calendar date and minute offset from
// the datetime path segment
func parseQueryTime(r *http.Request) (string, time.Time, int, error) {
	dateKey, minute, err := timecode.Parse(mux.Vars(r)["datetime"])
	if err != nil {
		return "", time.Time{}, 0, err
	}
	date, err := timecode.ParseDateKey(dateKey)
	if err != nil {
		return "", time.Time{}, 0, err
	}
	return dateKey, date, minute, nil
}

// parseGranularity reads the optional ?granularity query parameter
func parseGranularity(r *http.Request) (occupancy.Granularity, error) {
	return occupancy.ParseGranularity(r.URL.Query().Get("granularity"))
}

// cachedJSON serves a cached occupancy response, or computes, caches and
// serves it. Cache failures fall through to computation.
func (s *Server) cachedJSON(w http.ResponseWriter, r *http.Request, key string, compute func() (any, error)) {
	if s.cache != nil {
		if body, err := s.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(body))
			return
		}
	}

	result, err := compute()
	if err != nil {
		writeError(w, r, err)
		return
	}

	if s.cache != nil {
		if body, err := jsonBody(result); err == nil {
			if err := s.cache.Set(r.Context(), key, body, occupancyCacheTTL); err != nil {
				s.logger.Warn("Failed to cache response", "key", key, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCampus serves GET /v1/campus/{datetime}
func (s *Server) handleCampus(w http.ResponseWriter, r *http.Request) {
	dateKey, _, minute, err := parseQueryTime(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	gran, err := parseGranularity(r)
	if err != nil {
		writeBadRequest(w, r, "invalid_granularity", err.Error())
		return
	}

	key := redis.OccupancyCacheKey("campus:"+gran.String(), dateKey, minute)
	s.cachedJSON(w, r, key, func() (any, error) {
		src, closeSrc, err := s.sessionSource(r.Context(), dateKey, "")
		if err != nil {
			return nil, err
		}
		defer closeSrc()

		entries, _, err := s.aggregator.Campus(r.Context(), src, occupancy.Window{Reference: minute, Granularity: gran})
		if err != nil {
			return nil, err
		}
		return entries, nil
	})
}

// handleBuilding serves GET /v1/buildings/{building}/{datetime}
func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	building := mux.Vars(r)["building"]
	if !s.tables.HasBuilding(building) {
		writeError(w, r, fmt.Errorf("%w: %s", refdata.ErrUnknownBuilding, building))
		return
	}

	dateKey, _, minute, err := parseQueryTime(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	gran, err := parseGranularity(r)
	if err != nil {
		writeBadRequest(w, r, "invalid_granularity", err.Error())
		return
	}

	key := redis.OccupancyCacheKey("building:"+building+":"+gran.String(), dateKey, minute)
	s.cachedJSON(w, r, key, func() (any, error) {
		src, closeSrc, err := s.sessionSource(r.Context(), dateKey, building)
		if err != nil {
			return nil, err
		}
		defer closeSrc()

		report, _, err := s.aggregator.Building(r.Context(), src, building, occupancy.Window{Reference: minute, Granularity: gran})
		if err != nil {
			return nil, err
		}
		return report, nil
	})
}

// handleAccessPoints serves GET /v1/buildings/{building}/access-points/{datetime}
func (s *Server) handleAccessPoints(w http.ResponseWriter, r *http.Request) {
	building := mux.Vars(r)["building"]
	if !s.tables.HasAccessPointBuilding(building) {
		writeError(w, r, fmt.Errorf("%w: %s", refdata.ErrUnknownBuilding, building))
		return
	}

	dateKey, _, minute, err := parseQueryTime(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	gran, err := parseGranularity(r)
	if err != nil {
		writeBadRequest(w, r, "invalid_granularity", err.Error())
		return
	}

	floor := defaultFloor
	if v := r.URL.Query().Get("level"); v != "" {
		floor, err = strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, r, "invalid_level", fmt.Sprintf("invalid floor level: %s", v))
			return
		}
	}

	src, closeSrc, err := s.sessionSource(r.Context(), dateKey, building)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer closeSrc()

	entries, _, err := s.aggregator.AccessPoints(r.Context(), src, building, floor, occupancy.Window{Reference: minute, Granularity: gran})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// trajectoryResponse wraps the per-row stay lists for one device
type trajectoryResponse struct {
	DeviceID     string              `json:"device_id"`
	Date         string              `json:"date"`
	Trajectories [][]trajectory.Stay `json:"trajectories"`
}

// handleTrajectory serves GET /v1/trajectories/{device}/{date}.
// The path carries the bare device id; exports wrap ids in # markers.
func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	dateKey, _, err := timecode.Parse(vars["date"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	path, err := s.resolver.TrajectoryFile(dateKey)
	if err != nil {
		writeError(w, r, err)
		return
	}

	src, err := source.OpenCSVRows(path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer src.Close()

	deviceID := fmt.Sprintf("#%s#", vars["device"])

	stays, _, err := s.reconstructor.Device(r.Context(), src, deviceID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, trajectoryResponse{
		DeviceID:     deviceID,
		Date:         dateKey,
		Trajectories: stays,
	})
}

// predictionResponse is the body for single-building predictions
type predictionResponse struct {
	Building           string    `json:"building"`
	PredictedOccupancy []float64 `json:"predicted_occupancy"`
}

// handlePrediction serves GET /v1/predictions/{datetime}?building=
func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request) {
	if s.predictor == nil {
		writeError(w, r, source.ErrDataUnavailable)
		return
	}

	building := r.URL.Query().Get("building")
	if building == "" {
		writeBadRequest(w, r, "invalid_building", "building query parameter is required")
		return
	}

	_, date, minute, err := parseQueryTime(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	values, err := s.predictor.Building(r.Context(), date, minute, building)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, predictionResponse{
		Building:           building,
		PredictedOccupancy: values,
	})
}

// handleCampusPredictions serves GET /v1/predictions/campus/{datetime}
func (s *Server) handleCampusPredictions(w http.ResponseWriter, r *http.Request) {
	if s.predictor == nil {
		writeError(w, r, source.ErrDataUnavailable)
		return
	}

	_, date, minute, err := parseQueryTime(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	estimates, err := s.predictor.Campus(r.Context(), date, minute)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, estimates)
}
