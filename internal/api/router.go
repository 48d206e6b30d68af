package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/crowdvisual/crowdvisual-platform/pkg/health"
)

// NewRouter wires the query endpoints, health probe and middleware
func NewRouter(s *Server, checker *health.Checker) *mux.Router {
	r := mux.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(s.logger))

	r.HandleFunc("/healthz", checker.HandlerFunc()).Methods(http.MethodGet)
	r.HandleFunc("/healthz/detailed", checker.DetailedHandlerFunc()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/campus/{datetime}", s.handleCampus).Methods(http.MethodGet)
	v1.HandleFunc("/buildings/{building}/access-points/{datetime}", s.handleAccessPoints).Methods(http.MethodGet)
	v1.HandleFunc("/buildings/{building}/{datetime}", s.handleBuilding).Methods(http.MethodGet)
	v1.HandleFunc("/trajectories/{device}/{date}", s.handleTrajectory).Methods(http.MethodGet)
	v1.HandleFunc("/predictions/campus/{datetime}", s.handleCampusPredictions).Methods(http.MethodGet)
	v1.HandleFunc("/predictions/{datetime}", s.handlePrediction).Methods(http.MethodGet)

	return r
}
