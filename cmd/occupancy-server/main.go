package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crowdvisual/crowdvisual-platform/internal/api"
	"github.com/crowdvisual/crowdvisual-platform/internal/prediction"
	"github.com/crowdvisual/crowdvisual-platform/internal/refdata"
	"github.com/crowdvisual/crowdvisual-platform/pkg/config"
	"github.com/crowdvisual/crowdvisual-platform/pkg/health"
	"github.com/crowdvisual/crowdvisual-platform/pkg/model"
	"github.com/crowdvisual/crowdvisual-platform/pkg/postgres"
	"github.com/crowdvisual/crowdvisual-platform/pkg/redis"
)

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.ServiceName = "occupancy-server"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting crowdvisual occupancy server",
		"service_name", cfg.ServiceName,
		"api_port", cfg.APIPort,
		"data_dir", cfg.DataDir,
		"session_backend", cfg.SessionBackend,
		"log_level", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Load reference tables once at startup
	tables, err := refdata.Load(cfg.BuildingsPath, cfg.AccessPointsPath)
	if err != nil {
		logger.Error("Failed to load reference tables", "error", err)
		os.Exit(1)
	}
	logger.Info("Reference tables loaded", "buildings", tables.BuildingCount())

	// Prediction wiring: scaler params + model server client. The query
	// endpoints work without it; prediction endpoints report unavailable.
	var predictor *prediction.Predictor
	scaler, err := prediction.LoadScaler(cfg.ScalerPath)
	if err != nil {
		logger.Warn("Prediction disabled: failed to load scaler params", "path", cfg.ScalerPath, "error", err)
	} else {
		invoker := model.NewHTTPClient(cfg.ModelEndpoint, time.Duration(cfg.ModelTimeoutSec)*time.Second, logger)
		predictor, err = prediction.NewPredictor(tables, scaler, invoker, logger)
		if err != nil {
			logger.Error("Failed to build predictor", "error", err)
			os.Exit(1)
		}
	}

	// Optional Postgres session backend
	var pgClient postgres.Client
	if cfg.SessionBackend == "postgres" {
		pgClient = postgres.NewClient(cfg, logger)
		if err := pgClient.Connect(ctx); err != nil {
			logger.Error("Failed to connect to Postgres", "error", err)
			os.Exit(1)
		}
	}

	// Redis response cache; queries fall through to full scans without it
	var cache redis.Client
	if cfg.RedisHost != "" {
		cache = redis.NewClient(cfg, logger)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("Response cache disabled: Redis unreachable", "error", err)
			cache = nil
		}
	}

	server := api.NewServer(cfg, tables, predictor, pgClient, cache, logger)
	router := api.NewRouter(server, health.NewChecker(nil, cache, pgClient, logger))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP API server", "port", cfg.APIPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-serverErr:
		logger.Error("HTTP server failed", "error", err)
	}

	// Graceful shutdown
	logger.Info("Initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", "error", err)
	}

	if pgClient != nil {
		if err := pgClient.Disconnect(); err != nil {
			logger.Error("Error disconnecting Postgres", "error", err)
		}
	}
	if cache != nil {
		if err := cache.Close(); err != nil {
			logger.Error("Error closing Redis connection", "error", err)
		}
	}

	logger.Info("Occupancy server shutdown complete")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
