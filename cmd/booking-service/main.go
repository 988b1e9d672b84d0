package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/draftea/booking-system/booking-service/config"
	"github.com/draftea/booking-system/booking-service/handlers"
	"github.com/draftea/booking-system/shared/logging"
	"github.com/draftea/booking-system/shared/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.ReadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.ServiceName)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting service",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("broker", cfg.Broker.Driver),
		zap.String("database", cfg.Database.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies
	deps, err := config.BuildDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build dependencies", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("error closing dependencies", zap.Error(err))
		}
	}()

	workerCtx := logging.WithLogger(ctx, logger)
	if deps.Telemetry != nil {
		workerCtx = telemetry.WithTelemetry(workerCtx, deps.Telemetry)
	}

	// Start saga workers
	if err := deps.EventSubscriber.Subscribe(workerCtx, deps.EventRouter); err != nil {
		logger.Fatal("failed to start event subscriber", zap.Error(err))
	}

	// Start recovery sweeps
	if deps.SweepScheduler != nil {
		deps.SweepScheduler.Start(workerCtx)
	}

	// Setup and start HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("service stopped")
}

func setupRouter(deps *config.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(telemetry.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Telemetry middleware (inject telemetry into context)
	if deps.Telemetry != nil {
		r.Use(telemetry.Middleware(deps.Telemetry))
	}

	r.Get("/health", handlers.NewHealthHandler(deps.HealthCheckers...))

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", handlers.NewMetricsHandler())

	// Register booking routes
	deps.BookingHandlers.RegisterRoutes(r)

	return r
}
