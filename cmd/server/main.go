package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/electricity-price-prediction/internal/api"
	"github.com/irfndi/electricity-price-prediction/internal/api/handlers"
	"github.com/irfndi/electricity-price-prediction/internal/config"
	"github.com/irfndi/electricity-price-prediction/internal/database"
	"github.com/irfndi/electricity-price-prediction/internal/events"
	"github.com/irfndi/electricity-price-prediction/internal/logging"
	"github.com/irfndi/electricity-price-prediction/internal/metrics"
	"github.com/irfndi/electricity-price-prediction/internal/predictor"
	"github.com/irfndi/electricity-price-prediction/internal/services"
	"github.com/irfndi/electricity-price-prediction/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const predictionTable = "prediction_records"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.ConfigureLogrus(cfg.LogLevel)
	logger, shutdownLogger := newLogger(cfg)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownLogger(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown logger: %v\n", err)
		}
	}()

	ctx := context.Background()

	provider, err := telemetry.InitTelemetry(ctx, telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Exporter:       cfg.Telemetry.Exporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown telemetry: %v\n", err)
		}
	}()

	app, err := newApplication(ctx, cfg, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}
	defer app.Close()

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.router,
		ReadTimeout:       durationOr(cfg.Server.ReadTimeout, 10*time.Second),
		WriteTimeout:      durationOr(cfg.Server.WriteTimeout, 35*time.Second),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup(cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.LogShutdown(cfg.Telemetry.ServiceName, "signal received: "+sig.String())
	case err := <-serverErr:
		logger.LogShutdown(cfg.Telemetry.ServiceName, "server error")
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrus.Info("Server exited gracefully")
	return nil
}

// newLogger exports logs over OTLP when OTLP tracing is configured and writes
// JSON to stdout otherwise.
func newLogger(cfg *config.Config) (*logging.StandardLogger, func(context.Context) error) {
	if cfg.Telemetry.Enabled && cfg.Telemetry.Exporter == "otlp" {
		return logging.NewStandardOTLPLogger(logging.OTLPConfig{
			Enabled:        true,
			Endpoint:       cfg.Telemetry.OTLPEndpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Environment,
			LogLevel:       cfg.LogLevel,
		})
	}
	return logging.NewStandardLogger(cfg.LogLevel, cfg.Environment), func(context.Context) error { return nil }
}

// application is the wired HTTP stack plus the resources it must release.
type application struct {
	router  *gin.Engine
	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newApplication(ctx context.Context, cfg *config.Config, logger *logging.StandardLogger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*application, error) {
	app := &application{}

	store, dbHealth, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	m := metrics.NewMetrics(reg)
	client := predictor.NewClient(cfg.Predictor)
	opts := []services.Option{services.WithMetrics(m)}

	// Left as a nil interface when disabled so the health handler omits it.
	var redisHealth handlers.HealthChecker
	if cfg.Redis.Enabled {
		redisClient, err := database.NewRedisConnection(cfg.Redis)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, redisClient.Close)
		redisHealth = redisClient
		opts = append(opts, services.WithPublisher(events.NewRedisPublisher(redisClient, cfg.Redis.Channel)))
	}

	service := services.NewPredictionService(client, store, logger, opts...)

	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, api.Dependencies{
		ServiceName:    cfg.Telemetry.ServiceName,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
		Metrics:        m,
		Gatherer:       gatherer,
		Predictions:    handlers.NewPredictionHandler(service, logger),
		Health:         handlers.NewHealthHandler(dbHealth, redisHealth, client, cfg.Telemetry.ServiceVersion),
	})
	app.router = router

	return app, nil
}

// openStore connects the configured backend and makes sure its schema exists.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *logging.StandardLogger) (services.PredictionStore, handlers.HealthChecker, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgresConnection(ctx, cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repo := database.NewPredictionRepository(database.NewTracedDB(db.Pool, predictionTable, logger))
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return repo, db, db.Close, nil

	case config.DriverSQLite:
		store, err := database.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, nil, err
		}
		return store, store, store.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func durationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
