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
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/pavement/pavement-api/internal/aggregation"
	"github.com/pavement/pavement-api/internal/api"
	"github.com/pavement/pavement-api/internal/api/handlers"
	"github.com/pavement/pavement-api/internal/cache"
	"github.com/pavement/pavement-api/internal/config"
	"github.com/pavement/pavement-api/internal/database"
	"github.com/pavement/pavement-api/internal/logging"
	"github.com/pavement/pavement-api/internal/middleware"
	"github.com/pavement/pavement-api/internal/services"
	"github.com/pavement/pavement-api/internal/telemetry"
)

const slowQueryThreshold = 500 * time.Millisecond

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize telemetry first
	if err := telemetry.InitTelemetry(telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		Exporter:       cfg.Telemetry.Exporter,
	}); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetry.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown telemetry: %v\n", err)
		}
	}()

	logger, otlpLogger := logging.NewStandardOTLPLogger(logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.Exporter == "otlp",
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	})
	if otlpLogger != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otlpLogger.Shutdown(ctx)
		}()
	}

	// Create logrus logger for services and repositories
	logrusLogger := logging.NewLogrusLogger(cfg.LogLevel)

	ctx := context.Background()

	// Initialize database
	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis only backs the response cache; run without it when unavailable.
	var redisChecker handlers.HealthChecker
	responseCache := cache.NewResultCache(nil, 0, logrusLogger)
	if cfg.Redis.Enabled {
		redis, err := database.NewRedisConnection(ctx, cfg.Redis)
		if err != nil {
			logrusLogger.WithError(err).Warn("Redis unavailable, response cache disabled")
		} else {
			defer redis.Close()
			redisChecker = redis
			ttl, err := cfg.Parking.CacheTTLDuration()
			if err != nil {
				return err
			}
			responseCache = cache.NewResultCache(redis.Client, ttl, logrusLogger)
		}
	}
	defer responseCache.LogStats()

	calendar, err := cfg.Parking.Calendar()
	if err != nil {
		return err
	}
	defaultRange, err := cfg.Parking.DefaultRange()
	if err != nil {
		return err
	}

	repo := database.NewTransactionRepository(
		database.NewTracedQuerier(db.Pool, logrusLogger, slowQueryThreshold),
		logrusLogger,
	)
	analytics := services.NewParkingAnalyticsService(
		repo,
		aggregation.NewEngine(calendar, cfg.Parking.TotalSpaces),
		responseCache,
		defaultRange,
		logrusLogger,
	)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName,
		otelgin.WithFilter(func(r *http.Request) bool { return !middleware.IsHealthPath(r.URL.Path) }),
	))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logrusLogger))

	// Setup routes
	api.SetupRoutes(router,
		handlers.NewParkingHandler(analytics, logrusLogger),
		handlers.NewHealthHandler(db, redisChecker),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeoutDuration(),
		WriteTimeout:      cfg.Server.WriteTimeoutDuration(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * cfg.Server.WriteTimeoutDuration(),
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
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.LogShutdown(cfg.Telemetry.ServiceName, "signal received: "+sig.String())
	}

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown did not complete")
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.WithComponent("server").Info("Server exited gracefully")
	return nil
}
