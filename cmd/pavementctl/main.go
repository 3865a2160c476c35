package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/urfave/cli/v2"

	"github.com/pavement/pavement-api/internal/aggregation"
	"github.com/pavement/pavement-api/internal/cache"
	"github.com/pavement/pavement-api/internal/config"
	"github.com/pavement/pavement-api/internal/database"
	"github.com/pavement/pavement-api/internal/logging"
	"github.com/pavement/pavement-api/internal/models"
	"github.com/pavement/pavement-api/internal/services"
)

const defaultTimeout = 2 * time.Minute

var timeout time.Duration

// querier is the part of the analytics service the commands use.
type querier interface {
	Execute(ctx context.Context, query models.ParkingQuery) (any, error)
	ListSpaces(ctx context.Context) ([]string, error)
}

// connect builds the analytics service from configuration. The returned
// function releases the database pool.
var connect = func(ctx context.Context) (querier, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	calendar, err := cfg.Parking.Calendar()
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	defaultRange, err := cfg.Parking.DefaultRange()
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	logger := logging.NewLogrusLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)
	svc := services.NewParkingAnalyticsService(
		database.NewTransactionRepository(db.Pool, logger),
		aggregation.NewEngine(calendar, cfg.Parking.TotalSpaces),
		nil,
		defaultRange,
		logger,
	)
	return svc, db.Close, nil
}

// clearCache drops every cached response from Redis and returns the number of
// keys removed.
var clearCache = func(ctx context.Context) (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load configuration: %w", err)
	}
	redis, err := database.NewRedisConnection(ctx, cfg.Redis)
	if err != nil {
		return 0, err
	}
	defer redis.Close()

	ttl, err := cfg.Parking.CacheTTLDuration()
	if err != nil {
		return 0, err
	}
	logger := logging.NewLogrusLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)
	return cache.NewResultCache(redis.Client, ttl, logger).Clear(ctx)
}

func jsonOutput(w io.Writer, in any) error {
	j, err := json.MarshalIndent(in, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(j))
	return err
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pavementctl"
	app.Usage = "run parking analytics queries against the transaction store"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.DurationFlag{
			Name:        "timeout",
			Value:       defaultTimeout,
			Usage:       "the context timeout for a query",
			Destination: &timeout,
		},
	}
	app.Commands = []*cli.Command{
		occupancyCommand,
		revenueCommand,
		timeCommand,
		spacesCommand,
		cacheCommand,
	}
	return app
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
