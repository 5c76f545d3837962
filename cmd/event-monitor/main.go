// Package main is the entrypoint for the SnapCircle event monitor worker.
//
// The worker runs two loops: the pending-notification monitor, which scans
// events with queued notifications and pushes to the event's group when a
// period opens, and the photo-resized consumer, which applies resize-worker
// output back onto photo records.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"snapcircle/internal/config"
	"snapcircle/internal/db"
	"snapcircle/internal/events"
	"snapcircle/internal/push"
	"snapcircle/internal/queue"
	"snapcircle/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqsClient, err := newSQSClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize SQS client", "error", err)
		os.Exit(1)
	}

	provider, err := push.NewAPNSProvider(cfg.APNs)
	if err != nil {
		logger.Error("failed to initialize push provider", "error", err)
		os.Exit(1)
	}

	eventRepo := db.NewEventRepository(pool)
	photoRepo := db.NewPhotoRepository(pool)
	deviceRepo := db.NewDeviceRepository(pool)

	cache := events.NewCache(eventRepo)
	dispatcher := push.NewDispatcher(deviceRepo, provider, logger)

	monitor := scheduler.NewMonitor(scheduler.MonitorConfig{
		Events:   eventRepo,
		Notifier: dispatcher,
		Cache:    cache,
		Interval: cfg.Monitor.Interval,
		Logger:   logger,
	})

	producer := queue.NewUploadProducer(sqsClient, cfg.AWS.PhotoUploadedQueue, logger)
	coordinator := queue.NewIngestCoordinator(producer, photoRepo, logger)
	consumer := queue.NewResizedConsumer(sqsClient, cfg.AWS.PhotoResizedQueue, coordinator.ApplyResized, logger)

	logger.Info("starting event monitor",
		"interval", cfg.Monitor.Interval,
		"environment", cfg.Environment,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return monitor.Run(gctx)
	})
	g.Go(func() error {
		return consumer.Run(gctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("event monitor stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

func newSQSClient(ctx context.Context, cfg *config.Config) (*sqs.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	}), nil
}
