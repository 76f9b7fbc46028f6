package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/catalog"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/cron"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/metrics"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/migrate"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/outbox"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/prismic"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	locks, err := cron.NewRedisLocks(redisClient, func(job string) string {
		return redisClient.LockKey("cron:" + job)
	}, cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locks:    locks,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
	return nil
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Registry, error) {
	snapshots, err := cron.NewCartSnapshotRetentionJob(cron.CartSnapshotRetentionJobParams{
		Logger:     logg,
		Repository: cart.NewDBStorage(dbClient.DB()),
		MaxAgeDays: cfg.Cart.SnapshotMaxAge,
	})
	if err != nil {
		return nil, err
	}

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(dbClient.DB()),
		Retention:   cfg.Outbox.RetentionDays,
		MinAttempts: cfg.Outbox.RetentionMinTry,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry(snapshots, outboxRetention)
	if !cfg.Cron.WarmupEnable {
		return registry, nil
	}

	prismicClient, err := prismic.NewClient(cfg.Content.Repository,
		prismic.WithBaseURL(cfg.Content.BaseURL),
		prismic.WithAccessToken(cfg.Content.AccessToken),
		prismic.WithTimeout(cfg.Content.Timeout),
	)
	if err != nil {
		return nil, err
	}
	contentCache, err := catalog.NewCachedRepository(catalog.CacheParams{
		Next:   catalog.NewContentRepository(prismicClient, logg),
		Store:  redisClient,
		TTL:    cfg.Content.CacheTTL,
		Tag:    cfg.Content.CacheTag,
		Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	warmup, err := cron.NewContentWarmupJob(logg, contentCache)
	if err != nil {
		return nil, err
	}
	registry.Register(warmup)
	return registry, nil
}
