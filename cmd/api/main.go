package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/envasesysoluciones/cotizaciones-backend/api/controllers"
	"github.com/envasesysoluciones/cotizaciones-backend/api/routes"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/cart"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/catalog"
	"github.com/envasesysoluciones/cotizaciones-backend/internal/quotes"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/config"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/db"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/logger"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/mailer"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/metrics"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/migrate"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/outbox"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/prismic"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/redis"
	"github.com/envasesysoluciones/cotizaciones-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
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

	registry := metrics.NewRegistry()

	sender, err := mailer.New(cfg.Mail, logg)
	if err != nil {
		return err
	}

	prismicClient, err := prismic.NewClient(cfg.Content.Repository,
		prismic.WithBaseURL(cfg.Content.BaseURL),
		prismic.WithAccessToken(cfg.Content.AccessToken),
		prismic.WithTimeout(cfg.Content.Timeout),
	)
	if err != nil {
		return err
	}
	contentCache, err := catalog.NewCachedRepository(catalog.CacheParams{
		Next:    catalog.NewContentRepository(prismicClient, logg),
		Store:   redisClient,
		TTL:     cfg.Content.CacheTTL,
		Tag:     cfg.Content.CacheTag,
		Metrics: metrics.NewCacheMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	var storage cart.Storage
	switch strings.ToLower(cfg.Cart.Storage) {
	case config.CartStorageDatabase:
		storage = cart.NewDBStorage(dbClient.DB())
	default:
		storage = cart.NewRedisStorage(redisClient, cfg.Cart.TTL)
	}
	sessions, err := cart.NewSessions(cart.SessionsParams{
		Storage:           storage,
		StorageKey:        cfg.Cart.StorageKey,
		NotificationDelay: cfg.Cart.NotificationTTL,
		Logger:            logg,
	})
	if err != nil {
		return err
	}

	docOpts, err := quotes.NewDocumentOptions(cfg.Quote.Locale, cfg.Quote.TimeZone, cfg.Quote.SiteURL)
	if err != nil {
		return err
	}
	quoteRepo := quotes.NewRepository(dbClient.DB())
	params := quotes.PipelineParams{
		Dispatcher:    sender,
		From:          cfg.Quote.From,
		Recipients:    cfg.Quote.Recipients,
		Document:      docOpts,
		Tx:            dbClient,
		Store:         quoteRepo,
		ArchivePrefix: cfg.Quote.ArchiveDir,
		Metrics:       metrics.NewQuoteMetrics(registry),
		Logger:        logg,
	}
	if cfg.FeatureFlags.EmitEvents {
		params.Outbox = outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	}

	pingers := map[string]controllers.Pinger{"database": dbClient, "redis": redisClient}
	var signer controllers.ArchiveSigner
	if cfg.FeatureFlags.ArchivePDFs {
		gcsClient, gcsErr := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if gcsErr != nil {
			return gcsErr
		}
		defer func() { err = multierr.Append(err, gcsClient.Close()) }()
		params.Archive = gcsClient
		signer = gcsClient
		pingers["gcs"] = gcsClient
	}

	pipeline, err := quotes.NewPipeline(params)
	if err != nil {
		return err
	}
	go sweepSessions(ctx, sessions, pipeline, cfg.Cart.SessionIdle, logg)

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Pingers:       pingers,
		RateStore:     redisClient,
		Metrics:       registry,
		Sessions:      sessions,
		Pipeline:      pipeline,
		Catalog:       catalog.NewService(contentCache),
		ContentCache:  contentCache,
		Quotes:        quoteRepo,
		Document:      docOpts,
		ArchiveSigner: signer,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"cart_storage": cfg.Cart.Storage,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sweepSessions drops in-memory cart sessions that have been idle for a while,
// along with settled submission states. Carts stay in storage.
func sweepSessions(ctx context.Context, sessions *cart.Sessions, pipeline *quotes.Pipeline, idle time.Duration, logg *logger.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(idle); n > 0 {
				logg.Debug(logg.WithField(ctx, "sessions", n), "cart.sessions.swept")
			}
			if n := pipeline.Prune(idle); n > 0 {
				logg.Debug(logg.WithField(ctx, "states", n), "quote.states.pruned")
			}
		}
	}
}
