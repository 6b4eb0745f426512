package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freshmart-api/internal/cache"
	"freshmart-api/internal/config"
	"freshmart-api/internal/handler"
	"freshmart-api/internal/metrics"
	"freshmart-api/internal/middleware"
	"freshmart-api/internal/repository"
	"freshmart-api/internal/router"
	"freshmart-api/internal/scheduler"
	"freshmart-api/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// cacheStore is the key-value backend plus its lifecycle.
type cacheStore interface {
	cache.KeyValueStore
	Close() error
}

func main() {
	// Load configuration
	cfg := config.MustLoad()

	logger := newLogger(cfg.Log)
	log.Logger = logger
	logger.Info().
		Str("app", cfg.App.Name).
		Str("version", cfg.App.Version).
		Str("env", cfg.App.Environment).
		Msg("starting")

	// Data store
	db, err := repository.Open(cfg.Database.Driver(), cfg.Database.DSN())
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver()).Msg("failed to open database")
	}
	defer db.Close()

	// Key-value store
	kv, checks := openCache(cfg.Cache, logger)
	defer kv.Close()
	checks["database"] = db

	collector := metrics.NewCollector(nil)

	views := cache.NewStore(kv, cfg.Cache.KeyPrefix,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithPriceTTL(cfg.Cache.PriceTTL),
		cache.WithLogger(logger.With().Str("component", "cache").Logger()),
		cache.WithRecorder(collector),
	)

	sched := scheduler.New(
		scheduler.WithLogger(logger.With().Str("component", "scheduler").Logger()),
		scheduler.WithRecorder(collector),
		scheduler.WithActionTimeout(cfg.Scheduler.ActionTimeout),
	)

	// Initialize services
	ingredients := service.NewIngredientService(db.Ingredients(), views, sched, logger)
	products := service.NewProductService(db.Products(), views, sched, logger)
	categories := service.NewCategoryService(db.Categories(), views, logger)
	prices := service.NewPriceService(db.Ingredients(), db.Products(), views, logger)
	visitors := service.NewVisitorService(views, logger)

	if cfg.Scheduler.RearmOnStart {
		rearm(logger, ingredients, products)
	}

	sweeper := service.NewSweeper(map[string]service.Sweepable{
		"ingredients": ingredients,
		"products":    products,
	}, service.SweeperConfig{Interval: cfg.Scheduler.SweepInterval}, logger)
	if cfg.Scheduler.SweepInterval > 0 {
		sweeper.Start()
	}

	if len(cfg.Admin.APIKeys) == 0 {
		logger.Warn().Msg("ADMIN_API_KEYS is empty, admin routes are unauthenticated")
	}

	routes := router.Config{
		Handler:           handler.New(cfg.App.Version, checks),
		IngredientHandler: handler.NewIngredientHandler(ingredients),
		ProductHandler:    handler.NewProductHandler(products, prices, visitors),
		CatalogHandler:    handler.NewCatalogHandler(categories, prices, visitors),
		AdminHandler:      handler.NewAdminHandler(sched, db, sweeper, cfg.Database.Driver(), cfg.Cache.Type),
		AdminAuth:         middleware.NewAPIKeyAuth(cfg.Admin.APIKeys),
		Logger:            logger,
		Observer:          collector,
	}
	if cfg.Metrics.Enabled {
		routes.Metrics = collector.Handler()
		routes.MetricsPath = cfg.Metrics.Path
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router.New(routes),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", cfg.Server.Address()).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	// Timers are process memory; the next start re-arms them from the data store.
	sweeper.Stop()
	sched.Stop()

	logger.Info().Msg("server stopped")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// openCache returns the configured key-value store and the health checks it
// contributes. A Redis backend that cannot be reached falls back to memory.
func openCache(cfg config.CacheConfig, logger zerolog.Logger) (cacheStore, map[string]handler.Pinger) {
	checks := make(map[string]handler.Pinger)

	if cfg.Type == "redis" {
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.RedisAddress(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			logger.Info().Str("addr", cfg.RedisAddress()).Msg("redis cache initialized")
			checks["cache"] = store
			return store, checks
		}
		logger.Warn().Err(err).Str("addr", cfg.RedisAddress()).Msg("redis connection failed, using in-memory cache")
	}

	logger.Info().Msg("in-memory cache initialized")
	return cache.NewMemoryStore(), checks
}

func rearm(logger zerolog.Logger, ingredients *service.IngredientService, products *service.ProductService) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, _, err := ingredients.Rearm(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to restore ingredient timers")
	}
	if _, _, err := products.Rearm(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to restore product timers")
	}
}
