package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thorvik/keyward/config"
	appcache "github.com/thorvik/keyward/internal/app/cache"
	"github.com/thorvik/keyward/internal/app/geo"
	appmodel "github.com/thorvik/keyward/internal/app/model"
	apprepository "github.com/thorvik/keyward/internal/app/repository"
	appserver "github.com/thorvik/keyward/internal/app/server"
	appservice "github.com/thorvik/keyward/internal/app/service"
	"github.com/thorvik/keyward/internal/infra/logger"
	infraNATS "github.com/thorvik/keyward/internal/infra/nats"
	infraPostgres "github.com/thorvik/keyward/internal/infra/postgres"
	infraPrometheus "github.com/thorvik/keyward/internal/infra/prometheus"
	infraRedis "github.com/thorvik/keyward/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "keyward",
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("cache_ttl_seconds", cfg.Cache.TTLSeconds),
		zap.Int("tracker_batch_size", cfg.Tracker.BatchSize),
		zap.Bool("click_export", cfg.Tracker.ExportEnabled),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Link{}, &appmodel.ClickEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	// The cache is an optimization; when Redis is unreachable we start
	// degraded on the no-op implementation instead of refusing to serve.
	routeCache := appcache.NewNoopCache()
	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, running without route cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		routeCache = appcache.NewRedisCache(redisClient, log)
		log.Info("Connected to Redis successfully")
	}

	var exporter appservice.Exporter
	if cfg.Tracker.ExportEnabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS)
		if err != nil {
			log.Warn("NATS unavailable, click export disabled", zap.Error(err))
		} else {
			defer natsConn.Drain()
			clickExporter := appservice.NewClickExporter(js, log)
			if err := clickExporter.EnsureStream(); err != nil {
				log.Warn("Failed to ensure click stream, export disabled", zap.Error(err))
			} else {
				exporter = clickExporter
				log.Info("Click export stream ready")
			}
		}
	}

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	clickRepo := apprepository.NewClickEventRepository(pool)

	lookup := appservice.NewLookupService(appservice.LookupDeps{
		Logger:   log,
		Cache:    routeCache,
		Links:    linkRepo,
		CacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	})
	if err := lookup.SeedRoutes(ctx); err != nil {
		log.Warn("Route filter not seeded, all misses will hit the store", zap.Error(err))
	}

	enricher := geo.NewEnricher(geo.Config{
		Endpoint:  cfg.Geo.Endpoint,
		Timeout:   time.Duration(cfg.Geo.TimeoutMillis) * time.Millisecond,
		CacheSize: cfg.Geo.CacheSize,
	}, log)

	tracker := appservice.NewTracker(appservice.TrackerDeps{
		Logger:        log,
		ClickEvents:   clickRepo,
		Links:         linkRepo,
		Geo:           enricher,
		Exporter:      exporter,
		BatchSize:     cfg.Tracker.BatchSize,
		FlushInterval: time.Duration(cfg.Tracker.FlushIntervalSeconds) * time.Second,
	})
	tracker.Start()

	linkService := appservice.NewLinkService(log, linkRepo, routeCache, lookup)

	if cfg.Server.VisitorSecret == "" {
		log.Warn("No visitor secret configured, falling back to IP+UA visitor ids")
	}

	srv := appserver.New(appserver.Dependencies{
		Logger:        log,
		Redis:         redisClient,
		LinkService:   linkService,
		Lookup:        lookup,
		Tracker:       tracker,
		VisitorSecret: []byte(cfg.Server.VisitorSecret),
	})

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		log.Info("Shutting down")

		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		// Drain queued click events before connections close underneath them.
		tracker.Stop(drainCtx)

		if err := srv.Shutdown(drainCtx); err != nil {
			log.Warn("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Listen(cfg.Server.Addr); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
