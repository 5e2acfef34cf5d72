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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aptsearch/internal/config"
	"github.com/kailas-cloud/aptsearch/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/aptsearch/internal/db/redis"
	"github.com/kailas-cloud/aptsearch/internal/domain"
	logpkg "github.com/kailas-cloud/aptsearch/internal/logger"
	"github.com/kailas-cloud/aptsearch/internal/metrics"
	"github.com/kailas-cloud/aptsearch/internal/repository/embcache"
	listingrepo "github.com/kailas-cloud/aptsearch/internal/repository/listing"
	chiTransport "github.com/kailas-cloud/aptsearch/internal/transport/chi"
	openaiT "github.com/kailas-cloud/aptsearch/internal/transport/openai"
	"github.com/kailas-cloud/aptsearch/internal/transport/streeteasy"
	"github.com/kailas-cloud/aptsearch/internal/transport/vision"
	embeddinguc "github.com/kailas-cloud/aptsearch/internal/usecase/embedding"
	enrichmentuc "github.com/kailas-cloud/aptsearch/internal/usecase/enrichment"
	healthuc "github.com/kailas-cloud/aptsearch/internal/usecase/health"
	preferencesuc "github.com/kailas-cloud/aptsearch/internal/usecase/preferences"
	rankinguc "github.com/kailas-cloud/aptsearch/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/aptsearch/internal/usecase/search"
	"github.com/kailas-cloud/aptsearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting aptsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Register collectors explicitly (no init())
	metrics.Register()

	ctx := context.Background()
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	// Redis backs the embedding cache for either driver and the listing store for "redis".
	redisStore := openRedis(ctx, cfg, readiness, logger)
	if redisStore != nil {
		defer redisStore.Close()
	}

	store, pinger, closeStore := openListingStore(ctx, cfg, redisStore, readiness, logger)
	defer closeStore()

	// Collaborators
	listings := streeteasy.New(&streeteasy.Config{
		BaseURL:    cfg.Listings.BaseURL,
		Host:       cfg.Listings.Host,
		APIKey:     cfg.Listings.APIKey,
		Timeout:    time.Duration(cfg.Listings.TimeoutSec) * time.Second,
		MaxRetries: cfg.Listings.MaxRetries,
		RatePerSec: cfg.Listings.RatePerSec,
		Burst:      cfg.Listings.Burst,
		Logger:     logger,
	})

	analyzer, err := vision.NewAnalyzer(ctx, &vision.Config{
		APIKey:  cfg.Vision.APIKey,
		BaseURL: cfg.Vision.BaseURL,
		Timeout: time.Duration(cfg.Vision.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("Failed to create image analyzer", zap.Error(err))
	}

	embedder := buildEmbedder(cfg, redisStore, logger)

	chat := openaiT.NewChat(&openaiT.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Preferences.Model,
		Timeout: time.Duration(cfg.Preferences.TimeoutSec) * time.Second,
		Logger:  logger,
	}, cfg.Preferences.Temperature)

	// Use case services
	rankSvc := rankinguc.New(embedder).WithConcurrency(cfg.Embedding.Concurrency)
	enrichSvc := enrichmentuc.New(store, listings, analyzer).
		WithImageConcurrency(cfg.Vision.Concurrency).
		WithCacheClear(cfg.Dev.AllowCacheClear)
	searchSvc := searchuc.New(listings, enrichSvc, rankSvc).
		WithPageSize(cfg.Search.PageSize).
		WithConcurrency(cfg.Search.EnrichConcurrency)
	prefsSvc := preferencesuc.New(chat)

	healthSvc := healthuc.New(pinger).
		WithCheck("listings", listings).
		WithCheck("embedding", embedder)
	if redisStore != nil && cfg.Database.Driver != config.DriverRedis {
		healthSvc.WithCheck("cache", healthuc.CheckerFunc(redisStore.Ping))
	}

	server := chiTransport.NewServer(searchSvc, rankSvc, enrichSvc, prefsSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openRedis connects when addresses are configured. The redis driver cannot start
// without it; for postgres a failure only disables the embedding cache.
func openRedis(ctx context.Context, cfg config.Config, readiness time.Duration, logger *zap.Logger) *dbRedis.Store {
	addrs := cfg.Database.RedisAddrs()
	if len(addrs) == 0 {
		return nil
	}
	required := cfg.Database.Driver == config.DriverRedis

	s, err := dbRedis.NewStore(dbRedis.Config{Addrs: addrs, Password: cfg.Database.Password})
	if err == nil {
		if err = s.WaitForReady(ctx, readiness); err != nil {
			s.Close()
		}
	}
	if err != nil {
		if required {
			logger.Fatal("Redis not ready", zap.Strings("addrs", addrs), zap.Error(err))
		}
		logger.Warn("Redis unavailable, embedding cache disabled", zap.Strings("addrs", addrs), zap.Error(err))
		return nil
	}

	logger.Info("Connected to redis", zap.Strings("addrs", addrs))
	return s
}

// openListingStore picks the listing store for the configured driver.
func openListingStore(
	ctx context.Context,
	cfg config.Config,
	redisStore *dbRedis.Store,
	readiness time.Duration,
	logger *zap.Logger,
) (enrichmentuc.Store, healthuc.DBPinger, func()) {
	if cfg.Database.Driver == config.DriverRedis {
		return listingrepo.NewHashRepo(redisStore), redisStore, func() {}
	}

	pg, err := postgres.Open(postgres.Config{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		logger.Fatal("Failed to open postgres", zap.Error(err))
	}
	if err := pg.WaitForReady(ctx, readiness); err != nil {
		logger.Fatal("Postgres not ready", zap.Error(err))
	}
	if err := pg.Migrate(ctx, listingrepo.Schema...); err != nil {
		logger.Fatal("Failed to migrate listing schema", zap.Error(err))
	}
	logger.Info("Connected to postgres")

	return listingrepo.NewPostgresRepo(pg), pg, pg.Close
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func buildEmbedder(cfg config.Config, redisStore *dbRedis.Store, logger *zap.Logger) *embeddinguc.InstrumentedEmbedder {
	base := openaiT.NewEmbedder(&openaiT.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
		Timeout: time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	var embedder domain.Embedder = base
	if redisStore != nil {
		embedder = embcache.New(base, redisStore, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger).
			WithTTL(time.Duration(cfg.Embedding.CacheTTLSec) * time.Second)
	}

	return embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Model, logger)
}
