package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openbid/auction-marketplace/internal/adapters/crdb"
	mongoadapter "github.com/openbid/auction-marketplace/internal/adapters/mongo"
	redisadapter "github.com/openbid/auction-marketplace/internal/adapters/redis"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/config"
	httpapi "github.com/openbid/auction-marketplace/internal/http"
	"github.com/openbid/auction-marketplace/internal/idempotency"
	"github.com/openbid/auction-marketplace/internal/observability"
	"github.com/openbid/auction-marketplace/internal/rateLimit"
	"github.com/openbid/auction-marketplace/internal/reporting"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	logger := observability.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("failed to set up tracing")
		os.Exit(1)
	}
	defer shutdownOTel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	defer pool.Close()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.WithError(err).Error("failed to connect to mongo")
		os.Exit(1)
	}
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database("auction")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	repo := crdb.NewRepository(pool)
	engine := auction.NewEngine(repo, logger, auction.WithRetryAttempts(cfg.BidRetryAttempts))
	reporter := reporting.NewReporter(repo, logger)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	limiter := rateLimit.NewRateLimiter(redisadapter.NewCache(redisClient))
	media := mongoadapter.NewMediaRepository(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)

	handlers := httpapi.NewHandlers(engine, reporter, idemp, media, audit, logger)
	router := httpapi.NewRouter(handlers, engine, limiter)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server failed")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
