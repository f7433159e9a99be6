package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openbid/auction-marketplace/internal/adapters/crdb"
	"github.com/openbid/auction-marketplace/internal/auction"
	"github.com/openbid/auction-marketplace/internal/config"
	"github.com/openbid/auction-marketplace/internal/observability"
	"golang.org/x/sync/errgroup"
)

const sweepBatch = 100

// The sweep worker settles ended auctions that no reader has touched
// yet. The lazy read path remains the source of truth; the sweep only
// bounds how long a sold or expired item can sit unnoticed, so events
// and notifications keep moving.
func main() {
	logger := observability.NewLogger().WithField("component", "settlement-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	defer pool.Close()

	repo := crdb.NewRepository(pool)
	engine := auction.NewEngine(repo, logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sweep(ctx, engine, logger)
			}
		}
	})

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	logger.WithField("interval", cfg.SweepInterval.String()).Info("settlement worker started")
	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.WithError(err).Error("settlement worker stopped")
		os.Exit(1)
	}
}

func sweep(ctx context.Context, engine *auction.Engine, logger observability.Logger) {
	start := time.Now()
	settled, err := engine.SettleDue(ctx, sweepBatch)
	if err != nil {
		logger.WithError(err).Error("sweep failed")
		return
	}
	observability.SettleSweepLag.Set(time.Since(start).Seconds())
	if settled > 0 {
		logger.WithField("settled", settled).Info("sweep settled items")
	}
}
