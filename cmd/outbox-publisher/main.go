package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openbid/auction-marketplace/internal/adapters/crdb"
	"github.com/openbid/auction-marketplace/internal/adapters/rabbit"
	"github.com/openbid/auction-marketplace/internal/config"
	"github.com/openbid/auction-marketplace/internal/observability"
	"github.com/openbid/auction-marketplace/internal/outbox"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	logger := observability.NewLogger().WithField("component", "outbox-publisher")

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

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.WithError(err).Error("failed to connect to rabbitmq")
		os.Exit(1)
	}
	defer conn.Close()

	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		logger.WithError(err).Error("failed to open publisher channel")
		os.Exit(1)
	}

	pub := outbox.NewPublisher(crdb.NewRepository(pool), rabbitPub, logger)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	logger.Info("outbox publisher started")
	pub.Run(ctx, 2*time.Second)
}
