package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	mongoadapter "github.com/openbid/auction-marketplace/internal/adapters/mongo"
	"github.com/openbid/auction-marketplace/internal/adapters/rabbit"
	"github.com/openbid/auction-marketplace/internal/config"
	"github.com/openbid/auction-marketplace/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The notifier turns auction events into stored notifications: outbid
// notices from bid.placed, win and close notices from the settlement
// events.
func main() {
	logger := observability.NewLogger().WithField("component", "notifier")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.WithError(err).Error("failed to connect to mongo")
		os.Exit(1)
	}
	defer mongoClient.Disconnect(ctx)
	store := mongoadapter.NewNotificationStore(mongoClient.Database("auction"), logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		logger.WithError(err).Error("failed to connect to rabbitmq")
		os.Exit(1)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "auction.notifications", "bid.placed", "auction.*")
	if err != nil {
		logger.WithError(err).Error("failed to declare consumer")
		os.Exit(1)
	}

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		logger.WithError(err).Error("failed to start consuming")
		os.Exit(1)
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	logger.Info("notifier started")
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			handle(ctx, store, logger, d)
		}
	}
}

func handle(ctx context.Context, store *mongoadapter.NotificationStore, logger observability.Logger, d amqp.Delivery) {
	itemID, err := uuid.Parse(headerString(d.Headers, "item_id"))
	if err != nil {
		logger.WithError(err).Warn("discarding event without item_id")
		d.Nack(false, false)
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		logger.WithError(err).Warn("discarding malformed event payload")
		d.Nack(false, false)
		return
	}

	if err := store.Insert(ctx, itemID, d.RoutingKey, payload); err != nil {
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func headerString(t amqp.Table, key string) string {
	s, _ := t[key].(string)
	return s
}
