package outbox

import (
	"context"
	"time"

	"github.com/openbid/auction-marketplace/internal/adapters/crdb"
	"github.com/openbid/auction-marketplace/internal/adapters/rabbit"
	"github.com/openbid/auction-marketplace/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher drains NEW outbox records to RabbitMQ. Auction events are
// written to the outbox inside the same transaction as the bid or
// settlement, so the broker eventually sees every committed event
// exactly as committed.
type Publisher struct {
	repo      *crdb.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewPublisher(repo *crdb.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger.WithField("component", "outbox")}
}

func (p *Publisher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	records, err := p.repo.GetUnpublishedOutbox(ctx, 50)
	if err != nil {
		p.logger.WithError(err).Error("failed to read outbox")
		return
	}
	for _, rec := range records {
		observability.OutboxLag.Set(time.Since(rec.CreatedAt).Seconds())
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Headers:     amqp.Table{"item_id": rec.ItemID.String()},
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			p.logger.WithError(err).WithField("outbox_id", rec.ID.String()).Error("failed to publish outbox record")
			continue
		}
		if err := p.repo.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
			p.logger.WithError(err).WithField("outbox_id", rec.ID.String()).Error("failed to mark outbox record published")
		}
	}
}
