package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/auction"
)

// OutboxRecord is an auction event captured in the same transaction as
// the write that produced it and relayed to RabbitMQ by the outbox
// publisher.
type OutboxRecord struct {
	ID          uuid.UUID
	ItemID      uuid.UUID
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Status      string // NEW, PUBLISHED
	DedupeKey   string
}

func (t *pgTx) InsertEvent(ctx context.Context, ev auction.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO outbox (id, item_id, event_type, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, 'NEW', $5)
	`, uuid.New(), ev.ItemID, ev.Type, payload, uuid.New().String())
	return err
}

func (r *Repository) GetUnpublishedOutbox(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, item_id, event_type, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.ItemID, &rec.EventType, &rec.Payload, &rec.CreatedAt,
			&rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return err
}
