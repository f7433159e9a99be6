package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationStore persists user-facing notifications produced by the
// notifier worker from auction events.
type NotificationStore struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewNotificationStore(db *mongo.Database, logger observability.Logger) *NotificationStore {
	return &NotificationStore{
		coll:   db.Collection("notifications"),
		logger: logger,
	}
}

type Notification struct {
	ID        uuid.UUID              `bson:"_id"`
	ItemID    uuid.UUID              `bson:"item_id"`
	Type      string                 `bson:"type"`
	Payload   map[string]interface{} `bson:"payload"`
	CreatedAt time.Time              `bson:"created_at"`
}

func (n *NotificationStore) Insert(ctx context.Context, itemID uuid.UUID, eventType string, payload map[string]interface{}) error {
	doc := Notification{
		ID:        uuid.New(),
		ItemID:    itemID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	_, err := n.coll.InsertOne(ctx, doc)
	if err != nil {
		n.logger.WithError(err).Error("failed to insert notification")
	}
	return err
}

// ListByItem returns recent notifications for an item, newest first.
func (n *NotificationStore) ListByItem(ctx context.Context, itemID uuid.UUID, limit int64) ([]Notification, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit)
	cur, err := n.coll.Find(ctx, bson.M{"item_id": itemID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
