package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openbid/auction-marketplace/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger records moderation actions. The collection is append-only
// and read by operators, never by the engine.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	ActorID   uuid.UUID `bson:"actor_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogAction(ctx context.Context, action string, actorID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		ActorID:   actorID,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.WithError(err).Error("failed to insert audit log")
		return err
	}
	return nil
}

func (a *AuditLogger) LogUserBan(ctx context.Context, adminID, userID uuid.UUID, banned bool) error {
	return a.LogAction(ctx, "user.ban_toggled", adminID, map[string]interface{}{
		"user_id": userID,
		"banned":  banned,
	})
}

func (a *AuditLogger) LogRoleChange(ctx context.Context, adminID, userID uuid.UUID, role string) error {
	return a.LogAction(ctx, "user.role_changed", adminID, map[string]interface{}{
		"user_id": userID,
		"role":    role,
	})
}

func (a *AuditLogger) LogItemDeleted(ctx context.Context, adminID, itemID uuid.UUID) error {
	return a.LogAction(ctx, "item.deleted", adminID, map[string]interface{}{
		"item_id": itemID,
	})
}

func (a *AuditLogger) LogBidDeleted(ctx context.Context, adminID, bidID uuid.UUID) error {
	return a.LogAction(ctx, "bid.deleted", adminID, map[string]interface{}{
		"bid_id": bidID,
	})
}

func (a *AuditLogger) LogForceClose(ctx context.Context, adminID, itemID uuid.UUID) error {
	return a.LogAction(ctx, "item.force_closed", adminID, map[string]interface{}{
		"item_id": itemID,
	})
}
