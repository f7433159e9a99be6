// Package mongo holds the document-store side of the marketplace: item
// media, the moderation audit trail, and user notifications. Nothing
// here participates in bidding invariants.
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

type MediaRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewMediaRepository(db *mongo.Database, logger observability.Logger) *MediaRepository {
	return &MediaRepository{
		coll:   db.Collection("item_media"),
		logger: logger,
	}
}

type MediaDoc struct {
	ItemID    uuid.UUID `bson:"_id"`
	Images    []string  `bson:"images"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// AddImages appends image URLs to an item's media document, creating it
// on first use.
func (m *MediaRepository) AddImages(ctx context.Context, itemID uuid.UUID, urls []string) ([]string, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$push": bson.M{"images": bson.M{"$each": urls}},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	var doc MediaDoc
	err := m.coll.FindOneAndUpdate(ctx, bson.M{"_id": itemID}, update, opts).Decode(&doc)
	if err != nil {
		m.logger.WithError(err).Error("failed to add item images")
		return nil, err
	}
	return doc.Images, nil
}

func (m *MediaRepository) GetImages(ctx context.Context, itemID uuid.UUID) ([]string, error) {
	var doc MediaDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": itemID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Images, nil
}

func (m *MediaRepository) DeleteMedia(ctx context.Context, itemID uuid.UUID) error {
	_, err := m.coll.DeleteOne(ctx, bson.M{"_id": itemID})
	return err
}
