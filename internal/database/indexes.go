package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateIndexes creates all necessary indexes for the collections
func CreateIndexes(ctx context.Context, db *MongoDB) error {
	slog.Info("Creating MongoDB indexes")

	for name, indexes := range indexModels() {
		if err := createIndexes(ctx, db.GetCollection(name), indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
		slog.Info("Created indexes", "collection", name, "count", len(indexes))
	}

	slog.Info("Successfully created all MongoDB indexes")
	return nil
}

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		CollectionManifests: {
			{
				Keys:    bson.D{{Key: "job_id", Value: 1}},
				Options: options.Index().SetName("idx_job_id"),
			},
			{
				Keys:    bson.D{{Key: "correlation_id", Value: 1}},
				Options: options.Index().SetName("idx_correlation_id"),
			},
			{
				Keys: bson.D{
					{Key: "event_id", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("idx_event_id_created_at"),
			},
			{
				Keys: bson.D{
					{Key: "manifest.status", Value: 1},
					{Key: "created_at", Value: -1},
				},
				Options: options.Index().SetName("idx_status_created_at"),
			},
		},
		CollectionEvents: {
			{
				Keys:    bson.D{{Key: "event_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_event_id_unique"),
			},
			{
				Keys: bson.D{
					{Key: "mag", Value: -1},
					{Key: "time", Value: -1},
				},
				Options: options.Index().SetName("idx_mag_time"),
			},
		},
		CollectionScheduleLocks: {
			{
				Keys:    bson.D{{Key: "key", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_key_unique"),
			},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_expires_at_ttl"),
			},
			{
				Keys:    bson.D{{Key: "locked_by", Value: 1}},
				Options: options.Index().SetName("idx_locked_by"),
			},
		},
	}
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctxTimeout, indexes)
	return err
}
