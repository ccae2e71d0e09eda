package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dandantas/disloc/internal/model"
)

// ErrNotFound is returned when a lookup matches no document
var ErrNotFound = errors.New("not found")

// ManifestRepository archives job manifests
type ManifestRepository struct {
	collection *mongo.Collection
}

// NewManifestRepository creates a new manifest repository
func NewManifestRepository(db *MongoDB) *ManifestRepository {
	return newManifestRepository(db.GetCollection(CollectionManifests))
}

func newManifestRepository(collection *mongo.Collection) *ManifestRepository {
	return &ManifestRepository{collection: collection}
}

// Create inserts a new manifest record
func (r *ManifestRepository) Create(ctx context.Context, record *model.ManifestRecord) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Ensure ID is generated if not set
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctxTimeout, record)
	if err != nil {
		return fmt.Errorf("failed to create manifest record: %w", err)
	}

	return nil
}
