package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dandantas/disloc/internal/model"
)

// EventRepository stores earthquakes ingested from the feed, one document
// per event id
type EventRepository struct {
	collection *mongo.Collection
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *MongoDB) *EventRepository {
	return newEventRepository(db.GetCollection(CollectionEvents))
}

func newEventRepository(collection *mongo.Collection) *EventRepository {
	return &EventRepository{collection: collection}
}

// Upsert inserts the event or refreshes the stored copy. It returns the
// document as it was before the update, or nil when the event is new. The
// first ingestion time and any linked job are preserved on update.
func (r *EventRepository) Upsert(ctx context.Context, event *model.Event) (*model.Event, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if event.EventID == "" {
		return nil, fmt.Errorf("%w: event id", model.ErrFeedFieldMissing)
	}

	ingestedAt := event.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	set := bson.M{
		"title":      event.Title,
		"place":      event.Place,
		"mag":        event.Magnitude,
		"time":       event.Time,
		"updated":    event.Updated,
		"code":       event.Code,
		"ids":        event.IDs,
		"url":        event.URL,
		"detail":     event.DetailURL,
		"longitude":  event.Longitude,
		"latitude":   event.Latitude,
		"depth_km":   event.DepthKm,
		"updated_at": time.Now().UTC(),
	}
	if event.MomentTensor != nil {
		set["moment_tensor"] = event.MomentTensor
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"event_id":    event.EventID,
			"ingested_at": ingestedAt,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var previous model.Event
	err := r.collection.FindOneAndUpdate(ctxTimeout, bson.M{"event_id": event.EventID}, update, opts).Decode(&previous)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to upsert event: %w", err)
	}

	return &previous, nil
}

// SetJobID links an event to the disloc job modelling it
func (r *EventRepository) SetJobID(ctx context.Context, eventID, jobID string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.collection.UpdateOne(ctxTimeout,
		bson.M{"event_id": eventID},
		bson.M{"$set": bson.M{"job_id": jobID}},
	)
	if err != nil {
		return fmt.Errorf("failed to link job: %w", err)
	}

	if result.MatchedCount == 0 {
		return fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}

	return nil
}
