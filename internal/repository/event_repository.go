package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"eventstage/internal/model"
	apperrors "eventstage/pkg/app_errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EventRepository persists the event aggregate (everything except tiers).
// Writes after Create are field-level, so concurrent edits to different
// parts of an event never overwrite each other.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	// FindByID hides soft-deleted events.
	FindByID(ctx context.Context, id string) (*model.Event, error)
	// FindByIDs includes soft-deleted events; purchases still reference them.
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Event, error)
	// Update applies u atomically to a live event and returns the result.
	// A missing or deleted event gives ErrEventNotFound, a failed guard its own error.
	Update(ctx context.Context, id string, u *EventUpdate) (*model.Event, error)
	SetMaxAttendees(ctx context.Context, id string, maxAttendees int) error
	ListPublic(ctx context.Context, filter model.EventFilter) ([]*model.Event, error)
	ListByGroupID(ctx context.Context, groupID string) ([]*model.Event, error)
}

const EventsCollection = "events"

type EventRepositoryImpl struct {
	coll *mongo.Collection
}

func NewEventRepository(db *mongo.Database) EventRepository {
	return &EventRepositoryImpl{
		coll: db.Collection(EventsCollection),
	}
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) error {
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id string) (*model.Event, error) {
	var event model.Event
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "is_deleted": false}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Event, error) {
	result := make(map[string]*model.Event, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var events []*model.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	for _, e := range events {
		result[e.ID] = e
	}
	return result, nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, id string, u *EventUpdate) (*model.Event, error) {
	if err := u.Err(); err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var event model.Event
	err := r.coll.FindOneAndUpdate(ctx, u.Filter(id), u.Document(), opts).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// tell a missing event apart from a failed guard
		if _, ferr := r.FindByID(ctx, id); ferr != nil {
			return nil, ferr
		}
		return nil, u.GuardErr()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return &event, nil
}

func (r *EventRepositoryImpl) SetMaxAttendees(ctx context.Context, id string, maxAttendees int) error {
	update := bson.M{"$set": bson.M{"max_attendees": maxAttendees, "updated_at": time.Now().UTC()}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepositoryImpl) ListPublic(ctx context.Context, filter model.EventFilter) ([]*model.Event, error) {
	filter.Normalize()

	query := bson.M{
		"access":     model.AccessPublic,
		"is_deleted": false,
		"is_live":    true,
	}
	if filter.Category != "" {
		query["categories"] = filter.Category
	}
	if filter.Query != "" {
		query["title"] = bson.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))

	return r.find(ctx, query, opts)
}

func (r *EventRepositoryImpl) ListByGroupID(ctx context.Context, groupID string) ([]*model.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"group_id": groupID, "is_deleted": false}, opts)
}

func (r *EventRepositoryImpl) find(ctx context.Context, query bson.M, opts *options.FindOptionsBuilder) ([]*model.Event, error) {
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	events := make([]*model.Event, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
