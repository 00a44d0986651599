package repository

import (
	"context"
	"errors"

	"eventstage/internal/model"
	apperrors "eventstage/pkg/app_errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// GroupRepository reads group membership and writes the event association
// fields. Group administration itself lives elsewhere.
type GroupRepository interface {
	FindByID(ctx context.Context, id string) (*model.Group, error)
	// LinkEvent adds eventID to the group's eventIds and sets its status.
	LinkEvent(ctx context.Context, groupID, eventID, status string) error
	SetEventStatus(ctx context.Context, groupID, eventID, status string) error
}

const GroupsCollection = "groups"

type GroupRepositoryImpl struct {
	coll *mongo.Collection
}

func NewGroupRepository(db *mongo.Database) GroupRepository {
	return &GroupRepositoryImpl{
		coll: db.Collection(GroupsCollection),
	}
}

func (r *GroupRepositoryImpl) FindByID(ctx context.Context, id string) (*model.Group, error) {
	var group model.Group
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&group)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *GroupRepositoryImpl) LinkEvent(ctx context.Context, groupID, eventID, status string) error {
	update := bson.M{
		"$addToSet": bson.M{"event_ids": eventID},
		"$set":      bson.M{"event_statuses." + eventID: status},
	}
	return r.update(ctx, groupID, update)
}

func (r *GroupRepositoryImpl) SetEventStatus(ctx context.Context, groupID, eventID, status string) error {
	return r.update(ctx, groupID, bson.M{"$set": bson.M{"event_statuses." + eventID: status}})
}

func (r *GroupRepositoryImpl) update(ctx context.Context, groupID string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": groupID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrGroupNotFound
	}
	return nil
}
