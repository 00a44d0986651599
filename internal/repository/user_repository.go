package repository

import (
	"context"
	"errors"

	"eventstage/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UserRepository maintains the user-side reverse indexes. Writes use
// $addToSet so they can be retried freely.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	AddEvent(ctx context.Context, userID, eventID string) error
	AddPasses(ctx context.Context, userID string, purchaseIDs ...string) error
}

const UsersCollection = "users"

type UserRepositoryImpl struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) UserRepository {
	return &UserRepositoryImpl{
		coll: db.Collection(UsersCollection),
	}
}

// FindByID returns an empty index set for users this service has never
// written to.
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &model.User{ID: id, MyEventIDs: []string{}, MyPasses: []string{}}, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) AddEvent(ctx context.Context, userID, eventID string) error {
	update := bson.M{"$addToSet": bson.M{"my_event_ids": eventID}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (r *UserRepositoryImpl) AddPasses(ctx context.Context, userID string, purchaseIDs ...string) error {
	if len(purchaseIDs) == 0 {
		return nil
	}
	update := bson.M{"$addToSet": bson.M{"my_passes": bson.M{"$each": purchaseIDs}}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update, options.UpdateOne().SetUpsert(true))
	return err
}
