package repository

import (
	"context"

	"pollgen/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RoomRepo interface {
	Create(ctx context.Context, room *model.Room) error
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	GetActiveByHost(ctx context.Context, hostID string) (*model.Room, error)
	GetLatestByCode(ctx context.Context, code string) (*model.Room, error)
	SetInactive(ctx context.Context, roomID string) error
}

type roomRepo struct {
	collection *mongo.Collection
}

func NewRoomRepo(db *mongo.Database) RoomRepo {
	return &roomRepo{
		collection: db.Collection("rooms"),
	}
}

func (r *roomRepo) Create(ctx context.Context, room *model.Room) error {
	_, err := r.collection.InsertOne(ctx, room)
	return err
}

// GetByCode returns the active room with the given code, or nil if none.
// Codes are only unique among active rooms, so the filter pins isActive.
func (r *roomRepo) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	var room model.Room
	err := r.collection.FindOne(ctx, bson.M{"code": code, "isActive": true}).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) GetActiveByHost(ctx context.Context, hostID string) (*model.Room, error) {
	var room model.Room
	err := r.collection.FindOne(ctx, bson.M{"hostId": hostID, "isActive": true}).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

// GetLatestByCode returns the most recently created room with the given
// code, active or not. Ending a session deactivates the room, so the
// idempotent end-session path needs a lookup that still resolves it.
func (r *roomRepo) GetLatestByCode(ctx context.Context, code string) (*model.Room, error) {
	opts := options.FindOne().SetSort(bson.M{"createdAt": -1})
	var room model.Room
	err := r.collection.FindOne(ctx, bson.M{"code": code}, opts).Decode(&room)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) SetInactive(ctx context.Context, roomID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$set": bson.M{"isActive": false}},
	)
	return err
}
