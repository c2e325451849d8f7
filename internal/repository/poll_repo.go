package repository

import (
	"context"

	"pollgen/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PollRepo interface {
	Create(ctx context.Context, poll *model.Poll) error
	GetByID(ctx context.Context, id string) (*model.Poll, error)
	ListByRoom(ctx context.Context, roomID string) ([]*model.Poll, error)
	Delete(ctx context.Context, id string) error
}

type pollRepo struct {
	collection *mongo.Collection
}

func NewPollRepo(db *mongo.Database) PollRepo {
	return &pollRepo{
		collection: db.Collection("polls"),
	}
}

func (r *pollRepo) Create(ctx context.Context, poll *model.Poll) error {
	_, err := r.collection.InsertOne(ctx, poll)
	return err
}

func (r *pollRepo) GetByID(ctx context.Context, id string) (*model.Poll, error) {
	var poll model.Poll
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&poll)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepo) ListByRoom(ctx context.Context, roomID string) ([]*model.Poll, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"roomId": roomID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var polls []*model.Poll
	if err := cursor.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *pollRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
