package repository

import (
	"context"

	"pollgen/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportRepo persists session reports. Save upserts on sessionId so
// report creation stays idempotent per session.
type ReportRepo interface {
	Save(ctx context.Context, report *model.SessionReport) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.SessionReport, error)
}

type reportRepo struct {
	collection *mongo.Collection
}

func NewReportRepo(db *mongo.Database) ReportRepo {
	return &reportRepo{
		collection: db.Collection("session_reports"),
	}
}

func (r *reportRepo) Save(ctx context.Context, report *model.SessionReport) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"sessionId": report.SessionID}, report, opts)
	return err
}

func (r *reportRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.SessionReport, error) {
	var report model.SessionReport
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}
