package mongodb

import (
	"context"
	"fmt"
	"time"

	"godrive/internal/models"
	"godrive/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sessionRepository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) interfaces.SessionRepository {
	return &sessionRepository{
		collection: db.Collection("driver_sessions"),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.DriverSession) error {
	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) End(ctx context.Context, sessionID string, endedAt time.Time, workedSeconds int64) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{
			"ended_at":       endedAt,
			"worked_seconds": workedSeconds,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	return nil
}

func (r *sessionRepository) GetOpenByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.DriverSession, error) {
	filter := bson.M{
		"driver_id": driverID,
		"ended_at":  nil,
	}

	opts := options.FindOne().SetSort(bson.M{"online_since": -1})
	var session models.DriverSession
	err := r.collection.FindOne(ctx, filter, opts).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}

	return &session, nil
}

func (r *sessionRepository) WorkedSecondsSince(ctx context.Context, driverID primitive.ObjectID, dayStart time.Time) (int64, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"driver_id":    driverID,
				"online_since": bson.M{"$gte": dayStart},
			},
		},
		{
			"$group": bson.M{
				"_id":   "$driver_id",
				"total": bson.M{"$sum": "$worked_seconds"},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate worked seconds: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode worked seconds: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}

	return results[0].Total, nil
}
