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

type tripRepository struct {
	collection *mongo.Collection
}

func NewTripRepository(db *mongo.Database) interfaces.TripRepository {
	return &tripRepository{
		collection: db.Collection("trips"),
	}
}

func (r *tripRepository) Create(ctx context.Context, trip *models.Trip) error {
	trip.ID = primitive.NewObjectID()
	trip.Status = models.TripStatusPending
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = trip.CreatedAt

	_, err := r.collection.InsertOne(ctx, trip)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	return nil
}

func (r *tripRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	var trip models.Trip
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return &trip, nil
}

func (r *tripRepository) GetPendingForDriver(ctx context.Context, driverID primitive.ObjectID, since time.Time) ([]*models.Trip, error) {
	filter := bson.M{
		"status":            models.TripStatusPending,
		"requested_drivers": driverID,
		"created_at":        bson.M{"$gte": since},
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending trips: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []*models.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, fmt.Errorf("failed to decode pending trips: %w", err)
	}

	return trips, nil
}

func (r *tripRepository) GetActiveForDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Trip, error) {
	filter := bson.M{
		"driver_id": driverID,
		"status":    bson.M{"$in": []models.TripStatus{models.TripStatusAccepted, models.TripStatusOnGoing}},
	}

	var trip models.Trip
	err := r.collection.FindOne(ctx, filter).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active trip: %w", err)
	}

	return &trip, nil
}

func (r *tripRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, update *interfaces.TripStatusUpdate) (*models.Trip, error) {
	now := time.Now()

	set := bson.M{
		"status":     update.Status,
		"updated_at": now,
	}

	switch update.Status {
	case models.TripStatusAccepted:
		set["accepted_at"] = now
		if update.DriverID != nil {
			set["driver_id"] = *update.DriverID
		}
	case models.TripStatusOnGoing:
		set["started_at"] = now
	case models.TripStatusCompleted:
		set["completed_at"] = now
		if update.DistanceTraveled > 0 {
			set["distance_traveled"] = update.DistanceTraveled
		}
	case models.TripStatusCanceled:
		set["canceled_at"] = now
		set["cancellation_reason"] = update.CancellationReason
		set["canceled_by"] = update.CanceledBy
	}

	filter := bson.M{"_id": id}
	if update.ExpectedStatus != "" {
		filter["status"] = update.ExpectedStatus
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var trip models.Trip
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update trip status: %w", err)
	}

	return &trip, nil
}

func (r *tripRepository) DailyStats(ctx context.Context, driverID primitive.ObjectID, dayStart time.Time) (*models.DriverStats, error) {
	pipeline := []bson.M{
		{
			"$match": bson.M{
				"driver_id":  driverID,
				"updated_at": bson.M{"$gte": dayStart},
			},
		},
		{
			"$group": bson.M{
				"_id": "$driver_id",
				"trips_completed": bson.M{
					"$sum": bson.M{"$cond": []interface{}{bson.M{"$eq": []interface{}{"$status", models.TripStatusCompleted}}, 1, 0}},
				},
				"trips_canceled": bson.M{
					"$sum": bson.M{"$cond": []interface{}{bson.M{"$eq": []interface{}{"$status", models.TripStatusCanceled}}, 1, 0}},
				},
				"trips_declined": bson.M{
					"$sum": bson.M{"$cond": []interface{}{bson.M{"$eq": []interface{}{"$status", models.TripStatusDeclined}}, 1, 0}},
				},
				"distance_meters": bson.M{"$sum": "$distance_traveled"},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.DriverStats
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode daily stats: %w", err)
	}

	if len(results) == 0 {
		return &models.DriverStats{
			DriverID: driverID,
			Date:     dayStart.Format("2006-01-02"),
		}, nil
	}

	stats := results[0]
	stats.Date = dayStart.Format("2006-01-02")
	return &stats, nil
}
