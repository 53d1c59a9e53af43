package interfaces

import (
	"context"
	"time"

	"godrive/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripStatusUpdate struct {
	Status models.TripStatus

	// ExpectedStatus conditions the update: it applies only while the
	// stored status still matches, so two racing transitions cannot both
	// win. A miss is reported as no document.
	ExpectedStatus models.TripStatus

	DriverID           *primitive.ObjectID
	CancellationReason string
	CanceledBy         string
	DistanceTraveled   float64
}

type TripRepository interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)
	GetPendingForDriver(ctx context.Context, driverID primitive.ObjectID, since time.Time) ([]*models.Trip, error)
	GetActiveForDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Trip, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, update *TripStatusUpdate) (*models.Trip, error)
	DailyStats(ctx context.Context, driverID primitive.ObjectID, dayStart time.Time) (*models.DriverStats, error)
}
