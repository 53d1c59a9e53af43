package interfaces

import (
	"context"

	"godrive/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.DriverStatus) error
	UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.Location) error
}
