package interfaces

import (
	"context"
	"time"

	"godrive/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.DriverSession) error
	End(ctx context.Context, sessionID string, endedAt time.Time, workedSeconds int64) error
	GetOpenByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.DriverSession, error)
	WorkedSecondsSince(ctx context.Context, driverID primitive.ObjectID, dayStart time.Time) (int64, error)
}
