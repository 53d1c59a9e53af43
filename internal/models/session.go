package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverSession records one continuous online period for a driver. Sessions
// are never deleted; going online again creates a new one.
type DriverSession struct {
	ID               string             `json:"id" bson:"_id"`
	DriverID         primitive.ObjectID `json:"driver_id" bson:"driver_id" validate:"required"`
	OnlineSince      time.Time          `json:"online_since" bson:"online_since"`
	EndedAt          *time.Time         `json:"ended_at" bson:"ended_at"`
	WorkedSeconds    int64              `json:"worked_seconds" bson:"worked_seconds"`
	RemainingSeconds int64              `json:"remaining_seconds" bson:"remaining_seconds"`
}

func (s *DriverSession) Open() bool {
	return s.EndedAt == nil
}
