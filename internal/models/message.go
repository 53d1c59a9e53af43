package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatMessage struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TripID    primitive.ObjectID `json:"trip_id" bson:"trip_id" validate:"required"`
	SenderID  primitive.ObjectID `json:"sender_id" bson:"sender_id" validate:"required"`
	Body      string             `json:"body" bson:"body" validate:"required"`
	SentAt    time.Time          `json:"sent_at" bson:"sent_at"`
	Delivered bool               `json:"delivered" bson:"delivered"`
}
