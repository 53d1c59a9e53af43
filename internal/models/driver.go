package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverStatus string
type ApprovalStatus string

const (
	DriverStatusOnline  DriverStatus = "online"
	DriverStatusOffline DriverStatus = "offline"
	DriverStatusOnTrip  DriverStatus = "on_trip"

	ApprovalStatusApproved      ApprovalStatus = "approved"
	ApprovalStatusPendingReview ApprovalStatus = "pending_review"
	ApprovalStatusNotFound      ApprovalStatus = "not_found"
)

type Driver struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID             primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	FirstName          string             `json:"first_name" bson:"first_name"`
	LastName           string             `json:"last_name" bson:"last_name"`
	Phone              string             `json:"phone" bson:"phone"`
	Status             DriverStatus       `json:"status" bson:"status" default:"offline"`
	Approval           ApprovalStatus     `json:"approval" bson:"approval" default:"pending_review"`
	Rating             float64            `json:"rating" bson:"rating" default:"0"`
	TotalTrips         int64              `json:"total_trips" bson:"total_trips" default:"0"`
	DeviceToken        string             `json:"device_token" bson:"device_token"`
	DevicePlatform     string             `json:"device_platform" bson:"device_platform"` // android, ios
	CurrentLocation    *Location          `json:"current_location" bson:"current_location"`
	LastLocationUpdate *time.Time         `json:"last_location_update" bson:"last_location_update"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
	ApprovedAt         *time.Time         `json:"approved_at" bson:"approved_at"`
}

// DriverStats is the daily aggregation surfaced on the driver home screen.
type DriverStats struct {
	DriverID       primitive.ObjectID `json:"driver_id" bson:"_id"`
	Date           string             `json:"date" bson:"date"`
	TripsCompleted int64              `json:"trips_completed" bson:"trips_completed"`
	TripsCanceled  int64              `json:"trips_canceled" bson:"trips_canceled"`
	TripsDeclined  int64              `json:"trips_declined" bson:"trips_declined"`
	DistanceMeters float64            `json:"distance_meters" bson:"distance_meters"`
	OnlineSeconds  int64              `json:"online_seconds" bson:"online_seconds"`
}
