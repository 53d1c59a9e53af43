package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripStatus string

const (
	TripStatusPending    TripStatus = "pending"
	TripStatusAccepted   TripStatus = "accepted"
	TripStatusOnGoing    TripStatus = "on_going"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCanceled   TripStatus = "canceled"
	TripStatusDeclined   TripStatus = "declined"
	TripStatusNoResponse TripStatus = "no_response"
)

// tripTransitions is the closed transition table for the trip lifecycle.
// Any transition not listed here is invalid.
var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusPending:  {TripStatusAccepted, TripStatusCanceled, TripStatusDeclined, TripStatusNoResponse},
	TripStatusAccepted: {TripStatusOnGoing, TripStatusCanceled},
	TripStatusOnGoing:  {TripStatusCompleted, TripStatusCanceled},
}

// tripStages orders statuses along the lifecycle so a fetched status can be
// compared against a locally confirmed one. Terminal statuses share the
// highest stage.
var tripStages = map[TripStatus]int{
	TripStatusPending:    1,
	TripStatusAccepted:   2,
	TripStatusOnGoing:    3,
	TripStatusCompleted:  4,
	TripStatusCanceled:   4,
	TripStatusDeclined:   4,
	TripStatusNoResponse: 4,
}

func (s TripStatus) Valid() bool {
	_, ok := tripStages[s]
	return ok
}

func (s TripStatus) CanTransitionTo(next TripStatus) bool {
	for _, allowed := range tripTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the trip lifecycle.
func (s TripStatus) Terminal() bool {
	return tripStages[s] == 4
}

// Active reports whether a driver holding a trip in this status is committed
// to it and cannot go offline or take another request.
func (s TripStatus) Active() bool {
	return s == TripStatusAccepted || s == TripStatusOnGoing
}

// Stage returns the lifecycle stage used for downgrade protection: a status
// with a lower stage never overwrites one with a higher stage.
func (s TripStatus) Stage() int {
	return tripStages[s]
}

type Trip struct {
	ID                 primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	RiderID            primitive.ObjectID   `json:"rider_id" bson:"rider_id" validate:"required"`
	DriverID           *primitive.ObjectID  `json:"driver_id" bson:"driver_id"`
	RequestedDrivers   []primitive.ObjectID `json:"requested_drivers" bson:"requested_drivers"`
	Status             TripStatus           `json:"status" bson:"status" default:"pending"`
	Pickup             Location             `json:"pickup" bson:"pickup" validate:"required"`
	Dropoff            Location             `json:"dropoff" bson:"dropoff" validate:"required"`
	EstimatedDistance  float64              `json:"estimated_distance" bson:"estimated_distance"` // meters
	DistanceTraveled   float64              `json:"distance_traveled" bson:"distance_traveled"`   // meters
	CancellationReason string               `json:"cancellation_reason" bson:"cancellation_reason"`
	CanceledBy         string               `json:"canceled_by" bson:"canceled_by"`
	AcceptedAt         *time.Time           `json:"accepted_at" bson:"accepted_at"`
	StartedAt          *time.Time           `json:"started_at" bson:"started_at"`
	CompletedAt        *time.Time           `json:"completed_at" bson:"completed_at"`
	CanceledAt         *time.Time           `json:"canceled_at" bson:"canceled_at"`
	CreatedAt          time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" bson:"updated_at"`
}

// Age returns how long ago the trip request was created.
func (t *Trip) Age(now time.Time) time.Duration {
	return now.Sub(t.CreatedAt)
}

// VisibleAt reports whether a pending request is still inside its
// visibility window at the given instant.
func (t *Trip) VisibleAt(now time.Time, window time.Duration) bool {
	return t.Status == TripStatusPending && t.Age(now) < window
}
