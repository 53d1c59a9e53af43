package coordinator

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventType string

const (
	EventNewTripRequest EventType = "new_trip_request"
	EventTripCancelled  EventType = "trip_cancelled"
	EventTripAccepted   EventType = "trip_accepted"
	EventTripStarted    EventType = "trip_started"
	EventTripCompleted  EventType = "trip_completed"
	EventTripDeclined   EventType = "trip_declined"
	EventDriverArrived  EventType = "driver_arrived"
)

// Event is a realtime signal entering or leaving a coordinator. Inbound
// events are advisory triggers: the coordinator never applies their payload
// directly, it recomputes from the authoritative store instead.
type Event struct {
	Type     EventType          `json:"type"`
	TripID   primitive.ObjectID `json:"trip_id,omitempty"`
	DriverID primitive.ObjectID `json:"driver_id,omitempty"`
	RiderID  primitive.ObjectID `json:"rider_id,omitempty"`
	Reason   string             `json:"reason,omitempty"`
}

// Realtime is the transport the coordinator listens on and emits to. The
// cancel func returned by Subscribe releases the subscription.
type Realtime interface {
	Subscribe(driverID primitive.ObjectID) (<-chan Event, func())
	Emit(ctx context.Context, event Event) error
}
