// Package realtime bridges the websocket hub and the per-driver
// coordinators: hub messages addressed to a driver's room become
// coordinator events, and coordinator events fan out to the rider's room.
package realtime

import (
	"context"

	"godrive/internal/coordinator"
	"godrive/pkg/logger"
	"godrive/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const subscriptionBuffer = 16

type hubRealtime struct {
	hub    *websocket.Hub
	logger *logger.Logger
}

func NewHubRealtime(hub *websocket.Hub, log *logger.Logger) coordinator.Realtime {
	return &hubRealtime{hub: hub, logger: log}
}

func (r *hubRealtime) Subscribe(driverID primitive.ObjectID) (<-chan coordinator.Event, func()) {
	messages, cancel := r.hub.SubscribeRoom("driver_"+driverID.Hex(), subscriptionBuffer)

	events := make(chan coordinator.Event, subscriptionBuffer)
	go func() {
		defer close(events)
		for message := range messages {
			event, ok := r.translate(message)
			if !ok {
				continue
			}
			event.DriverID = driverID
			select {
			case events <- event:
			default:
				// Coordinator not keeping up; drop rather than block the
				// forwarder, same policy as the hub's subscriber fan-out.
				r.logger.WithDriverID(driverID).Debugf("Dropping %s event, subscriber full", event.Type)
			}
		}
	}()

	return events, cancel
}

func (r *hubRealtime) translate(message websocket.Message) (coordinator.Event, bool) {
	var eventType coordinator.EventType
	switch message.Type {
	case websocket.EventNewTripRequest:
		eventType = coordinator.EventNewTripRequest
	case websocket.EventTripCancelled:
		eventType = coordinator.EventTripCancelled
	default:
		return coordinator.Event{}, false
	}

	event := coordinator.Event{Type: eventType, RiderID: message.UserID}
	if raw, ok := message.Data["trip_id"].(string); ok {
		tripID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			r.logger.WithError(err).Warnf("Dropping %s event with bad trip id %q", message.Type, raw)
			return coordinator.Event{}, false
		}
		event.TripID = tripID
	}
	if reason, ok := message.Data["reason"].(string); ok {
		event.Reason = reason
	}
	return event, true
}

// outboundWireType maps a coordinator event onto the wire name the mobile
// clients listen for.
func outboundWireType(t coordinator.EventType) string {
	switch t {
	case coordinator.EventTripAccepted:
		return websocket.EventAcceptTrip
	case coordinator.EventTripDeclined:
		return websocket.EventDeclineTrip
	case coordinator.EventDriverArrived:
		return websocket.EventDriverArrived
	case coordinator.EventTripStarted:
		return websocket.EventStartTrip
	case coordinator.EventTripCompleted:
		return websocket.EventEndTrip
	case coordinator.EventTripCancelled:
		return websocket.EventTripCancelled
	default:
		return string(t)
	}
}

func (r *hubRealtime) Emit(ctx context.Context, event coordinator.Event) error {
	message := websocket.Message{
		Type:   outboundWireType(event.Type),
		UserID: event.DriverID,
		Data: map[string]interface{}{
			"trip_id":   event.TripID.Hex(),
			"driver_id": event.DriverID.Hex(),
		},
	}
	if event.Reason != "" {
		message.Data["reason"] = event.Reason
	}

	r.hub.SendToUser("rider", event.RiderID, message)
	return nil
}
