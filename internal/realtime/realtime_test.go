package realtime

import (
	"context"
	"testing"
	"time"

	"godrive/internal/coordinator"
	"godrive/pkg/logger"
	"godrive/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRealtime(t *testing.T) (*hubRealtime, *websocket.Hub) {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	hub := websocket.NewHub()
	return NewHubRealtime(hub, log).(*hubRealtime), hub
}

func TestEmitUsesOutboundWireNames(t *testing.T) {
	rt, hub := newTestRealtime(t)
	driverID := primitive.NewObjectID()
	riderID := primitive.NewObjectID()
	tripID := primitive.NewObjectID()

	messages, cancel := hub.SubscribeRoom("rider_"+riderID.Hex(), subscriptionBuffer)
	defer cancel()

	cases := []struct {
		event coordinator.EventType
		wire  string
	}{
		{coordinator.EventTripAccepted, websocket.EventAcceptTrip},
		{coordinator.EventTripDeclined, websocket.EventDeclineTrip},
		{coordinator.EventDriverArrived, websocket.EventDriverArrived},
		{coordinator.EventTripStarted, websocket.EventStartTrip},
		{coordinator.EventTripCompleted, websocket.EventEndTrip},
		{coordinator.EventTripCancelled, websocket.EventTripCancelled},
	}

	for _, tc := range cases {
		err := rt.Emit(context.Background(), coordinator.Event{
			Type:     tc.event,
			TripID:   tripID,
			DriverID: driverID,
			RiderID:  riderID,
		})
		if err != nil {
			t.Fatalf("Emit(%s): %v", tc.event, err)
		}

		select {
		case message := <-messages:
			if message.Type != tc.wire {
				t.Errorf("%s sent as %q, want %q", tc.event, message.Type, tc.wire)
			}
			if message.Data["trip_id"] != tripID.Hex() {
				t.Errorf("%s trip_id = %v, want %s", tc.event, message.Data["trip_id"], tripID.Hex())
			}
		case <-time.After(time.Second):
			t.Fatalf("no message reached the rider room for %s", tc.event)
		}
	}
}

// A consumer that stops draining its event channel must not wedge the
// forwarding goroutine: overflow is dropped, and cancel still closes the
// channel promptly.
func TestSubscribeDropsOverflowForStalledConsumer(t *testing.T) {
	rt, hub := newTestRealtime(t)
	driverID := primitive.NewObjectID()

	events, cancel := rt.Subscribe(driverID)
	room := "driver_" + driverID.Hex()

	sent := 4 * subscriptionBuffer
	for i := 0; i < sent; i++ {
		hub.SendToRoom(room, websocket.Message{
			Type: websocket.EventNewTripRequest,
			Data: map[string]interface{}{"trip_id": primitive.NewObjectID().Hex()},
		})
	}

	cancel()
	// Give the forwarder time to finish; it must not be blocked on the
	// full events channel.
	time.Sleep(100 * time.Millisecond)

	deadline := time.After(2 * time.Second)
	received := 0
	for {
		select {
		case _, ok := <-events:
			if !ok {
				if received > 2*subscriptionBuffer {
					t.Errorf("received %d events, want at most %d after drops", received, 2*subscriptionBuffer)
				}
				return
			}
			received++
		case <-deadline:
			t.Fatal("events channel never closed after cancel")
		}
	}
}
