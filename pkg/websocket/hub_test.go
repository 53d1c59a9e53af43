package websocket

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestClient(buffer int) *Client {
	return &Client{
		send:     make(chan []byte, buffer),
		UserID:   primitive.NewObjectID(),
		UserType: "rider",
		rooms:    make(map[string]bool),
	}
}

// A client whose send buffer is full is evicted from the hub and from
// every room it joined, so later room sends cannot hit its closed channel.
func TestSlowClientEvictedFromRooms(t *testing.T) {
	h := NewHub()
	room := "trip_" + primitive.NewObjectID().Hex()

	slow := newTestClient(0)
	healthy := newTestClient(8)

	h.mutex.Lock()
	h.clients[slow] = true
	h.clients[healthy] = true
	h.joinRoom(slow, room)
	h.joinRoom(healthy, room)
	h.mutex.Unlock()

	message := Message{Type: EventChatMessage, Data: map[string]interface{}{"text": "hello"}}
	h.SendToRoom(room, message)

	h.mutex.RLock()
	_, slowStillKnown := h.clients[slow]
	_, slowStillInRoom := h.rooms[room][slow]
	_, healthyStillInRoom := h.rooms[room][healthy]
	h.mutex.RUnlock()

	if slowStillKnown {
		t.Error("slow client should be evicted from the hub")
	}
	if slowStillInRoom {
		t.Error("slow client should be evicted from the room")
	}
	if !healthyStillInRoom {
		t.Error("healthy client should stay in the room")
	}
	if len(healthy.send) != 1 {
		t.Errorf("healthy client got %d messages, want 1", len(healthy.send))
	}

	// A second send must not reach the evicted client's closed channel.
	h.SendToRoom(room, message)
	if len(healthy.send) != 2 {
		t.Errorf("healthy client got %d messages, want 2", len(healthy.send))
	}
}

func TestEvictClientIdempotent(t *testing.T) {
	h := NewHub()
	client := newTestClient(0)

	h.mutex.Lock()
	h.clients[client] = true
	h.joinRoom(client, "trip_x")
	h.evictClientLocked(client)
	// Already gone; must not close the channel a second time.
	h.evictClientLocked(client)
	h.mutex.Unlock()

	if _, open := <-client.send; open {
		t.Error("send channel should be closed")
	}
	if len(h.rooms) != 0 {
		t.Errorf("rooms not emptied: %v", h.rooms)
	}
}
