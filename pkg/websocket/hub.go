package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Hub struct {
	clients     map[*Client]bool
	broadcast   chan []byte
	register    chan *Client
	unregister  chan *Client
	rooms       map[string]map[*Client]bool
	subscribers map[string]map[chan Message]bool
	mutex       sync.RWMutex
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	UserID    primitive.ObjectID     `json:"user_id"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		broadcast:   make(chan []byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		rooms:       make(map[string]map[*Client]bool),
		subscribers: make(map[string]map[chan Message]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	log.Printf("Client registered: %s", client.UserID.Hex())

	// Join user to their personal room
	personalRoom := client.UserType + "_" + client.UserID.Hex()
	h.joinRoom(client, personalRoom)

	welcomeMsg := Message{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	}

	h.sendToClient(client, welcomeMsg)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		h.evictClientLocked(client)
		log.Printf("Client unregistered: %s", client.UserID.Hex())
	}
}

// evictClientLocked drops a client from the hub and every room it joined.
// The send channel is closed exactly once; a client already evicted is a
// no-op. Caller must hold the mutex.
func (h *Hub) evictClientLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID, room := range h.rooms {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if msg.RoomID != "" {
		h.SendToRoom(msg.RoomID, msg)
	} else {
		h.sendToAll(msg)
	}
}

func (h *Hub) sendToAll(message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, _ := json.Marshal(message)
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.evictClientLocked(client)
		}
	}
}

// SendToRoom delivers a message to every connected client in the room and
// to every channel subscription registered for it.
func (h *Hub) SendToRoom(roomID string, message Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	data, _ := json.Marshal(message)
	for client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			h.evictClientLocked(client)
		}
	}

	for ch := range h.subscribers[roomID] {
		select {
		case ch <- message:
		default:
			// Subscriber not keeping up; drop rather than block the hub.
		}
	}
}

func (h *Hub) sendToClient(client *Client, message Message) {
	data, _ := json.Marshal(message)
	select {
	case client.send <- data:
	default:
		h.evictClientLocked(client)
	}
}

func (h *Hub) SendToUser(userType string, userID primitive.ObjectID, message Message) {
	roomID := userType + "_" + userID.Hex()
	h.SendToRoom(roomID, message)
}

// SubscribeRoom registers an in-process listener for a room. The returned
// function removes the subscription and closes the channel; callers must
// invoke it on teardown to avoid duplicate handling.
func (h *Hub) SubscribeRoom(roomID string, buffer int) (<-chan Message, func()) {
	ch := make(chan Message, buffer)

	h.mutex.Lock()
	if h.subscribers[roomID] == nil {
		h.subscribers[roomID] = make(map[chan Message]bool)
	}
	h.subscribers[roomID][ch] = true
	h.mutex.Unlock()

	cancel := func() {
		h.mutex.Lock()
		if subs, ok := h.subscribers[roomID]; ok {
			if subs[ch] {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.subscribers, roomID)
			}
		}
		h.mutex.Unlock()
	}

	return ch, cancel
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) JoinTrip(client *Client, tripID primitive.ObjectID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	roomID := "trip_" + tripID.Hex()
	h.joinRoom(client, roomID)
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
