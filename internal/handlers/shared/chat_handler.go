package shared

import (
	"time"

	"godrive/internal/models"
	"godrive/internal/utils"
	"godrive/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatHandler struct {
	hub *websocket.Hub
}

func NewChatHandler(hub *websocket.Hub) *ChatHandler {
	return &ChatHandler{hub: hub}
}

type sendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// Send relays a chat message to the trip room. Either participant can post;
// delivery is realtime only.
func (h *ChatHandler) Send(c *gin.Context) {
	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	senderID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return
	}
	senderObjectID, ok := senderID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	var request sendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if len(request.Body) > utils.MaxMessageLength {
		utils.BadRequestResponse(c, "Message too long")
		return
	}

	message := models.ChatMessage{
		ID:       primitive.NewObjectID(),
		TripID:   tripID,
		SenderID: senderObjectID,
		Body:     request.Body,
		SentAt:   time.Now(),
	}

	h.hub.SendToRoom("trip_"+tripID.Hex(), websocket.Message{
		Type:   websocket.EventChatMessage,
		RoomID: "trip_" + tripID.Hex(),
		UserID: senderObjectID,
		Data: map[string]interface{}{
			"message_id": message.ID.Hex(),
			"trip_id":    message.TripID.Hex(),
			"body":       message.Body,
			"sent_at":    message.SentAt.Unix(),
		},
	})

	utils.SuccessResponse(c, "Message sent", message)
}
