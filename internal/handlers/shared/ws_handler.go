package shared

import (
	"godrive/internal/utils"
	"godrive/pkg/logger"
	"godrive/pkg/metrics"
	"godrive/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type WSHandler struct {
	hub    *websocket.Hub
	logger *logger.Logger
}

func NewWSHandler(hub *websocket.Hub, log *logger.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: log}
}

// Connect upgrades the request and attaches the client to its personal
// room. Identity comes from the auth middleware, not the query string.
func (h *WSHandler) Connect(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return
	}
	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}
	userType := c.GetString("user_type")

	conn, err := websocket.Upgrade(c.Writer, c.Request)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	metrics.WebSocketConnectionsGauge.Inc()
	client := websocket.NewClient(h.hub, conn, userObjectID, userType)
	client.OnClose = metrics.WebSocketConnectionsGauge.Dec
	client.Start()
}
