package routes

import (
	"godrive/internal/handlers/shared"
	"godrive/internal/middleware"
	"godrive/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// SetupSharedRoutes wires the websocket entrypoint and the operational
// endpoints
func SetupSharedRoutes(r *gin.Engine, jwtSecret string, wsHandler *shared.WSHandler, chatHandler *shared.ChatHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	ws := r.Group("/ws")
	ws.Use(middleware.AuthRequired(jwtSecret))
	{
		ws.GET("", wsHandler.Connect)
	}

	chat := r.Group("/api/v1/trips")
	chat.Use(middleware.AuthRequired(jwtSecret))
	{
		chat.POST("/:id/chat", chatHandler.Send)
	}
}
