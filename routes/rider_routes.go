package routes

import (
	"godrive/internal/handlers/rider"
	"godrive/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRiderRoutes wires the rider-facing trip endpoints
func SetupRiderRoutes(r *gin.RouterGroup, jwtSecret string, tripHandler *rider.TripHandler) {
	riders := r.Group("/rider")
	riders.Use(middleware.AuthRequired(jwtSecret), middleware.RiderRequired())
	{
		trips := riders.Group("/trips")
		{
			trips.POST("/", tripHandler.Request)
			trips.GET("/:id", tripHandler.Get)
			trips.POST("/:id/cancel", tripHandler.Cancel)
		}
	}
}
