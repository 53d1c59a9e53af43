package routes

import (
	"godrive/internal/handlers/driver"
	"godrive/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupDriverRoutes wires the driver-facing lifecycle endpoints
func SetupDriverRoutes(r *gin.RouterGroup, jwtSecret string, driverHandler *driver.DriverHandler, tripHandler *driver.TripHandler) {
	drivers := r.Group("/driver")
	drivers.Use(middleware.AuthRequired(jwtSecret), middleware.DriverRequired())
	{
		drivers.POST("/online", driverHandler.GoOnline)
		drivers.POST("/offline", driverHandler.GoOffline)
		drivers.GET("/state", driverHandler.State)
		drivers.GET("/approval", driverHandler.Approval)
		drivers.GET("/stats", driverHandler.Stats)
		drivers.GET("/remaining-time", driverHandler.RemainingTime)
		drivers.POST("/position", tripHandler.Position)

		trips := drivers.Group("/trips")
		{
			trips.GET("/pending", tripHandler.Pending)
			trips.GET("/active", tripHandler.Active)
			trips.POST("/:id/accept", tripHandler.Accept)
			trips.POST("/:id/decline", tripHandler.Decline)
			trips.POST("/cancel", tripHandler.Cancel)
			trips.POST("/end", tripHandler.End)
		}
	}
}
