package driver

import (
	"net/http"

	"godrive/internal/coordinator"
	"godrive/internal/services"
	"godrive/internal/utils"
	"godrive/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripHandler struct {
	manager     *coordinator.Manager
	tripService services.TripService
}

func NewTripHandler(manager *coordinator.Manager, tripService services.TripService) *TripHandler {
	return &TripHandler{
		manager:     manager,
		tripService: tripService,
	}
}

// Pending returns the driver's request surface: visible pending requests
// with the shared countdown
func (h *TripHandler) Pending(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	trips, err := h.tripService.PendingForDriver(c.Request.Context(), driverID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "PENDING_UNAVAILABLE", "Could not load pending requests")
		return
	}

	state, err := h.manager.Coordinator(driverID).Snapshot(c.Request.Context())
	if err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "", gin.H{
		"trips":             trips,
		"count":             state.PendingCount,
		"countdown_seconds": state.CountdownSeconds,
	})
}

// Active returns the driver's in-progress trip, if any
func (h *TripHandler) Active(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	state, err := h.manager.Coordinator(driverID).Snapshot(c.Request.Context())
	if err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "", gin.H{
		"trip":            state.ActiveTrip,
		"trip_started":    state.TripStarted,
		"can_end_trip":    state.CanEndTrip,
		"distance_meters": state.DistanceMeters,
		"eta":             state.ETA,
	})
}

// Accept claims a pending request
func (h *TripHandler) Accept(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	trip, err := h.manager.Coordinator(driverID).Accept(c.Request.Context(), tripID)
	if err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip accepted", trip)
}

// Decline rejects a pending request
func (h *TripHandler) Decline(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	if err := h.manager.Coordinator(driverID).Decline(c.Request.Context(), tripID); err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip declined", nil)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel aborts the active trip with a mandatory reason
func (h *TripHandler) Cancel(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	var request cancelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if err := validators.ValidateCancellationReason(request.Reason); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "REASON_REQUIRED", utils.MsgCancelReasonRequired)
		return
	}

	if err := h.manager.Coordinator(driverID).Cancel(c.Request.Context(), request.Reason); err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip canceled", nil)
}

// End completes the active trip, gated on drop-off proximity
func (h *TripHandler) End(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	trip, err := h.manager.Coordinator(driverID).EndTrip(c.Request.Context())
	if err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "Trip completed", trip)
}

type positionRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
}

// Position feeds a GPS fix into the coordinator
func (h *TripHandler) Position(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	var request positionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if err := validators.ValidatePosition(request.Latitude, request.Longitude); err != nil {
		utils.BadRequestResponse(c, "Invalid coordinates")
		return
	}

	if err := h.manager.Coordinator(driverID).OnPosition(c.Request.Context(), request.Latitude, request.Longitude); err != nil {
		respondCoordinatorError(c, err)
		return
	}

	state, err := h.manager.Coordinator(driverID).Snapshot(c.Request.Context())
	if err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "", gin.H{
		"trip_started":    state.TripStarted,
		"can_end_trip":    state.CanEndTrip,
		"distance_meters": state.DistanceMeters,
		"eta":             state.ETA,
	})
}
