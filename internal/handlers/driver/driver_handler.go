package driver

import (
	"context"
	"errors"
	"net/http"

	drivercache "godrive/internal/cache"
	"godrive/internal/coordinator"
	"godrive/internal/models"
	"godrive/internal/services"
	"godrive/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DriverHandler struct {
	manager       *coordinator.Manager
	driverService services.DriverService
	statsService  services.StatsService
	snapshots     drivercache.Store
}

func NewDriverHandler(manager *coordinator.Manager, driverService services.DriverService, statsService services.StatsService, snapshots drivercache.Store) *DriverHandler {
	return &DriverHandler{
		manager:       manager,
		driverService: driverService,
		statsService:  statsService,
		snapshots:     snapshots,
	}
}

type goOnlineRequest struct {
	DeviceProof string `json:"device_proof" binding:"required"`
}

// GoOnline authenticates the device, checks approval and opens a session
func (h *DriverHandler) GoOnline(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	var request goOnlineRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	session, err := h.manager.Coordinator(driverID).GoOnline(c.Request.Context(), request.DeviceProof)
	if err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "You are online", gin.H{
		"session_id":        session.ID,
		"online_since":      session.OnlineSince,
		"remaining_seconds": session.RemainingSeconds,
	})
}

// GoOffline ends the online session
func (h *DriverHandler) GoOffline(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	if err := h.manager.Coordinator(driverID).GoOffline(c.Request.Context()); err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "You are offline", nil)
}

// State returns the coordinator's current view of the driver
func (h *DriverHandler) State(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	state, err := h.manager.Coordinator(driverID).Snapshot(c.Request.Context())
	if err != nil {
		respondCoordinatorError(c, err)
		return
	}

	utils.SuccessResponse(c, "", state)
}

// Approval reports the driver's review status with its user-facing message
func (h *DriverHandler) Approval(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	approval, err := h.driverService.ApprovalStatus(c.Request.Context(), driverID)
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	message := utils.MsgDriverApproved
	switch approval {
	case models.ApprovalStatusPendingReview:
		message = utils.MsgDriverPendingReview
	case models.ApprovalStatusNotFound:
		message = utils.MsgDriverNotFound
	}

	utils.SuccessResponse(c, message, gin.H{"approval": approval})
}

// Stats returns the driver's daily aggregates
func (h *DriverHandler) Stats(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	stats, err := h.statsService.DailyStats(c.Request.Context(), driverID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "STATS_UNAVAILABLE", "Could not load today's stats")
		return
	}

	utils.SuccessResponse(c, "", stats)
}

// RemainingTime returns the seconds left before the daily online cap,
// falling back to the last-good snapshot if the lookup fails.
func (h *DriverHandler) RemainingTime(c *gin.Context) {
	driverID, ok := driverIDFromContext(c)
	if !ok {
		return
	}

	remaining, fromCache, err := drivercache.Fetch(c.Request.Context(), h.snapshots, driverID, drivercache.KindRemainingTime,
		func(ctx context.Context) (int64, error) {
			return h.driverService.RemainingSeconds(ctx, driverID)
		})
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "", gin.H{
		"remaining_seconds": remaining,
		"cached":            fromCache,
	})
}

func driverIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	driverID, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return primitive.NilObjectID, false
	}
	return driverID, true
}

// respondCoordinatorError maps loop and service errors onto the response
// envelope with the message the driver should see.
func respondCoordinatorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrDeviceAuthFailed):
		utils.ErrorResponse(c, http.StatusUnauthorized, "DEVICE_AUTH_FAILED", utils.MsgDeviceAuthGuidance)
	case errors.Is(err, services.ErrApprovalPending):
		utils.ErrorResponse(c, http.StatusForbidden, "APPROVAL_PENDING", utils.MsgDriverPendingReview)
	case errors.Is(err, services.ErrDriverNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "DRIVER_NOT_FOUND", utils.MsgDriverNotFound)
	case errors.Is(err, services.ErrDriverNotApproved):
		utils.ErrorResponse(c, http.StatusForbidden, "NOT_APPROVED", "Your account is not approved to drive")
	case errors.Is(err, services.ErrDailyCapReached):
		utils.ErrorResponse(c, http.StatusForbidden, "DAILY_CAP_REACHED", "You have reached today's online time limit")
	case errors.Is(err, coordinator.ErrAlreadyOnline):
		utils.ErrorResponse(c, http.StatusConflict, "ALREADY_ONLINE", "You are already online")
	case errors.Is(err, coordinator.ErrNotOnline):
		utils.ErrorResponse(c, http.StatusConflict, "NOT_ONLINE", "You are not online")
	case errors.Is(err, coordinator.ErrActiveTrip):
		utils.ErrorResponse(c, http.StatusConflict, "TRIP_IN_PROGRESS", utils.MsgOfflineWithTrip)
	case errors.Is(err, coordinator.ErrNoActiveTrip):
		utils.ErrorResponse(c, http.StatusConflict, "NO_ACTIVE_TRIP", "You have no trip in progress")
	case errors.Is(err, coordinator.ErrTooFarFromDropoff):
		utils.ErrorResponse(c, http.StatusConflict, "TOO_FAR_FROM_DROPOFF", "Get closer to the drop-off point to end the trip")
	case errors.Is(err, coordinator.ErrCancelReasonRequired):
		utils.ErrorResponse(c, http.StatusBadRequest, "REASON_REQUIRED", utils.MsgCancelReasonRequired)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_TRANSITION", "This trip can no longer be updated that way")
	case errors.Is(err, services.ErrTripNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "TRIP_NOT_FOUND", "Trip not found")
	default:
		utils.InternalServerErrorResponse(c)
	}
}
