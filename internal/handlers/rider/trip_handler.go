package rider

import (
	"errors"
	"net/http"

	"godrive/internal/models"
	"godrive/internal/services"
	"godrive/internal/utils"
	"godrive/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripHandler struct {
	tripService services.TripService
	notifier    services.NotificationService
}

func NewTripHandler(tripService services.TripService, notifier services.NotificationService) *TripHandler {
	return &TripHandler{tripService: tripService, notifier: notifier}
}

// Request creates a pending trip request and fans it out to the
// requested drivers
func (h *TripHandler) Request(c *gin.Context) {
	riderID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return
	}
	riderObjectID, ok := riderID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return
	}

	var input services.TripRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if fieldErrors := validators.ValidateStruct(&input); fieldErrors != nil {
		utils.ValidationErrorResponse(c, fieldErrors)
		return
	}
	if err := validators.ValidatePosition(input.PickupLat, input.PickupLng); err != nil {
		utils.BadRequestResponse(c, "Invalid pickup coordinates")
		return
	}
	if err := validators.ValidatePosition(input.DropoffLat, input.DropoffLng); err != nil {
		utils.BadRequestResponse(c, "Invalid drop-off coordinates")
		return
	}

	input.RiderID = riderObjectID
	trip, err := h.tripService.RequestTrip(c.Request.Context(), &input)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "TRIP_REQUEST_FAILED", "Failed to request trip")
		return
	}

	utils.SuccessResponse(c, "Trip requested", trip)
}

// Get returns one trip by id
func (h *TripHandler) Get(c *gin.Context) {
	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
		return
	}

	trip, err := h.tripService.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		if errors.Is(err, services.ErrTripNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "TRIP_NOT_FOUND", "Trip not found")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "", trip)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel aborts a trip from the rider side. The same mandatory-reason rule
// applies as for drivers.
func (h *TripHandler) Cancel(c *gin.Context) {
	tripID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid trip ID")
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

	updated, err := h.tripService.UpdateStatus(c.Request.Context(), tripID, models.TripStatusCanceled, services.StatusChange{
		Reason:     request.Reason,
		CanceledBy: "rider",
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) {
			utils.ErrorResponse(c, http.StatusConflict, "INVALID_TRANSITION", "This trip can no longer be canceled")
			return
		}
		utils.InternalServerErrorResponse(c)
		return
	}

	h.notifier.NotifyTripCancelled(updated, request.Reason)
	utils.SuccessResponse(c, "Trip canceled", nil)
}
