package services

import (
	"context"
	"fmt"

	"godrive/internal/models"
	"godrive/pkg/logger"
	"godrive/pkg/metrics"
	"godrive/pkg/push"
	"godrive/pkg/websocket"
)

type NotificationService interface {
	NotifyNewTripRequest(ctx context.Context, driver *models.Driver, trip *models.Trip)
	NotifyTripCancelled(trip *models.Trip, reason string)
	NotifyPendingCount(driverID string, count int, countdownSeconds int)
}

type notificationService struct {
	hub       *websocket.Hub
	providers map[string]push.PushProvider // keyed by device platform
	logger    *logger.Logger
}

func NewNotificationService(hub *websocket.Hub, providers map[string]push.PushProvider, log *logger.Logger) NotificationService {
	return &notificationService{
		hub:       hub,
		providers: providers,
		logger:    log,
	}
}

// NotifyNewTripRequest fans a new pending request out over the realtime
// channel and, when the driver has a registered device, over push.
func (s *notificationService) NotifyNewTripRequest(ctx context.Context, driver *models.Driver, trip *models.Trip) {
	s.hub.SendToUser("driver", driver.ID, websocket.Message{
		Type:   websocket.EventNewTripRequest,
		UserID: trip.RiderID,
		Data: map[string]interface{}{
			"trip_id":         trip.ID.Hex(),
			"pickup_address":  trip.Pickup.Address,
			"dropoff_address": trip.Dropoff.Address,
			"created_at":      trip.CreatedAt.Unix(),
		},
	})
	metrics.RecordNotification("websocket", nil)

	if driver.DeviceToken == "" {
		return
	}

	provider, ok := s.providers[driver.DevicePlatform]
	if !ok {
		s.logger.WithDriverID(driver.ID).Warnf("No push provider for platform %q", driver.DevicePlatform)
		return
	}

	_, err := provider.SendNotification(ctx, &push.NotificationRequest{
		Token: driver.DeviceToken,
		Title: "New trip request",
		Body:  fmt.Sprintf("Pickup at %s", trip.Pickup.Address),
		Sound: "default",
		Data: map[string]string{
			"trip_id": trip.ID.Hex(),
			"type":    websocket.EventNewTripRequest,
		},
	})
	metrics.RecordNotification("push", err)
	if err != nil {
		s.logger.WithDriverID(driver.ID).WithError(err).Warn("Push notification failed")
	}
}

// NotifyTripCancelled tells the assigned driver that the rider pulled the
// trip. The payload is a trigger only; the driver side refetches before
// acting on it.
func (s *notificationService) NotifyTripCancelled(trip *models.Trip, reason string) {
	if trip.DriverID == nil {
		return
	}
	s.hub.SendToUser("driver", *trip.DriverID, websocket.Message{
		Type:   websocket.EventTripCancelled,
		UserID: trip.RiderID,
		Data: map[string]interface{}{
			"trip_id": trip.ID.Hex(),
			"reason":  reason,
		},
	})
	metrics.RecordNotification("websocket", nil)
}

// NotifyPendingCount pushes the recomputed pending counter and countdown to
// the driver's realtime room so the client can animate its indicator.
func (s *notificationService) NotifyPendingCount(driverID string, count int, countdownSeconds int) {
	s.hub.SendToRoom("driver_"+driverID, websocket.Message{
		Type: websocket.EventPendingCount,
		Data: map[string]interface{}{
			"count":     count,
			"countdown": countdownSeconds,
		},
	})
}
