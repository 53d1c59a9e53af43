package services

import (
	"context"
	"fmt"
	"time"

	"godrive/internal/models"
	"godrive/internal/repositories/interfaces"
	"godrive/internal/utils"
	"godrive/pkg/logger"
	"godrive/pkg/maps"
	"godrive/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TripService interface {
	// RequestTrip creates a pending trip and notifies the requested drivers.
	RequestTrip(ctx context.Context, input *TripRequestInput) (*models.Trip, error)

	GetTrip(ctx context.Context, id primitive.ObjectID) (*models.Trip, error)

	// PendingForDriver returns the authoritative pending list for a driver.
	// The list may include requests past the visibility window; callers
	// filter with VisibleAt.
	PendingForDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Trip, error)

	ActiveForDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Trip, error)

	// UpdateStatus transitions a trip, enforcing the transition table. The
	// returned trip reflects the stored document after the update.
	UpdateStatus(ctx context.Context, tripID primitive.ObjectID, status models.TripStatus, change StatusChange) (*models.Trip, error)
}

type TripRequestInput struct {
	RiderID          primitive.ObjectID   `json:"rider_id" validate:"required"`
	RequestedDrivers []primitive.ObjectID `json:"requested_drivers"`
	PickupLat        float64              `json:"pickup_lat" validate:"required"`
	PickupLng        float64              `json:"pickup_lng" validate:"required"`
	PickupAddress    string               `json:"pickup_address"`
	DropoffLat       float64              `json:"dropoff_lat" validate:"required"`
	DropoffLng       float64              `json:"dropoff_lng" validate:"required"`
	DropoffAddress   string               `json:"dropoff_address"`
}

type StatusChange struct {
	DriverID         primitive.ObjectID
	Reason           string
	CanceledBy       string
	DistanceTraveled float64
}

type tripService struct {
	tripRepo     interfaces.TripRepository
	driverRepo   interfaces.DriverRepository
	mapsProvider maps.MapsProvider
	notifier     NotificationService
	logger       *logger.Logger
}

func NewTripService(
	tripRepo interfaces.TripRepository,
	driverRepo interfaces.DriverRepository,
	mapsProvider maps.MapsProvider,
	notifier NotificationService,
	log *logger.Logger,
) TripService {
	return &tripService{
		tripRepo:     tripRepo,
		driverRepo:   driverRepo,
		mapsProvider: mapsProvider,
		notifier:     notifier,
		logger:       log,
	}
}

func (s *tripService) RequestTrip(ctx context.Context, input *TripRequestInput) (*models.Trip, error) {
	trip := &models.Trip{
		RiderID:          input.RiderID,
		RequestedDrivers: input.RequestedDrivers,
		Pickup:           models.NewLocation(input.PickupLat, input.PickupLng, input.PickupAddress),
		Dropoff:          models.NewLocation(input.DropoffLat, input.DropoffLng, input.DropoffAddress),
		EstimatedDistance: s.estimateDistance(ctx,
			input.PickupLat, input.PickupLng, input.DropoffLat, input.DropoffLng),
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.logger.WithTripID(trip.ID).Infof("Trip requested by rider %s", input.RiderID.Hex())

	for _, driverID := range input.RequestedDrivers {
		driver, err := s.driverRepo.GetByID(ctx, driverID)
		if err != nil || driver == nil {
			s.logger.WithDriverID(driverID).Warn("Skipping notification for unknown driver")
			continue
		}
		s.notifier.NotifyNewTripRequest(ctx, driver, trip)
	}

	return trip, nil
}

// estimateDistance prefers the routing provider and falls back to the
// great-circle distance when it is unavailable.
func (s *tripService) estimateDistance(ctx context.Context, pickupLat, pickupLng, dropoffLat, dropoffLng float64) float64 {
	if s.mapsProvider != nil {
		estimate, err := s.mapsProvider.RouteDistance(ctx,
			maps.Location{Latitude: pickupLat, Longitude: pickupLng},
			maps.Location{Latitude: dropoffLat, Longitude: dropoffLng},
		)
		if err == nil {
			return estimate.DistanceMeters
		}
		s.logger.WithError(err).Warn("Route distance lookup failed, using haversine estimate")
	}

	return utils.CalculateDistance(pickupLat, pickupLng, dropoffLat, dropoffLng)
}

func (s *tripService) GetTrip(ctx context.Context, id primitive.ObjectID) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrTripNotFound
	}
	return trip, nil
}

// PendingForDriver fetches one extra window beyond the visibility cutoff so
// callers can observe just-expired requests and time them out.
func (s *tripService) PendingForDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Trip, error) {
	since := time.Now().Add(-2 * utils.PendingVisibilityWindow)
	return s.tripRepo.GetPendingForDriver(ctx, driverID, since)
}

func (s *tripService) ActiveForDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Trip, error) {
	return s.tripRepo.GetActiveForDriver(ctx, driverID)
}

func (s *tripService) UpdateStatus(ctx context.Context, tripID primitive.ObjectID, status models.TripStatus, change StatusChange) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrTripNotFound
	}

	if !trip.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trip.Status, status)
	}

	update := &interfaces.TripStatusUpdate{
		Status:             status,
		ExpectedStatus:     trip.Status,
		CancellationReason: change.Reason,
		CanceledBy:         change.CanceledBy,
		DistanceTraveled:   change.DistanceTraveled,
	}
	if status == models.TripStatusAccepted && !change.DriverID.IsZero() {
		driverID := change.DriverID
		update.DriverID = &driverID
	}

	updated, err := s.tripRepo.UpdateStatus(ctx, tripID, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// The conditional update missed: either the trip vanished or its
		// status moved underneath us between the read and the write.
		current, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	metrics.RecordTransition(string(trip.Status), string(status))
	s.logger.LogTripEvent(tripID, string(status), map[string]interface{}{
		"from": string(trip.Status),
	})

	return updated, nil
}
