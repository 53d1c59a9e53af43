package services

import (
	"context"
	"fmt"
	"time"

	"godrive/internal/models"
	"godrive/internal/repositories/interfaces"
	"godrive/internal/utils"
	"godrive/pkg/cache"
	"godrive/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const driverGeoKey = "godrive:driver_locations"

type DriverService interface {
	GetDriver(ctx context.Context, id primitive.ObjectID) (*models.Driver, error)

	// ApprovalStatus distinguishes approved, pending-review and not-found;
	// each maps to a distinct user-facing message.
	ApprovalStatus(ctx context.Context, driverID primitive.ObjectID) (models.ApprovalStatus, error)

	// StartSession opens a new online session. It fails when the daily
	// online-time cap is exhausted.
	StartSession(ctx context.Context, driverID primitive.ObjectID) (*models.DriverSession, error)

	// EndSession records the session end time and worked duration and
	// returns the worked seconds.
	EndSession(ctx context.Context, driverID primitive.ObjectID, sessionID string) (int64, error)

	RemainingSeconds(ctx context.Context, driverID primitive.ObjectID) (int64, error)

	SetOnTrip(ctx context.Context, driverID primitive.ObjectID, onTrip bool) error

	// SaveLocation persists the driver position to the shared location
	// store and the driver document.
	SaveLocation(ctx context.Context, driverID primitive.ObjectID, lat, lng float64) error
}

type driverService struct {
	driverRepo  interfaces.DriverRepository
	sessionRepo interfaces.SessionRepository
	redis       *cache.RedisCache
	logger      *logger.Logger
}

func NewDriverService(
	driverRepo interfaces.DriverRepository,
	sessionRepo interfaces.SessionRepository,
	redisCache *cache.RedisCache,
	log *logger.Logger,
) DriverService {
	return &driverService{
		driverRepo:  driverRepo,
		sessionRepo: sessionRepo,
		redis:       redisCache,
		logger:      log,
	}
}

func (s *driverService) GetDriver(ctx context.Context, id primitive.ObjectID) (*models.Driver, error) {
	return s.driverRepo.GetByID(ctx, id)
}

func (s *driverService) ApprovalStatus(ctx context.Context, driverID primitive.ObjectID) (models.ApprovalStatus, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return "", err
	}
	if driver == nil {
		return models.ApprovalStatusNotFound, nil
	}
	return driver.Approval, nil
}

func (s *driverService) StartSession(ctx context.Context, driverID primitive.ObjectID) (*models.DriverSession, error) {
	remaining, err := s.RemainingSeconds(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		return nil, ErrDailyCapReached
	}

	session := &models.DriverSession{
		ID:               uuid.NewString(),
		DriverID:         driverID,
		OnlineSince:      time.Now(),
		RemainingSeconds: remaining,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, models.DriverStatusOnline); err != nil {
		return nil, err
	}

	s.logger.WithDriverID(driverID).WithSessionID(session.ID).Info("Driver session started")
	return session, nil
}

func (s *driverService) EndSession(ctx context.Context, driverID primitive.ObjectID, sessionID string) (int64, error) {
	session, err := s.sessionRepo.GetOpenByDriver(ctx, driverID)
	if err != nil {
		return 0, err
	}
	if session == nil || session.ID != sessionID {
		return 0, ErrSessionNotFound
	}

	now := time.Now()
	worked := int64(now.Sub(session.OnlineSince).Seconds())

	if err := s.sessionRepo.End(ctx, sessionID, now, worked); err != nil {
		return 0, err
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, models.DriverStatusOffline); err != nil {
		return 0, err
	}

	s.logger.WithDriverID(driverID).WithSessionID(sessionID).Infof("Driver session ended after %ds", worked)
	return worked, nil
}

func (s *driverService) RemainingSeconds(ctx context.Context, driverID primitive.ObjectID) (int64, error) {
	dayStart := startOfDay(time.Now())
	worked, err := s.sessionRepo.WorkedSecondsSince(ctx, driverID, dayStart)
	if err != nil {
		return 0, err
	}

	remaining := int64(utils.DailyOnlineCapSeconds) - worked
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *driverService) SetOnTrip(ctx context.Context, driverID primitive.ObjectID, onTrip bool) error {
	status := models.DriverStatusOnline
	if onTrip {
		status = models.DriverStatusOnTrip
	}
	return s.driverRepo.UpdateStatus(ctx, driverID, status)
}

func (s *driverService) SaveLocation(ctx context.Context, driverID primitive.ObjectID, lat, lng float64) error {
	if !utils.IsValidCoordinates(lat, lng) {
		return fmt.Errorf("invalid coordinates: %f,%f", lat, lng)
	}

	if err := s.redis.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      driverID.Hex(),
		Latitude:  lat,
		Longitude: lng,
	}); err != nil {
		return fmt.Errorf("failed to save driver location: %w", err)
	}

	location := models.NewLocation(lat, lng, "")
	return s.driverRepo.UpdateLocation(ctx, driverID, &location)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
