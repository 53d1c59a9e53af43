package services

import (
	"context"
	"time"

	"godrive/internal/models"
	"godrive/internal/repositories/interfaces"
	"godrive/internal/utils"
	"godrive/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type StatsService interface {
	// DailyStats aggregates the driver's day. A failed fetch is retried
	// exactly once after a fixed delay; a second failure is returned.
	DailyStats(ctx context.Context, driverID primitive.ObjectID) (*models.DriverStats, error)
}

type statsService struct {
	tripRepo    interfaces.TripRepository
	sessionRepo interfaces.SessionRepository
	retryDelay  time.Duration
	logger      *logger.Logger
}

func NewStatsService(tripRepo interfaces.TripRepository, sessionRepo interfaces.SessionRepository, log *logger.Logger) StatsService {
	return &statsService{
		tripRepo:    tripRepo,
		sessionRepo: sessionRepo,
		retryDelay:  utils.StatsRetryDelay,
		logger:      log,
	}
}

func (s *statsService) DailyStats(ctx context.Context, driverID primitive.ObjectID) (*models.DriverStats, error) {
	stats, err := s.fetch(ctx, driverID)
	if err == nil {
		return stats, nil
	}

	s.logger.WithDriverID(driverID).WithError(err).Warnf("Stats fetch failed, retrying in %s", s.retryDelay)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.retryDelay):
	}

	return s.fetch(ctx, driverID)
}

func (s *statsService) fetch(ctx context.Context, driverID primitive.ObjectID) (*models.DriverStats, error) {
	dayStart := startOfDay(time.Now())

	stats, err := s.tripRepo.DailyStats(ctx, driverID, dayStart)
	if err != nil {
		return nil, err
	}

	online, err := s.sessionRepo.WorkedSecondsSince(ctx, driverID, dayStart)
	if err != nil {
		return nil, err
	}
	stats.OnlineSeconds = online

	return stats, nil
}
