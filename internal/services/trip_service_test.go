package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"godrive/internal/models"
	"godrive/internal/repositories/interfaces"
	"godrive/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// transitionRepoMock separates what GetByID reads from the status the
// conditional update compares against, so a stale read can race the write.
type transitionRepoMock struct {
	read       *models.Trip
	stored     models.TripStatus
	lastUpdate *interfaces.TripStatusUpdate
	applies    int
}

func (m *transitionRepoMock) Create(context.Context, *models.Trip) error { return nil }

func (m *transitionRepoMock) GetByID(context.Context, primitive.ObjectID) (*models.Trip, error) {
	if m.read == nil {
		return nil, nil
	}
	out := *m.read
	return &out, nil
}

func (m *transitionRepoMock) GetPendingForDriver(context.Context, primitive.ObjectID, time.Time) ([]*models.Trip, error) {
	return nil, nil
}

func (m *transitionRepoMock) GetActiveForDriver(context.Context, primitive.ObjectID) (*models.Trip, error) {
	return nil, nil
}

func (m *transitionRepoMock) UpdateStatus(_ context.Context, _ primitive.ObjectID, update *interfaces.TripStatusUpdate) (*models.Trip, error) {
	m.lastUpdate = update
	if update.ExpectedStatus != m.stored {
		return nil, nil
	}
	m.applies++
	m.stored = update.Status

	out := *m.read
	out.Status = update.Status
	if update.DriverID != nil {
		driverID := *update.DriverID
		out.DriverID = &driverID
	}
	return &out, nil
}

func (m *transitionRepoMock) DailyStats(context.Context, primitive.ObjectID, time.Time) (*models.DriverStats, error) {
	return nil, nil
}

type notifierStub struct{}

func (notifierStub) NotifyNewTripRequest(context.Context, *models.Driver, *models.Trip) {}
func (notifierStub) NotifyTripCancelled(*models.Trip, string)                           {}
func (notifierStub) NotifyPendingCount(string, int, int)                                {}

func newTransitionFixture(t *testing.T, repo *transitionRepoMock) TripService {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewTripService(repo, nil, nil, notifierStub{}, log)
}

func TestUpdateStatusConditionsOnPriorStatus(t *testing.T) {
	trip := &models.Trip{ID: primitive.NewObjectID(), Status: models.TripStatusPending}
	repo := &transitionRepoMock{read: trip, stored: models.TripStatusPending}
	service := newTransitionFixture(t, repo)

	driverID := primitive.NewObjectID()
	updated, err := service.UpdateStatus(context.Background(), trip.ID, models.TripStatusAccepted, StatusChange{DriverID: driverID})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.TripStatusAccepted {
		t.Errorf("status = %s, want accepted", updated.Status)
	}
	if updated.DriverID == nil || *updated.DriverID != driverID {
		t.Errorf("driver = %v, want %s", updated.DriverID, driverID.Hex())
	}
	if repo.lastUpdate.ExpectedStatus != models.TripStatusPending {
		t.Errorf("update conditioned on %q, want pending", repo.lastUpdate.ExpectedStatus)
	}
}

// Two drivers racing for the same pending trip: the second update sees a
// stale pending read but the store has already moved to accepted. The
// conditional write must miss instead of overwriting the winner.
func TestUpdateStatusLostRaceDoesNotOverwrite(t *testing.T) {
	trip := &models.Trip{ID: primitive.NewObjectID(), Status: models.TripStatusPending}
	repo := &transitionRepoMock{read: trip, stored: models.TripStatusAccepted}
	service := newTransitionFixture(t, repo)

	_, err := service.UpdateStatus(context.Background(), trip.ID, models.TripStatusAccepted, StatusChange{DriverID: primitive.NewObjectID()})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("got %v, want invalid transition", err)
	}
	if repo.applies != 0 {
		t.Errorf("update applied %d times, want 0", repo.applies)
	}
}
