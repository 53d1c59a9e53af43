package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	drivercache "godrive/internal/cache"
	"godrive/internal/models"
	"godrive/internal/services"
	"godrive/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type tripServiceMock struct {
	mu          sync.Mutex
	trips       map[primitive.ObjectID]*models.Trip
	active      *models.Trip
	pendingErr  error
	updateErr   map[models.TripStatus]error
	updateCalls []models.TripStatus
}

func newTripServiceMock() *tripServiceMock {
	return &tripServiceMock{
		trips:     make(map[primitive.ObjectID]*models.Trip),
		updateErr: make(map[models.TripStatus]error),
	}
}

func (m *tripServiceMock) addPending(age time.Duration) *models.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip := &models.Trip{
		ID:        primitive.NewObjectID(),
		RiderID:   primitive.NewObjectID(),
		Status:    models.TripStatusPending,
		Pickup:    models.NewLocation(40.7128, -74.0060, "pickup"),
		Dropoff:   models.NewLocation(40.7300, -74.0000, "dropoff"),
		CreatedAt: time.Now().Add(-age),
	}
	m.trips[trip.ID] = trip
	return trip
}

func (m *tripServiceMock) updates(status models.TripStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.updateCalls {
		if s == status {
			n++
		}
	}
	return n
}

func (m *tripServiceMock) RequestTrip(context.Context, *services.TripRequestInput) (*models.Trip, error) {
	return nil, errors.New("not implemented")
}

func (m *tripServiceMock) GetTrip(_ context.Context, id primitive.ObjectID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, services.ErrTripNotFound
	}
	out := *trip
	return &out, nil
}

func (m *tripServiceMock) PendingForDriver(context.Context, primitive.ObjectID) ([]*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingErr != nil {
		return nil, m.pendingErr
	}
	var out []*models.Trip
	for _, trip := range m.trips {
		if trip.Status == models.TripStatusPending {
			t := *trip
			out = append(out, &t)
		}
	}
	return out, nil
}

func (m *tripServiceMock) ActiveForDriver(context.Context, primitive.ObjectID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, nil
	}
	out := *m.active
	return &out, nil
}

func (m *tripServiceMock) UpdateStatus(_ context.Context, tripID primitive.ObjectID, status models.TripStatus, change services.StatusChange) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls = append(m.updateCalls, status)
	if err := m.updateErr[status]; err != nil {
		return nil, err
	}
	trip, ok := m.trips[tripID]
	if !ok {
		return nil, services.ErrTripNotFound
	}
	if !trip.Status.CanTransitionTo(status) {
		return nil, services.ErrInvalidTransition
	}
	trip.Status = status
	if status == models.TripStatusAccepted {
		driverID := change.DriverID
		trip.DriverID = &driverID
		m.active = trip
	}
	if status.Terminal() && m.active != nil && m.active.ID == trip.ID {
		m.active = nil
	}
	out := *trip
	return &out, nil
}

type driverServiceMock struct {
	mu         sync.Mutex
	approval   models.ApprovalStatus
	startCalls int
	endCalls   int
	startErr   error
	onTrip     []bool
}

func (m *driverServiceMock) GetDriver(context.Context, primitive.ObjectID) (*models.Driver, error) {
	return nil, nil
}

func (m *driverServiceMock) ApprovalStatus(context.Context, primitive.ObjectID) (models.ApprovalStatus, error) {
	return m.approval, nil
}

func (m *driverServiceMock) StartSession(_ context.Context, driverID primitive.ObjectID) (*models.DriverSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	if m.startErr != nil {
		return nil, m.startErr
	}
	return &models.DriverSession{
		ID:               "session-1",
		DriverID:         driverID,
		OnlineSince:      time.Now(),
		RemainingSeconds: 3600,
	}, nil
}

func (m *driverServiceMock) EndSession(context.Context, primitive.ObjectID, string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endCalls++
	return 60, nil
}

func (m *driverServiceMock) RemainingSeconds(context.Context, primitive.ObjectID) (int64, error) {
	return 3600, nil
}

func (m *driverServiceMock) SetOnTrip(_ context.Context, _ primitive.ObjectID, onTrip bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTrip = append(m.onTrip, onTrip)
	return nil
}

func (m *driverServiceMock) SaveLocation(context.Context, primitive.ObjectID, float64, float64) error {
	return nil
}

func (m *driverServiceMock) endSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endCalls
}

type authMock struct {
	id  primitive.ObjectID
	err error
}

func (m *authMock) Authenticate(context.Context, string) (primitive.ObjectID, error) {
	return m.id, m.err
}

type notifierMock struct {
	mu     sync.Mutex
	counts []int
}

func (m *notifierMock) NotifyNewTripRequest(context.Context, *models.Driver, *models.Trip) {}
func (m *notifierMock) NotifyTripCancelled(*models.Trip, string)                          {}

func (m *notifierMock) NotifyPendingCount(_ string, count int, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = append(m.counts, count)
}

type realtimeMock struct {
	mu      sync.Mutex
	events  chan Event
	emitted []Event
}

func newRealtimeMock() *realtimeMock {
	return &realtimeMock{events: make(chan Event, 16)}
}

func (m *realtimeMock) Subscribe(primitive.ObjectID) (<-chan Event, func()) {
	return m.events, func() {}
}

func (m *realtimeMock) Emit(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted = append(m.emitted, event)
	return nil
}

func (m *realtimeMock) emittedTypes() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, len(m.emitted))
	for i, e := range m.emitted {
		out[i] = e.Type
	}
	return out
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) key(driverID primitive.ObjectID, kind drivercache.Kind) string {
	return driverID.Hex() + ":" + string(kind)
}

func (s *memoryStore) Write(_ context.Context, driverID primitive.ObjectID, kind drivercache.Kind, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.key(driverID, kind)] = raw
	return nil
}

func (s *memoryStore) Read(_ context.Context, driverID primitive.ObjectID, kind drivercache.Kind, dest interface{}) error {
	s.mu.Lock()
	raw, ok := s.data[s.key(driverID, kind)]
	s.mu.Unlock()
	if !ok {
		return drivercache.ErrNoSnapshot
	}
	return json.Unmarshal(raw, dest)
}

func (s *memoryStore) Delete(_ context.Context, driverID primitive.ObjectID, kinds ...drivercache.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range kinds {
		delete(s.data, s.key(driverID, kind))
	}
	return nil
}

func (s *memoryStore) has(driverID primitive.ObjectID, kind drivercache.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[s.key(driverID, kind)]
	return ok
}

type fixture struct {
	coordinator *Coordinator
	driverID    primitive.ObjectID
	trips       *tripServiceMock
	drivers     *driverServiceMock
	auth        *authMock
	notifier    *notifierMock
	realtime    *realtimeMock
	store       *memoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, err := logger.NewLogger(&logger.Config{Level: "error", Format: "text"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	driverID := primitive.NewObjectID()
	f := &fixture{
		driverID: driverID,
		trips:    newTripServiceMock(),
		drivers:  &driverServiceMock{approval: models.ApprovalStatusApproved},
		auth:     &authMock{id: driverID},
		notifier: &notifierMock{},
		realtime: newRealtimeMock(),
		store:    newMemoryStore(),
	}
	f.coordinator = New(driverID, Deps{
		Trips:     f.trips,
		Drivers:   f.drivers,
		Auth:      f.auth,
		Notifier:  f.notifier,
		Snapshots: f.store,
		Realtime:  f.realtime,
		Logger:    log,
	})
	go f.coordinator.Run()
	t.Cleanup(f.coordinator.Stop)
	return f
}

func (f *fixture) goOnline(t *testing.T) {
	t.Helper()
	if _, err := f.coordinator.GoOnline(context.Background(), "proof"); err != nil {
		t.Fatalf("GoOnline: %v", err)
	}
}

func (f *fixture) waitFor(t *testing.T, what string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		state, err := f.coordinator.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if cond(state) {
			return state
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; state=%+v", what, state)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGoOnlineOpensSessionAndSurface(t *testing.T) {
	f := newFixture(t)
	f.trips.addPending(10 * time.Second)

	session, err := f.coordinator.GoOnline(context.Background(), "proof")
	if err != nil {
		t.Fatalf("GoOnline: %v", err)
	}
	if session.ID != "session-1" {
		t.Errorf("session ID = %q", session.ID)
	}

	state, err := f.coordinator.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !state.Online {
		t.Error("driver should be online")
	}
	if state.PendingCount != 1 {
		t.Errorf("PendingCount = %d, want 1", state.PendingCount)
	}
	if state.CountdownSeconds < 28 || state.CountdownSeconds > 30 {
		t.Errorf("CountdownSeconds = %d, want ~30", state.CountdownSeconds)
	}
	if !f.store.has(f.driverID, drivercache.KindDriverState) {
		t.Error("driver state snapshot not written")
	}
}

func TestGoOnlineDeviceAuthFailureAbortsEarly(t *testing.T) {
	f := newFixture(t)
	f.auth.err = services.ErrDeviceAuthFailed

	_, err := f.coordinator.GoOnline(context.Background(), "proof")
	if !errors.Is(err, services.ErrDeviceAuthFailed) {
		t.Fatalf("got %v, want device auth failure", err)
	}
	if f.drivers.startCalls != 0 {
		t.Error("no session should be opened after failed device auth")
	}
}

func TestGoOnlineBlockedByPendingReview(t *testing.T) {
	f := newFixture(t)
	f.drivers.approval = models.ApprovalStatusPendingReview

	_, err := f.coordinator.GoOnline(context.Background(), "proof")
	if !errors.Is(err, services.ErrApprovalPending) {
		t.Fatalf("got %v, want approval pending", err)
	}
}

func TestGoOnlineTwiceRefused(t *testing.T) {
	f := newFixture(t)
	f.goOnline(t)

	_, err := f.coordinator.GoOnline(context.Background(), "proof")
	if !errors.Is(err, ErrAlreadyOnline) {
		t.Fatalf("got %v, want already online", err)
	}
}

func TestGoOfflineRefusedLocallyWithActiveTrip(t *testing.T) {
	f := newFixture(t)
	trip := f.trips.addPending(5 * time.Second)
	f.goOnline(t)

	if _, err := f.coordinator.Accept(context.Background(), trip.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	err := f.coordinator.GoOffline(context.Background())
	if !errors.Is(err, ErrActiveTrip) {
		t.Fatalf("got %v, want active trip refusal", err)
	}
	if f.drivers.endSessions() != 0 {
		t.Error("refusal must happen before the session call")
	}
}

func TestGoOfflineClearsPendingSnapshot(t *testing.T) {
	f := newFixture(t)
	f.trips.addPending(5 * time.Second)
	f.goOnline(t)

	if !f.store.has(f.driverID, drivercache.KindTripStatuses) {
		t.Fatal("pending snapshot not written while online")
	}

	if err := f.coordinator.GoOffline(context.Background()); err != nil {
		t.Fatalf("GoOffline: %v", err)
	}
	if f.store.has(f.driverID, drivercache.KindTripStatuses) {
		t.Error("pending snapshot must be cleared on offline")
	}
}

func TestAcceptResetsRequestSurface(t *testing.T) {
	f := newFixture(t)
	trip := f.trips.addPending(5 * time.Second)
	f.trips.addPending(8 * time.Second)
	f.goOnline(t)

	accepted, err := f.coordinator.Accept(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted.Status != models.TripStatusAccepted {
		t.Errorf("status = %s, want accepted", accepted.Status)
	}

	state, _ := f.coordinator.Snapshot(context.Background())
	if state.PendingCount != 0 || state.CountdownSeconds != 0 {
		t.Errorf("request surface not reset: count=%d countdown=%d", state.PendingCount, state.CountdownSeconds)
	}
	if state.ActiveTrip == nil || state.ActiveTrip.ID != trip.ID {
		t.Error("accepted trip should be active")
	}
	if !f.store.has(f.driverID, drivercache.KindActiveTrip) {
		t.Error("active trip snapshot not written")
	}
}

func TestExpiredRequestsFilteredFromSurface(t *testing.T) {
	f := newFixture(t)
	f.trips.addPending(10 * time.Second)
	f.trips.addPending(50 * time.Second)
	f.goOnline(t)

	state, _ := f.coordinator.Snapshot(context.Background())
	if state.PendingCount != 1 {
		t.Errorf("PendingCount = %d, want 1 (expired request must be hidden)", state.PendingCount)
	}
	if n := f.trips.updates(models.TripStatusNoResponse); n != 1 {
		t.Errorf("expired request timed out %d times, want 1", n)
	}
}

func TestPendingRefreshFallsBackToCache(t *testing.T) {
	f := newFixture(t)
	f.trips.addPending(5 * time.Second)
	f.goOnline(t)

	f.waitFor(t, "initial surface", func(s State) bool { return s.PendingCount == 1 })

	// Kill the remote and force a refresh through a realtime trigger.
	f.trips.mu.Lock()
	f.trips.pendingErr = errors.New("network down")
	f.trips.mu.Unlock()
	f.realtime.events <- Event{Type: EventNewTripRequest}

	state := f.waitFor(t, "cached surface", func(s State) bool { return s.PendingCount == 1 })
	if state.PendingCount != 1 {
		t.Errorf("PendingCount = %d, want 1 from cache", state.PendingCount)
	}
}

func TestAutoStartAtPickupFiresOnce(t *testing.T) {
	f := newFixture(t)
	trip := f.trips.addPending(5 * time.Second)
	f.goOnline(t)
	if _, err := f.coordinator.Accept(context.Background(), trip.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	pickupLat := trip.Pickup.Latitude()
	pickupLng := trip.Pickup.Longitude()

	// Far away: nothing fires.
	if err := f.coordinator.OnPosition(context.Background(), pickupLat+0.1, pickupLng); err != nil {
		t.Fatalf("OnPosition: %v", err)
	}
	if n := f.trips.updates(models.TripStatusOnGoing); n != 0 {
		t.Fatalf("auto-start fired at 11km: %d calls", n)
	}

	// Inside the pickup radius, twice.
	for i := 0; i < 2; i++ {
		if err := f.coordinator.OnPosition(context.Background(), pickupLat, pickupLng); err != nil {
			t.Fatalf("OnPosition: %v", err)
		}
	}
	if n := f.trips.updates(models.TripStatusOnGoing); n != 1 {
		t.Errorf("auto-start fired %d times, want exactly 1", n)
	}

	arrived, started := 0, 0
	for _, eventType := range f.realtime.emittedTypes() {
		switch eventType {
		case EventDriverArrived:
			arrived++
		case EventTripStarted:
			started++
		}
	}
	if arrived != 1 {
		t.Errorf("driver arrival emitted %d times, want 1", arrived)
	}
	if started != 1 {
		t.Errorf("trip start emitted %d times, want 1", started)
	}

	state, _ := f.coordinator.Snapshot(context.Background())
	if !state.TripStarted {
		t.Error("trip should be started")
	}
}

func TestAutoStartRetriesAfterFailure(t *testing.T) {
	f := newFixture(t)
	trip := f.trips.addPending(5 * time.Second)
	f.goOnline(t)
	if _, err := f.coordinator.Accept(context.Background(), trip.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	f.trips.mu.Lock()
	f.trips.updateErr[models.TripStatusOnGoing] = errors.New("network down")
	f.trips.mu.Unlock()

	pickupLat := trip.Pickup.Latitude()
	pickupLng := trip.Pickup.Longitude()
	if err := f.coordinator.OnPosition(context.Background(), pickupLat, pickupLng); err != nil {
		t.Fatalf("OnPosition: %v", err)
	}
	state, _ := f.coordinator.Snapshot(context.Background())
	if state.TripStarted {
		t.Fatal("trip must not start while the update fails")
	}

	f.trips.mu.Lock()
	delete(f.trips.updateErr, models.TripStatusOnGoing)
	f.trips.mu.Unlock()

	if err := f.coordinator.OnPosition(context.Background(), pickupLat, pickupLng); err != nil {
		t.Fatalf("OnPosition: %v", err)
	}
	state, _ = f.coordinator.Snapshot(context.Background())
	if !state.TripStarted {
		t.Error("auto-start should retry on the next fix")
	}
	if n := f.trips.updates(models.TripStatusOnGoing); n != 2 {
		t.Errorf("update called %d times, want 2", n)
	}
}

func TestEndTripGatedByDropoffProximity(t *testing.T) {
	f := newFixture(t)
	trip := f.trips.addPending(5 * time.Second)
	f.goOnline(t)
	if _, err := f.coordinator.Accept(context.Background(), trip.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := f.coordinator.OnPosition(context.Background(), trip.Pickup.Latitude(), trip.Pickup.Longitude()); err != nil {
		t.Fatalf("OnPosition: %v", err)
	}

	// Still at pickup, ~2km from drop-off.
	if _, err := f.coordinator.EndTrip(context.Background()); !errors.Is(err, ErrTooFarFromDropoff) {
		t.Fatalf("got %v, want too-far refusal", err)
	}

	if err := f.coordinator.OnPosition(context.Background(), trip.Dropoff.Latitude(), trip.Dropoff.Longitude()); err != nil {
		t.Fatalf("OnPosition: %v", err)
	}
	completed, err := f.coordinator.EndTrip(context.Background())
	if err != nil {
		t.Fatalf("EndTrip: %v", err)
	}
	if completed.Status != models.TripStatusCompleted {
		t.Errorf("status = %s, want completed", completed.Status)
	}

	state, _ := f.coordinator.Snapshot(context.Background())
	if state.ActiveTrip != nil {
		t.Error("active trip should be cleared")
	}
	if f.store.has(f.driverID, drivercache.KindActiveTrip) {
		t.Error("active trip snapshot should be deleted")
	}

	if f.drivers.endSessions() != 0 {
		t.Error("ending a trip must not end the session")
	}
	if err := f.coordinator.GoOffline(context.Background()); err != nil {
		t.Fatalf("GoOffline after completion: %v", err)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	f := newFixture(t)
	trip := f.trips.addPending(5 * time.Second)
	f.goOnline(t)
	if _, err := f.coordinator.Accept(context.Background(), trip.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if err := f.coordinator.Cancel(context.Background(), ""); !errors.Is(err, ErrCancelReasonRequired) {
		t.Fatalf("got %v, want reason-required refusal", err)
	}

	if err := f.coordinator.Cancel(context.Background(), "rider no-show"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	state, _ := f.coordinator.Snapshot(context.Background())
	if state.ActiveTrip != nil {
		t.Error("active trip should be cleared after cancel")
	}

	var sawCancelled bool
	for _, eventType := range f.realtime.emittedTypes() {
		if eventType == EventTripCancelled {
			sawCancelled = true
		}
	}
	if !sawCancelled {
		t.Error("cancellation should be emitted to the rider")
	}
}

func TestRiderCancellationClearsActiveTrip(t *testing.T) {
	f := newFixture(t)
	trip := f.trips.addPending(5 * time.Second)
	f.goOnline(t)
	if _, err := f.coordinator.Accept(context.Background(), trip.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// The rider cancels on the authoritative store, then the event arrives.
	f.trips.mu.Lock()
	f.trips.trips[trip.ID].Status = models.TripStatusCanceled
	f.trips.active = nil
	f.trips.mu.Unlock()
	f.realtime.events <- Event{Type: EventTripCancelled, TripID: trip.ID}

	f.waitFor(t, "trip cleared", func(s State) bool { return s.ActiveTrip == nil })
}

func TestAdoptNeverDowngradesLocalStage(t *testing.T) {
	now := time.Now()
	trip := &models.Trip{ID: primitive.NewObjectID(), Status: models.TripStatusOnGoing}

	state := &State{}
	state.setActiveTrip(trip)

	stale := *trip
	stale.Status = models.TripStatusAccepted
	state.adopt(&stale, now)
	if state.ActiveTrip.Status != models.TripStatusOnGoing {
		t.Errorf("stale read downgraded status to %s", state.ActiveTrip.Status)
	}

	completed := *trip
	completed.Status = models.TripStatusCompleted
	state.adopt(&completed, now)
	if state.ActiveTrip.Status != models.TripStatusCompleted {
		t.Errorf("forward progress rejected, status = %s", state.ActiveTrip.Status)
	}
}

func TestAdoptForwardProgressWinsInsideHold(t *testing.T) {
	now := time.Now()
	trip := &models.Trip{ID: primitive.NewObjectID(), Status: models.TripStatusAccepted}

	state := &State{holdUntil: now.Add(5 * time.Second)}
	state.setActiveTrip(trip)

	// The hold protects against stale reads, not real progress.
	completed := *trip
	completed.Status = models.TripStatusCompleted
	state.adopt(&completed, now)
	if state.ActiveTrip.Status != models.TripStatusCompleted {
		t.Errorf("forward progress blocked, status = %s", state.ActiveTrip.Status)
	}
}

func TestAdoptClearsVanishedTripAfterHold(t *testing.T) {
	now := time.Now()
	trip := &models.Trip{ID: primitive.NewObjectID(), Status: models.TripStatusAccepted}

	state := &State{holdUntil: now.Add(5 * time.Second)}
	state.setActiveTrip(trip)

	state.adopt(nil, now)
	if state.ActiveTrip == nil {
		t.Fatal("trip cleared inside the hold window")
	}

	state.adopt(nil, now.Add(6*time.Second))
	if state.ActiveTrip != nil {
		t.Error("vanished trip should clear after the hold window")
	}
}
