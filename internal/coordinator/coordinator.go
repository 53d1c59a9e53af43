package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	drivercache "godrive/internal/cache"
	"godrive/internal/models"
	"godrive/internal/services"
	"godrive/internal/utils"
	"godrive/pkg/logger"
	"godrive/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coordinator owns the trip lifecycle of one driver. All state lives on a
// single dispatch loop: realtime events, poll ticks, countdown ticks,
// position updates and driver commands are serialized through it, so no
// two sources ever race on the same trip.
type Coordinator struct {
	driverID primitive.ObjectID

	trips     services.TripService
	drivers   services.DriverService
	auth      services.DeviceAuthenticator
	notifier  services.NotificationService
	snapshots drivercache.Store
	realtime  Realtime
	logger    *logger.Logger

	cmds chan command
	stop chan struct{}
	done chan struct{}
	once sync.Once

	// loop-owned, never touched outside Run
	state       State
	poll        *task
	countdown   *task
	events      <-chan Event
	unsubscribe func()
}

type command struct {
	run func(ctx context.Context) error
	err chan error
}

type Deps struct {
	Trips     services.TripService
	Drivers   services.DriverService
	Auth      services.DeviceAuthenticator
	Notifier  services.NotificationService
	Snapshots drivercache.Store
	Realtime  Realtime
	Logger    *logger.Logger
}

func New(driverID primitive.ObjectID, deps Deps) *Coordinator {
	return &Coordinator{
		driverID:  driverID,
		trips:     deps.Trips,
		drivers:   deps.Drivers,
		auth:      deps.Auth,
		notifier:  deps.Notifier,
		snapshots: deps.Snapshots,
		realtime:  deps.Realtime,
		logger:    deps.Logger,
		cmds:      make(chan command),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		state:     State{DriverID: driverID},
	}
}

// Run drives the dispatch loop until Stop is called. It must run in its
// own goroutine; every other method is safe to call concurrently.
func (c *Coordinator) Run() {
	defer close(c.done)
	ctx := context.Background()

	for {
		select {
		case <-c.stop:
			c.teardown(ctx)
			return
		case cmd := <-c.cmds:
			cmd.err <- cmd.run(ctx)
		case event, ok := <-c.events:
			if !ok {
				c.events = nil
				continue
			}
			c.handleEvent(ctx, event)
		case <-c.poll.C():
			c.pollTick(ctx)
		case <-c.countdown.C():
			c.countdownTick()
		}
	}
}

// Stop shuts the loop down. Idempotent.
func (c *Coordinator) Stop() {
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

// do runs fn on the dispatch loop and waits for its result.
func (c *Coordinator) do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{run: fn, err: make(chan error, 1)}
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.err:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot(ctx context.Context) (State, error) {
	var out State
	err := c.do(ctx, func(context.Context) error {
		out = c.state
		return nil
	})
	return out, err
}

// GoOnline authenticates the device credential, checks driver approval and
// opens an online session. The steps run in that order and the first
// failure aborts the whole operation.
func (c *Coordinator) GoOnline(ctx context.Context, deviceProof string) (*models.DriverSession, error) {
	var session *models.DriverSession
	err := c.do(ctx, func(ctx context.Context) error {
		if c.state.Online {
			return ErrAlreadyOnline
		}

		authedID, err := c.auth.Authenticate(ctx, deviceProof)
		if err != nil {
			return err
		}
		if authedID != c.driverID {
			return services.ErrDeviceAuthFailed
		}

		approval, err := c.drivers.ApprovalStatus(ctx, c.driverID)
		if err != nil {
			return err
		}
		switch approval {
		case models.ApprovalStatusApproved:
		case models.ApprovalStatusPendingReview:
			return services.ErrApprovalPending
		case models.ApprovalStatusNotFound:
			return services.ErrDriverNotFound
		default:
			return services.ErrDriverNotApproved
		}

		session, err = c.drivers.StartSession(ctx, c.driverID)
		if err != nil {
			return err
		}

		c.state.Online = true
		c.state.Session = session
		c.state.lastKnownCount = 0

		c.events, c.unsubscribe = c.realtime.Subscribe(c.driverID)
		c.poll = startTask(utils.PendingPollInterval)
		c.countdown = startTask(utils.CountdownTickInterval)

		metrics.DriversOnlineGauge.Inc()
		c.writeDriverStateSnapshot(ctx)

		// Rehydrate an in-flight trip, then build the request surface.
		c.reconcileActiveTrip(ctx)
		c.refreshPending(ctx)

		c.logger.WithDriverID(c.driverID).WithSessionID(session.ID).Info("Driver online")
		return nil
	})
	return session, err
}

// GoOffline ends the online session. A driver committed to a trip is
// refused locally, before any network call.
func (c *Coordinator) GoOffline(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if !c.state.Online {
			return ErrNotOnline
		}
		if c.state.ActiveTrip != nil && c.state.ActiveTrip.Status.Active() {
			return ErrActiveTrip
		}

		var endErr error
		if c.state.Session != nil {
			_, endErr = c.drivers.EndSession(ctx, c.driverID, c.state.Session.ID)
			if endErr != nil {
				c.logger.WithDriverID(c.driverID).WithError(endErr).Error("Failed to end session cleanly")
			}
		}

		c.goOfflineLocally(ctx)
		c.logger.WithDriverID(c.driverID).Info("Driver offline")
		return endErr
	})
}

func (c *Coordinator) goOfflineLocally(ctx context.Context) {
	c.poll.Stop()
	c.countdown.Stop()
	c.poll, c.countdown = nil, nil
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.events = nil

	c.state.Online = false
	c.state.Session = nil
	c.state.PendingCount = 0
	c.state.CountdownSeconds = 0
	c.state.lastKnownCount = 0

	metrics.DriversOnlineGauge.Dec()
	metrics.PendingRequestsGauge.DeleteLabelValues(c.driverID.Hex())
	if err := c.snapshots.Delete(ctx, c.driverID, drivercache.KindTripStatuses); err != nil {
		c.logger.WithDriverID(c.driverID).WithError(err).Debug("Pending snapshot delete failed")
	}
	c.writeDriverStateSnapshot(ctx)
}

// Accept claims a pending request. The locally confirmed acceptance is
// held against stale authoritative reads for one refresh interval.
func (c *Coordinator) Accept(ctx context.Context, tripID primitive.ObjectID) (*models.Trip, error) {
	var trip *models.Trip
	err := c.do(ctx, func(ctx context.Context) error {
		if !c.state.Online {
			return ErrNotOnline
		}
		if c.state.ActiveTrip != nil && c.state.ActiveTrip.Status.Active() {
			return ErrActiveTrip
		}

		updated, err := c.trips.UpdateStatus(ctx, tripID, models.TripStatusAccepted, services.StatusChange{
			DriverID: c.driverID,
		})
		if err != nil {
			return err
		}
		trip = updated

		c.state.setActiveTrip(updated)
		c.state.holdUntil = time.Now().Add(utils.PendingPollInterval)
		c.resetRequestSurface()

		if err := c.drivers.SetOnTrip(ctx, c.driverID, true); err != nil {
			c.logger.WithDriverID(c.driverID).WithError(err).Warn("Failed to mark driver on trip")
		}

		c.writeTripSnapshot(ctx)
		c.emit(ctx, Event{Type: EventTripAccepted, TripID: updated.ID, DriverID: c.driverID, RiderID: updated.RiderID})
		c.logger.WithDriverID(c.driverID).WithTripID(updated.ID).Info("Trip accepted")
		return nil
	})
	return trip, err
}

// Decline rejects a pending request and rebuilds the request surface.
func (c *Coordinator) Decline(ctx context.Context, tripID primitive.ObjectID) error {
	return c.do(ctx, func(ctx context.Context) error {
		if !c.state.Online {
			return ErrNotOnline
		}

		updated, err := c.trips.UpdateStatus(ctx, tripID, models.TripStatusDeclined, services.StatusChange{
			DriverID: c.driverID,
		})
		if err != nil {
			return err
		}

		c.emit(ctx, Event{Type: EventTripDeclined, TripID: updated.ID, DriverID: c.driverID, RiderID: updated.RiderID})
		c.refreshPending(ctx)
		return nil
	})
}

// Cancel aborts the active trip. A reason is mandatory.
func (c *Coordinator) Cancel(ctx context.Context, reason string) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state.ActiveTrip == nil {
			return ErrNoActiveTrip
		}
		if reason == "" {
			return ErrCancelReasonRequired
		}

		updated, err := c.trips.UpdateStatus(ctx, c.state.ActiveTrip.ID, models.TripStatusCanceled, services.StatusChange{
			DriverID:   c.driverID,
			Reason:     reason,
			CanceledBy: "driver",
		})
		if err != nil {
			return err
		}

		c.emit(ctx, Event{Type: EventTripCancelled, TripID: updated.ID, DriverID: c.driverID, RiderID: updated.RiderID, Reason: reason})
		c.clearActiveTrip(ctx)
		c.refreshPending(ctx)
		c.logger.WithDriverID(c.driverID).WithTripID(updated.ID).Infof("Trip canceled: %s", reason)
		return nil
	})
}

// EndTrip completes the active trip. It is gated on drop-off proximity:
// until a position update has placed the driver inside the drop-off
// radius, ending is refused.
func (c *Coordinator) EndTrip(ctx context.Context) (*models.Trip, error) {
	var trip *models.Trip
	err := c.do(ctx, func(ctx context.Context) error {
		if c.state.ActiveTrip == nil || c.state.ActiveTrip.Status != models.TripStatusOnGoing {
			return ErrNoActiveTrip
		}
		if !c.state.CanEndTrip {
			return ErrTooFarFromDropoff
		}

		updated, err := c.trips.UpdateStatus(ctx, c.state.ActiveTrip.ID, models.TripStatusCompleted, services.StatusChange{
			DriverID:         c.driverID,
			DistanceTraveled: c.state.traveledMeters,
		})
		if err != nil {
			return err
		}
		trip = updated

		c.emit(ctx, Event{Type: EventTripCompleted, TripID: updated.ID, DriverID: c.driverID, RiderID: updated.RiderID})
		c.clearActiveTrip(ctx)
		c.refreshPending(ctx)
		c.logger.WithDriverID(c.driverID).WithTripID(updated.ID).Info("Trip completed")
		return nil
	})
	return trip, err
}

// OnPosition feeds a GPS fix into the loop. It drives the pickup-proximity
// auto transition and the drop-off gate; failures updating the trip are
// logged and retried on the next fix rather than surfaced to the caller.
func (c *Coordinator) OnPosition(ctx context.Context, lat, lng float64) error {
	return c.do(ctx, func(ctx context.Context) error {
		if !c.state.Online {
			return ErrNotOnline
		}

		if err := c.drivers.SaveLocation(ctx, c.driverID, lat, lng); err != nil {
			c.logger.WithDriverID(c.driverID).WithError(err).Warn("Failed to save driver location")
		}

		trip := c.state.ActiveTrip
		if trip == nil {
			return nil
		}

		switch trip.Status {
		case models.TripStatusAccepted:
			c.approachPickup(ctx, lat, lng)
		case models.TripStatusOnGoing:
			c.approachDropoff(lat, lng)
		default:
			return nil
		}

		c.state.lastLat, c.state.lastLng, c.state.hasLast = lat, lng, true
		c.writeTripSnapshot(ctx)
		return nil
	})
}

func (c *Coordinator) approachPickup(ctx context.Context, lat, lng float64) {
	trip := c.state.ActiveTrip
	distance := utils.CalculateDistance(lat, lng, trip.Pickup.Latitude(), trip.Pickup.Longitude())
	c.state.DistanceMeters = distance
	minutes, seconds := utils.EstimateETA(distance)
	c.state.ETA = models.ETA{Minutes: minutes, Seconds: seconds}

	if c.state.arrivalFired || distance > utils.PickupProximityMeters {
		return
	}

	// Latch before the call so concurrent fixes queued behind this one
	// cannot fire a second transition. Unlatch on failure to retry.
	c.state.arrivalFired = true
	updated, err := c.trips.UpdateStatus(ctx, trip.ID, models.TripStatusOnGoing, services.StatusChange{
		DriverID: c.driverID,
	})
	if err != nil {
		c.state.arrivalFired = false
		c.logger.WithDriverID(c.driverID).WithTripID(trip.ID).WithError(err).Warn("Arrival auto-start failed")
		return
	}

	c.state.setActiveTrip(updated)
	c.state.holdUntil = time.Now().Add(utils.PendingPollInterval)
	c.emit(ctx, Event{Type: EventDriverArrived, TripID: updated.ID, DriverID: c.driverID, RiderID: updated.RiderID})
	c.emit(ctx, Event{Type: EventTripStarted, TripID: updated.ID, DriverID: c.driverID, RiderID: updated.RiderID})
	c.logger.WithDriverID(c.driverID).WithTripID(updated.ID).Info("Trip auto-started at pickup")
}

func (c *Coordinator) approachDropoff(lat, lng float64) {
	trip := c.state.ActiveTrip
	if c.state.hasLast {
		c.state.traveledMeters += utils.CalculateDistance(c.state.lastLat, c.state.lastLng, lat, lng)
	}

	distance := utils.CalculateDistance(lat, lng, trip.Dropoff.Latitude(), trip.Dropoff.Longitude())
	c.state.DistanceMeters = distance
	minutes, seconds := utils.EstimateETA(distance)
	c.state.ETA = models.ETA{Minutes: minutes, Seconds: seconds}
	c.state.CanEndTrip = distance <= utils.DropoffProximityMeters
}

func (c *Coordinator) handleEvent(ctx context.Context, event Event) {
	switch event.Type {
	case EventNewTripRequest:
		// The payload is only a trigger; recompute from the store.
		c.refreshPending(ctx)
	case EventTripCancelled:
		if c.state.ActiveTrip != nil && c.state.ActiveTrip.ID == event.TripID {
			// Confirm against the store before dropping the trip.
			fetched, err := c.trips.GetTrip(ctx, event.TripID)
			if err == nil {
				c.state.adopt(fetched, time.Now())
			}
			if c.state.ActiveTrip != nil && c.state.ActiveTrip.Status.Terminal() {
				c.logger.WithDriverID(c.driverID).WithTripID(event.TripID).Info("Active trip canceled remotely")
				c.clearActiveTrip(ctx)
			}
		}
		c.refreshPending(ctx)
	default:
	}
}

func (c *Coordinator) pollTick(ctx context.Context) {
	c.reconcileActiveTrip(ctx)
	c.refreshPending(ctx)
}

// countdownTick decrements the shared countdown locally between refreshes;
// every refresh resyncs it from request timestamps.
func (c *Coordinator) countdownTick() {
	if c.state.PendingCount == 0 || c.state.CountdownSeconds == 0 {
		return
	}
	c.state.CountdownSeconds--
	c.notifier.NotifyPendingCount(c.driverID.Hex(), c.state.PendingCount, c.state.CountdownSeconds)
}

// refreshPending rebuilds the request surface from a fresh authoritative
// read, never by merging deltas. A fetch failure falls back to the last
// cached list, expired entries filtered out either way.
func (c *Coordinator) refreshPending(ctx context.Context) {
	if !c.state.Online {
		return
	}
	if c.state.ActiveTrip != nil && c.state.ActiveTrip.Status.Active() {
		c.resetRequestSurface()
		return
	}

	snapshot, fromCache, err := drivercache.Fetch(ctx, c.snapshots, c.driverID, drivercache.KindTripStatuses,
		func(ctx context.Context) (models.TripStatusesSnapshot, error) {
			trips, err := c.trips.PendingForDriver(ctx, c.driverID)
			if err != nil {
				return models.TripStatusesSnapshot{}, err
			}
			return models.TripStatusesSnapshot{Trips: trips, WrittenAt: time.Now()}, nil
		})
	if err != nil {
		c.logger.WithDriverID(c.driverID).WithError(err).Warn("Pending refresh failed with no cached fallback")
		return
	}
	if fromCache {
		c.logger.WithDriverID(c.driverID).Debug("Pending refresh served from cache")
	}

	now := time.Now()
	count := 0
	countdown := 0
	for _, trip := range snapshot.Trips {
		if !trip.VisibleAt(now, utils.PendingVisibilityWindow) {
			// Requests that ran out their window unanswered are timed out
			// on the store, not merely hidden. Best effort: another party
			// may have transitioned the trip already.
			if !fromCache && trip.Status == models.TripStatusPending {
				if _, err := c.trips.UpdateStatus(ctx, trip.ID, models.TripStatusNoResponse, services.StatusChange{DriverID: c.driverID}); err != nil {
					c.logger.WithTripID(trip.ID).WithError(err).Debug("No-response timeout not recorded")
				}
			}
			continue
		}
		count++
		remaining := int((utils.PendingVisibilityWindow - trip.Age(now)).Seconds())
		if remaining > countdown {
			countdown = remaining
		}
	}

	if count > c.state.lastKnownCount {
		c.logger.WithDriverID(c.driverID).Infof("Pending requests increased to %d", count)
	}
	c.state.lastKnownCount = count
	c.state.PendingCount = count
	c.state.CountdownSeconds = countdown

	metrics.PendingRequestsGauge.WithLabelValues(c.driverID.Hex()).Set(float64(count))
	c.notifier.NotifyPendingCount(c.driverID.Hex(), count, countdown)
}

// reconcileActiveTrip refetches the driver's active trip and adopts it
// through the downgrade guard. On fetch failure local state is kept.
func (c *Coordinator) reconcileActiveTrip(ctx context.Context) {
	fetched, err := c.trips.ActiveForDriver(ctx, c.driverID)
	if err != nil {
		c.logger.WithDriverID(c.driverID).WithError(err).Debug("Active trip reconcile skipped")
		return
	}

	c.state.adopt(fetched, time.Now())
	if c.state.ActiveTrip != nil && c.state.ActiveTrip.Status.Terminal() {
		c.clearActiveTrip(ctx)
		return
	}
	if c.state.ActiveTrip != nil {
		c.writeTripSnapshot(ctx)
	} else {
		c.deleteTripSnapshot(ctx)
	}
}

func (c *Coordinator) resetRequestSurface() {
	c.state.PendingCount = 0
	c.state.CountdownSeconds = 0
	c.state.lastKnownCount = 0
	metrics.PendingRequestsGauge.WithLabelValues(c.driverID.Hex()).Set(0)
}

func (c *Coordinator) clearActiveTrip(ctx context.Context) {
	c.state.setActiveTrip(nil)
	c.state.traveledMeters = 0
	c.state.hasLast = false
	if err := c.drivers.SetOnTrip(ctx, c.driverID, false); err != nil {
		c.logger.WithDriverID(c.driverID).WithError(err).Warn("Failed to clear on-trip status")
	}
	c.deleteTripSnapshot(ctx)
}

func (c *Coordinator) writeTripSnapshot(ctx context.Context) {
	snapshot := c.state.tripSnapshot(time.Now())
	if snapshot == nil {
		return
	}
	if err := c.snapshots.Write(ctx, c.driverID, drivercache.KindActiveTrip, snapshot); err != nil {
		c.logger.WithDriverID(c.driverID).WithError(err).Debug("Trip snapshot write failed")
	}
}

func (c *Coordinator) deleteTripSnapshot(ctx context.Context) {
	if err := c.snapshots.Delete(ctx, c.driverID, drivercache.KindActiveTrip); err != nil {
		c.logger.WithDriverID(c.driverID).WithError(err).Debug("Trip snapshot delete failed")
	}
}

func (c *Coordinator) writeDriverStateSnapshot(ctx context.Context) {
	snapshot := models.DriverStateSnapshot{
		Online:    c.state.Online,
		WrittenAt: time.Now(),
	}
	if c.state.Session != nil {
		snapshot.SessionID = c.state.Session.ID
		snapshot.OnlineSince = c.state.Session.OnlineSince
		snapshot.RemainingSeconds = c.state.Session.RemainingSeconds
	}
	if err := c.snapshots.Write(ctx, c.driverID, drivercache.KindDriverState, snapshot); err != nil {
		c.logger.WithDriverID(c.driverID).WithError(err).Debug("Driver state snapshot write failed")
	}
}

func (c *Coordinator) emit(ctx context.Context, event Event) {
	if err := c.realtime.Emit(ctx, event); err != nil {
		c.logger.WithDriverID(c.driverID).WithError(err).Warn(fmt.Sprintf("Failed to emit %s", event.Type))
	}
}

func (c *Coordinator) teardown(ctx context.Context) {
	if c.state.Online {
		if c.state.Session != nil {
			if _, err := c.drivers.EndSession(ctx, c.driverID, c.state.Session.ID); err != nil {
				c.logger.WithDriverID(c.driverID).WithError(err).Warn("Failed to end session on teardown")
			}
		}
		c.goOfflineLocally(ctx)
	}
}
