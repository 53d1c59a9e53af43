package coordinator

import (
	"time"

	"godrive/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// State is the coordinator's view of one driver. It is owned by the
// dispatch loop; Snapshot hands out copies for read access.
type State struct {
	DriverID primitive.ObjectID    `json:"driver_id"`
	Online   bool                  `json:"online"`
	Session  *models.DriverSession `json:"session,omitempty"`

	ActiveTrip  *models.Trip `json:"active_trip,omitempty"`
	TripStarted bool         `json:"trip_started"`
	CanEndTrip  bool         `json:"can_end_trip"`

	Origin         *models.Location `json:"origin,omitempty"`
	Destination    *models.Location `json:"destination,omitempty"`
	DistanceMeters float64          `json:"distance_meters"`
	ETA            models.ETA       `json:"eta"`

	PendingCount     int `json:"pending_count"`
	CountdownSeconds int `json:"countdown_seconds"`

	// arrivalFired latches the pickup-proximity auto transition so it
	// cannot fire twice for the same trip.
	arrivalFired bool

	// lastKnownCount is the reference for detecting new requests between
	// refreshes. Only increases trigger a notification.
	lastKnownCount int

	// holdUntil protects a locally confirmed status from being overwritten
	// by a stale authoritative read for one refresh interval.
	holdUntil time.Time

	// traveled distance is accumulated from consecutive fixes while the
	// trip is in progress.
	traveledMeters   float64
	lastLat, lastLng float64
	hasLast          bool
}

func (s *State) setActiveTrip(trip *models.Trip) {
	s.ActiveTrip = trip
	s.TripStarted = trip != nil && trip.Status == models.TripStatusOnGoing
	if trip != nil {
		origin := trip.Pickup
		destination := trip.Dropoff
		s.Origin = &origin
		s.Destination = &destination
	} else {
		s.Origin = nil
		s.Destination = nil
		s.CanEndTrip = false
		s.DistanceMeters = 0
		s.ETA = models.ETA{}
		s.arrivalFired = false
	}
}

// adopt reconciles an authoritative read of the active trip against local
// state. A fetched status of a lower lifecycle stage never downgrades the
// locally confirmed one. A nil read inside the hold window is treated as a
// stale replica rather than a vanished trip.
func (s *State) adopt(fetched *models.Trip, now time.Time) {
	if fetched == nil {
		if s.ActiveTrip != nil && now.After(s.holdUntil) {
			s.setActiveTrip(nil)
		}
		return
	}

	if s.ActiveTrip != nil && s.ActiveTrip.ID == fetched.ID &&
		fetched.Status.Stage() < s.ActiveTrip.Status.Stage() {
		return
	}

	s.setActiveTrip(fetched)
}

func (s *State) tripSnapshot(now time.Time) *models.TripSnapshot {
	if s.ActiveTrip == nil {
		return nil
	}
	return &models.TripSnapshot{
		TripID:         s.ActiveTrip.ID.Hex(),
		Status:         s.ActiveTrip.Status,
		TripStarted:    s.TripStarted,
		CanEndTrip:     s.CanEndTrip,
		Origin:         s.Origin,
		Destination:    s.Destination,
		DistanceMeters: s.DistanceMeters,
		ETA:            s.ETA,
		WrittenAt:      now,
	}
}
