package models

import (
	"time"
)

// TripSnapshot is the serialized projection of the active trip written to
// the local cache on every meaningful state change. It is advisory: a read
// after a fetch failure is reconciled against the authoritative store as
// soon as connectivity returns, and its status never downgrades a locally
// confirmed one.
type TripSnapshot struct {
	TripID         string     `json:"trip_id"`
	Status         TripStatus `json:"status"`
	TripStarted    bool       `json:"trip_started"`
	CanEndTrip     bool       `json:"can_end_trip"`
	Origin         *Location  `json:"origin,omitempty"`
	Destination    *Location  `json:"destination,omitempty"`
	DistanceMeters float64    `json:"distance_meters"`
	ETA            ETA        `json:"eta"`
	WrittenAt      time.Time  `json:"written_at"`
}

// DriverStateSnapshot mirrors the driver's online state for rehydration
// after a relaunch or network loss.
type DriverStateSnapshot struct {
	Online           bool      `json:"online"`
	SessionID        string    `json:"session_id"`
	OnlineSince      time.Time `json:"online_since"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	WrittenAt        time.Time `json:"written_at"`
}

// TripStatusesSnapshot caches the last authoritative pending list so the
// request surface degrades instead of emptying when a fetch fails.
type TripStatusesSnapshot struct {
	Trips     []*Trip   `json:"trips"`
	WrittenAt time.Time `json:"written_at"`
}

// ETA is a whole minutes-and-seconds estimate derived from distance at an
// assumed average speed.
type ETA struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}
