package models

import (
	"testing"
	"time"
)

func TestTripStatusTransitions(t *testing.T) {
	cases := []struct {
		from    TripStatus
		to      TripStatus
		allowed bool
	}{
		{TripStatusPending, TripStatusAccepted, true},
		{TripStatusPending, TripStatusCanceled, true},
		{TripStatusPending, TripStatusDeclined, true},
		{TripStatusPending, TripStatusNoResponse, true},
		{TripStatusPending, TripStatusOnGoing, false},
		{TripStatusPending, TripStatusCompleted, false},
		{TripStatusAccepted, TripStatusOnGoing, true},
		{TripStatusAccepted, TripStatusCanceled, true},
		{TripStatusAccepted, TripStatusCompleted, false},
		{TripStatusAccepted, TripStatusPending, false},
		{TripStatusOnGoing, TripStatusCompleted, true},
		{TripStatusOnGoing, TripStatusCanceled, true},
		{TripStatusOnGoing, TripStatusAccepted, false},
		{TripStatusCompleted, TripStatusCanceled, false},
		{TripStatusCanceled, TripStatusAccepted, false},
		{TripStatusDeclined, TripStatusPending, false},
		{TripStatusNoResponse, TripStatusAccepted, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTripStatusStageOrdering(t *testing.T) {
	if TripStatusPending.Stage() >= TripStatusAccepted.Stage() {
		t.Error("pending should rank below accepted")
	}
	if TripStatusAccepted.Stage() >= TripStatusOnGoing.Stage() {
		t.Error("accepted should rank below on_going")
	}
	for _, s := range []TripStatus{TripStatusCompleted, TripStatusCanceled, TripStatusDeclined, TripStatusNoResponse} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		if s.Stage() <= TripStatusOnGoing.Stage() {
			t.Errorf("%s should rank above on_going", s)
		}
	}
}

func TestTripStatusActive(t *testing.T) {
	if !TripStatusAccepted.Active() || !TripStatusOnGoing.Active() {
		t.Error("accepted and on_going should be active")
	}
	for _, s := range []TripStatus{TripStatusPending, TripStatusCompleted, TripStatusCanceled, TripStatusDeclined, TripStatusNoResponse} {
		if s.Active() {
			t.Errorf("%s should not be active", s)
		}
	}
}

func TestTripVisibleAt(t *testing.T) {
	now := time.Now()
	window := 40 * time.Second

	trip := &Trip{Status: TripStatusPending, CreatedAt: now.Add(-10 * time.Second)}
	if !trip.VisibleAt(now, window) {
		t.Error("10s old pending trip should be visible")
	}

	trip.CreatedAt = now.Add(-41 * time.Second)
	if trip.VisibleAt(now, window) {
		t.Error("expired pending trip should not be visible")
	}

	trip.CreatedAt = now.Add(-10 * time.Second)
	trip.Status = TripStatusDeclined
	if trip.VisibleAt(now, window) {
		t.Error("non-pending trip should not be visible")
	}
}
