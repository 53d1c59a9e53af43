package coordinator

import "errors"

var (
	ErrAlreadyOnline        = errors.New("driver is already online")
	ErrNotOnline            = errors.New("driver is not online")
	ErrActiveTrip           = errors.New("driver has a trip in progress")
	ErrNoActiveTrip         = errors.New("driver has no active trip")
	ErrNotPending           = errors.New("trip request is no longer pending")
	ErrTooFarFromDropoff    = errors.New("too far from the drop-off point to end the trip")
	ErrCancelReasonRequired = errors.New("cancellation reason is required")
	ErrStopped              = errors.New("coordinator is stopped")
)
