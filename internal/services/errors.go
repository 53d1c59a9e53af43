package services

import "errors"

var (
	ErrTripNotFound      = errors.New("trip not found")
	ErrInvalidTransition = errors.New("invalid trip status transition")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrDriverNotApproved = errors.New("driver not approved")
	ErrApprovalPending   = errors.New("driver approval pending review")
	ErrDailyCapReached   = errors.New("daily online time cap reached")
	ErrDeviceAuthFailed  = errors.New("device authentication failed")
	ErrSessionNotFound   = errors.New("session not found")
)
