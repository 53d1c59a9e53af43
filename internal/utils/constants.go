package utils

import "time"

// Application Constants
const (
	AppName    = "GoDrive"
	AppVersion = "1.0.0"

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour

	// Trip lifecycle
	PendingVisibilityWindow = 40 * time.Second
	PendingPollInterval     = 5 * time.Second
	CountdownTickInterval   = 1 * time.Second
	PickupProximityMeters   = 250.0
	DropoffProximityMeters  = 150.0

	// ETA assumes 40 km/h city driving.
	AssumedSpeedMPS = 11.11

	// Stats
	StatsRetryDelay = 3 * time.Second

	// Sessions
	DailyOnlineCapSeconds = 12 * 60 * 60

	// Driver
	DriverLocationTTL = 2 * time.Minute

	// Chat
	MaxMessageLength = 1000

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error messages
const (
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized"

	MsgDriverApproved       = "Driver approved"
	MsgDriverPendingReview  = "Your documents are still under review"
	MsgDriverNotFound       = "No driver profile found for this account"
	MsgDeviceAuthGuidance   = "Device authentication failed. Check your device security settings"
	MsgOfflineWithTrip      = "You cannot go offline while a trip is in progress"
	MsgCancelReasonRequired = "A cancellation reason is required"
)
