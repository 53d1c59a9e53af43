package websocket

// Wire-level event names exchanged with the mobile clients.
const (
	// Server -> driver
	EventNewTripRequest = "new_trip_request"
	EventTripCancelled  = "trip_cancelled"
	EventChatMessage    = "chat_message"
	EventPendingCount   = "pending_count"

	// Driver -> rider
	EventAcceptTrip    = "accept_trip"
	EventDeclineTrip   = "decline_trip"
	EventDriverArrived = "driver_arrived"
	EventStartTrip     = "start_trip"
	EventEndTrip       = "end_trip"
)
