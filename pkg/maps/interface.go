package maps

import "context"

type MapsProvider interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	RouteDistance(ctx context.Context, origin, destination Location) (*RouteEstimate, error)
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type RouteEstimate struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int     `json:"duration_seconds"`
}
