package utils

import (
	"math"
)

const EarthRadiusMeters = 6371000.0

// CalculateDistance returns the great-circle distance in meters between two
// lat/lng pairs.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return haversineDistance(lat1, lon1, lat2, lon2)
}

func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lon1Rad := lon1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	lon2Rad := lon2 * math.Pi / 180

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// IsWithinRadius reports whether a point lies within radiusMeters of a center.
func IsWithinRadius(centerLat, centerLon, pointLat, pointLon, radiusMeters float64) bool {
	return CalculateDistance(centerLat, centerLon, pointLat, pointLon) <= radiusMeters
}

// EstimateETA converts a distance in meters into whole minutes and seconds
// at the assumed average speed.
func EstimateETA(distanceMeters float64) (minutes, seconds int) {
	if distanceMeters <= 0 {
		return 0, 0
	}
	total := distanceMeters / AssumedSpeedMPS
	minutes = int(total) / 60
	seconds = int(total) % 60
	return minutes, seconds
}
