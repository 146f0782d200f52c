package location

import (
	"math"

	"parking-locator/internal/model"
)

const earthRadiusMeters = 6371000

// Haversine calculates the distance in meters between two lat/lng points
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// NearestFree returns the free spot closest to origin. Spots whose state is
// occupied or unknown are never returned.
func NearestFree(origin model.Coordinate, spots []model.ParkingSpot) (model.ParkingSpot, bool) {
	var best model.ParkingSpot
	bestDist := math.Inf(1)
	found := false
	for _, s := range spots {
		if s.Occupancy() != model.OccupancyFree {
			continue
		}
		d := Haversine(origin.Latitude, origin.Longitude, s.Latitude, s.Longitude)
		if d < bestDist {
			best, bestDist, found = s, d, true
		}
	}
	return best, found
}
