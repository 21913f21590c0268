// internal/workers/meals/notify-meal-created/geo.go
package notifymealcreated

import (
	"math"

	"mealbell/internal/models"
)

const (
	DefaultRadiusKm = 100

	earthRadiusMeters = 6371000
)

// WithinDistance reports whether a and b are at most maxKm apart on the
// great-circle surface. A missing or non-numeric coordinate is a benign
// "not nearby": the function returns false and never errors. Pure and
// deterministic.
func WithinDistance(a, b *models.Coordinate, maxKm float64) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return distanceMeters(*a.Lat, *a.Lng, *b.Lat, *b.Lng) <= maxKm*1000
}

// distanceMeters computes the haversine distance between two points.
func distanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
