// internal/workers/meals/notify-meal-created/config.go
package notifymealcreated

import (
	"time"

	"mealbell/internal/models"
)

type Config struct {
	// ReferenceLocation is the fixed deployment coordinate the geofence is
	// centered on. It is configuration, never derived from a meal or a
	// recipient.
	ReferenceLocation *models.Coordinate
	RadiusKm          float64
	Timeout           time.Duration
	DedupeEnabled     bool
	DedupeTTL         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		RadiusKm:  DefaultRadiusKm,
		Timeout:   30 * time.Second,
		DedupeTTL: 24 * time.Hour,
	}
}
