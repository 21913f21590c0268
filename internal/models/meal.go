// internal/models/meal.go
package models

import (
	"encoding/json"
	"math"
)

// Coordinate is a geographic point. Fields are pointers so that a missing
// latitude or longitude in a source document stays distinguishable from 0.
type Coordinate struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Valid reports whether the coordinate carries two usable numeric fields.
func (c *Coordinate) Valid() bool {
	if c == nil || c.Lat == nil || c.Lng == nil {
		return false
	}
	for _, v := range []float64{*c.Lat, *c.Lng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NewCoordinate is a convenience constructor for a fully populated coordinate.
func NewCoordinate(lat, lng float64) *Coordinate {
	return &Coordinate{Lat: &lat, Lng: &lng}
}

// MealRecord is the raw meal document as it arrives on the change feed.
type MealRecord struct {
	FamilyID  string `json:"family_id"`
	CreatedBy string `json:"created_by"`
	Type      string `json:"type"`
	Datetime  string `json:"datetime"`
}

// Recipient is a family member as returned by the membership store. The
// location and push token are optional; absence degrades to a skip during
// dispatch, never an error. Recipients are read fresh per dispatch and are
// not cached by the pipeline.
type Recipient struct {
	ID           string      `json:"id"`
	LastLocation *Coordinate `json:"lastLocation,omitempty"`
	PushToken    string      `json:"pushToken,omitempty"`
}

// DecodeMealRecord parses a raw change-feed payload into a MealRecord.
func DecodeMealRecord(data []byte) (*MealRecord, error) {
	var rec MealRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
