package entity

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// LocationSample is one GPS fix. Samples are immutable once constructed;
// an accepted sample is appended to its session's route and never mutated.
type LocationSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Accuracy  float64   `json:"accuracy"`
	Speed     *float64  `json:"speed,omitempty"`
	Course    *float64  `json:"course,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the sample as an orb point (lon/lat order).
func (s LocationSample) Point() orb.Point {
	return orb.Point{s.Longitude, s.Latitude}
}

// DistanceTo returns the great-circle distance to other in meters.
func (s LocationSample) DistanceTo(other LocationSample) float64 {
	return geo.DistanceHaversine(s.Point(), other.Point())
}
