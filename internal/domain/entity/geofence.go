package entity

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Geofence radius bounds in meters. Radii outside the bounds are clamped
// so a fat-fingered booking cannot disable containment checks.
const (
	MinGeofenceRadiusMeters = 100.0
	MaxGeofenceRadiusMeters = 5000.0
)

// Geofence is a circular boundary for one walk. Exit does not reject a
// sample; it only raises an anomaly for policy layers to interpret.
type Geofence struct {
	CenterLatitude  float64 `json:"centerLatitude"`
	CenterLongitude float64 `json:"centerLongitude"`
	RadiusMeters    float64 `json:"radiusMeters"`
}

// NewGeofence builds a fence around center with the radius clamped to the
// allowed bounds.
func NewGeofence(lat, lon, radiusMeters float64) *Geofence {
	if radiusMeters < MinGeofenceRadiusMeters {
		radiusMeters = MinGeofenceRadiusMeters
	}
	if radiusMeters > MaxGeofenceRadiusMeters {
		radiusMeters = MaxGeofenceRadiusMeters
	}

	return &Geofence{
		CenterLatitude:  lat,
		CenterLongitude: lon,
		RadiusMeters:    radiusMeters,
	}
}

// Contains reports whether the sample lies within the fence.
func (g *Geofence) Contains(sample LocationSample) bool {
	center := orb.Point{g.CenterLongitude, g.CenterLatitude}

	return geo.DistanceHaversine(center, sample.Point()) <= g.RadiusMeters
}
