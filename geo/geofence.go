// Package geo validates captured coordinates against circular geofences.
package geo

import "math"

// EarthRadiusM is the mean earth radius in metres (IUGG).
const EarthRadiusM = 6371008.8

type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Sample is a position fix as delivered by the device's location service.
// It is an untrusted input: accuracy is recorded for audit but never
// tightens or relaxes a geofence check.
type Sample struct {
	Lat       float64 `json:"latitude"`
	Lon       float64 `json:"longitude"`
	AccuracyM float64 `json:"accuracy"`
}

func (s Sample) Point() Point {
	return Point{Lat: s.Lat, Lon: s.Lon}
}

// Fence is a circular allowed-zone around a registered event location.
type Fence struct {
	Center  Point
	RadiusM float64
}

func (f Fence) Contains(p Point) bool {
	return IsWithinGeofence(p, f.Center, f.RadiusM)
}

// Distance returns the great-circle distance between a and b in metres,
// computed with the haversine formula. The haversine argument is clamped
// to [0,1] so antipodal and pole-adjacent inputs cannot produce NaN from
// floating-point drift.
func Distance(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	if h > 1 {
		h = 1
	}
	if h < 0 {
		h = 0
	}
	return 2 * EarthRadiusM * math.Asin(math.Sqrt(h))
}

// IsWithinGeofence reports whether point lies within radiusMeters of
// center along the great circle. The comparison is a strict boolean on the
// reported coordinates; GPS accuracy is deliberately not consulted.
func IsWithinGeofence(point, center Point, radiusMeters float64) bool {
	return Distance(point, center) <= radiusMeters
}
