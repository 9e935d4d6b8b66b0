package location

import "math"

// EarthRadiusKm is the Earth radius in kilometers for Haversine.
const EarthRadiusKm = 6371.0

// Point is a coordinate in degrees.
type Point struct {
	Lat float64
	Lng float64
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// HaversineKm returns the great-circle distance in km between two points.
func HaversineKm(a, b Point) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	φ1, φ2 := rad(a.Lat), rad(b.Lat)
	Δφ := rad(b.Lat - a.Lat)
	Δλ := rad(b.Lng - a.Lng)
	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceMeters is HaversineKm rounded to whole meters.
func DistanceMeters(a, b Point) int {
	return int(math.Round(HaversineKm(a, b) * 1000))
}
