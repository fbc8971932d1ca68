// Package geospatial holds small spherical-earth helpers for pin lookups.
package geospatial

import "math"

const (
	earthRadiusMeters = 6371000.0
	metersPerDegree   = 111320.0

	maxLat = 90.0
	maxLon = 180.0
)

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns a box of radiusMeters around a point, clamped to valid
// coordinates. Boxes never wrap the antimeridian; a box that would touch a
// pole spans every longitude.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLatOut, maxLonOut float64) {
	latDelta := radiusMeters / metersPerDegree
	minLat = clamp(lat-latDelta, -maxLat, maxLat)
	maxLatOut = clamp(lat+latDelta, -maxLat, maxLat)

	cos := math.Cos(toRad(lat))
	if minLat <= -maxLat || maxLatOut >= maxLat || cos < 1e-9 {
		return minLat, -maxLon, maxLatOut, maxLon
	}
	lonDelta := radiusMeters / (metersPerDegree * cos)
	minLon = clamp(lon-lonDelta, -maxLon, maxLon)
	maxLonOut = clamp(lon+lonDelta, -maxLon, maxLon)
	return minLat, minLon, maxLatOut, maxLonOut
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
