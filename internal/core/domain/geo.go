package domain

import "math"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point has finite coordinates inside
// [-90, 90] latitude and [-180, 180] longitude.
func (p GeoPoint) Valid() bool {
	if !finite(p.Lat) || !finite(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Bounds represents a geographic bounding box, typically the rectangle
// currently displayed by a map. MinLon greater than MaxLon describes a box
// that crosses the antimeridian.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// WorldBounds covers the whole globe.
var WorldBounds = Bounds{MinLat: -90, MinLon: -180, MaxLat: 90, MaxLon: 180}

// Valid reports whether all corners are finite and in range and the
// southern edge is not north of the northern edge.
func (b Bounds) Valid() bool {
	sw := GeoPoint{Lat: b.MinLat, Lon: b.MinLon}
	ne := GeoPoint{Lat: b.MaxLat, Lon: b.MaxLon}
	return sw.Valid() && ne.Valid() && b.MinLat <= b.MaxLat
}

// CrossesAntimeridian reports whether the box wraps across longitude 180.
func (b Bounds) CrossesAntimeridian() bool {
	return b.MinLon > b.MaxLon
}

// Contains reports whether p lies inside the box. Edges are inclusive.
func (b Bounds) Contains(p GeoPoint) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return p.Lon >= b.MinLon || p.Lon <= b.MaxLon
	}
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Span returns the latitude and longitude extent of the box in degrees.
func (b Bounds) Span() (latSpan, lonSpan float64) {
	latSpan = b.MaxLat - b.MinLat
	lonSpan = b.MaxLon - b.MinLon
	if b.CrossesAntimeridian() {
		lonSpan += 360
	}
	return latSpan, lonSpan
}

// Center returns the midpoint of the box.
func (b Bounds) Center() GeoPoint {
	_, lonSpan := b.Span()
	return GeoPoint{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: wrapLon(b.MinLon + lonSpan/2),
	}
}

// BoundsAround builds a box of the given extent centred on c. Latitude is
// clamped to the poles; longitude wraps across the antimeridian.
func BoundsAround(c GeoPoint, latSpan, lonSpan float64) Bounds {
	halfLat := latSpan / 2
	b := Bounds{
		MinLat: math.Max(-90, c.Lat-halfLat),
		MaxLat: math.Min(90, c.Lat+halfLat),
	}

	if !finite(lonSpan) || lonSpan >= 360 {
		b.MinLon, b.MaxLon = -180, 180
		return b
	}

	halfLon := lonSpan / 2
	b.MinLon = wrapLon(c.Lon - halfLon)
	b.MaxLon = wrapLon(c.Lon + halfLon)
	if b.MaxLon == -180 && c.Lon+halfLon > 0 {
		b.MaxLon = 180
	}
	return b
}

// wrapLon normalises a longitude into [-180, 180).
func wrapLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
