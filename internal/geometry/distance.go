// Package geometry provides the spatial primitives of the interpolation
// engine: great-circle distance, region area and grid tessellation.
package geometry

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// EarthRadiusKm is the mean earth radius used for distances and grid frames.
const EarthRadiusKm = 6371.0

// kmPerDegree is the length of one degree of latitude (and of longitude at the
// equator) on the EarthRadiusKm sphere.
const kmPerDegree = EarthRadiusKm * math.Pi / 180

// DistanceKm returns the great-circle distance between two [lng, lat] points.
// Identical points are exactly 0 apart.
func DistanceKm(a, b orb.Point) float64 {
	if a == b {
		return 0
	}
	p1 := s2.LatLngFromDegrees(a.Lat(), a.Lon())
	p2 := s2.LatLngFromDegrees(b.Lat(), b.Lon())
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// AreaSqKm returns the spherical area of the region in square kilometers.
func AreaSqKm(r domain.Region) float64 {
	return math.Abs(geo.Area(r.Polygon())) / 1e6
}
