package geometry

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for distance calculations.
const EarthRadiusMeters = 6371000.0

// capSlackRadians widens a search cap so points sitting exactly on the radius
// survive floating point differences between s2 and the haversine formula.
const capSlackRadians = 1e-9

// HaversineMeters returns the great-circle distance in meters between two
// points given in degrees. Non-finite input yields NaN, which compares false
// against any radius.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// SearchCap is a spherical cap around a center point. It answers "might this
// point be within the radius" cheaply; callers confirm with HaversineMeters.
type SearchCap struct {
	cap s2.Cap
}

// NewSearchCap builds a cap of radiusMeters around (lat, lon).
func NewSearchCap(lat, lon, radiusMeters float64) SearchCap {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	angle := s1.Angle(radiusMeters/EarthRadiusMeters*(1+1e-6) + capSlackRadians)
	return SearchCap{cap: s2.CapFromCenterAngle(center, angle)}
}

// MayContain reports whether (lat, lon) may lie within the cap radius.
func (c SearchCap) MayContain(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return c.cap.ContainsPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon)))
}
