// Package geo holds the spherical math used by proximity filtering and route estimation.
package geo

import (
	"math"

	"github.com/example/odpfinder/internal/odp/domain"
)

// EarthRadiusMeters is the mean earth radius used by every distance in the module.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b domain.Coordinate) float64 {
	lat1 := ToRadians(a.Lat)
	lat2 := ToRadians(b.Lat)
	dlat := ToRadians(b.Lat - a.Lat)
	dlon := ToRadians(b.Lng - a.Lng)

	sinDlat := math.Sin(dlat / 2)
	sinDlon := math.Sin(dlon / 2)
	h := sinDlat*sinDlat + math.Cos(lat1)*math.Cos(lat2)*sinDlon*sinDlon
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Destination walks meters from c along the initial bearing (degrees clockwise from north).
func Destination(c domain.Coordinate, bearingDeg, meters float64) domain.Coordinate {
	delta := meters / EarthRadiusMeters
	theta := ToRadians(bearingDeg)
	lat1 := ToRadians(c.Lat)
	lng1 := ToRadians(c.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)
	lng := math.Mod(ToDegrees(lng2)+540, 360) - 180
	return domain.Coordinate{Lat: ToDegrees(lat2), Lng: lng}
}

// Lerp interpolates linearly in degree space; t=0 gives a, t=1 gives b.
func Lerp(a, b domain.Coordinate, t float64) domain.Coordinate {
	return domain.Coordinate{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// MetersToAngle converts an arc length on the earth surface to radians.
func MetersToAngle(meters float64) float64 {
	return meters / EarthRadiusMeters
}

// MetersToLatDegrees converts a north-south distance into degrees of latitude.
func MetersToLatDegrees(meters float64) float64 {
	return ToDegrees(MetersToAngle(meters))
}

// MetersToLngDegrees converts an east-west distance at the given latitude into degrees of longitude.
func MetersToLngDegrees(meters, lat float64) float64 {
	cos := math.Cos(ToRadians(lat))
	if cos < 1e-12 {
		return 360
	}
	return MetersToLatDegrees(meters) / cos
}

func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func ToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
