// Package geofence decides whether a reported location lies inside the office zone.
package geofence

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the Haversine formula.
const EarthRadiusMeters = 6371000.0

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks that the coordinate is within the WGS84 ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Longitude)
	}
	return nil
}

// Zone is a circular boundary around a center point.
type Zone struct {
	Center       Point
	RadiusMeters float64
}

// ErrInvalidRadius is returned for zones whose radius is not positive.
var ErrInvalidRadius = errors.New("radius must be greater than zero")

// Validate checks the center coordinate and the radius.
func (z Zone) Validate() error {
	if err := z.Center.Validate(); err != nil {
		return err
	}
	if !(z.RadiusMeters > 0) {
		return ErrInvalidRadius
	}
	return nil
}

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(p1, p2 Point) float64 {
	phi1 := radians(p1.Latitude)
	phi2 := radians(p2.Latitude)
	deltaPhi := radians(p2.Latitude - p1.Latitude)
	deltaLambda := radians(p2.Longitude - p1.Longitude)

	sinPhi := math.Sin(deltaPhi / 2)
	sinLambda := math.Sin(deltaLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Contains reports whether p lies inside the zone. The boundary is inside.
func (z Zone) Contains(p Point) bool {
	return DistanceMeters(p, z.Center) <= z.RadiusMeters
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
