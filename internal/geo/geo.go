package geo

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371

// Point is a WGS-84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports whether the point lies within the WGS-84 coordinate ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("geo: latitude out of range [-90, 90]: %f", p.Lat)
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("geo: longitude out of range [-180, 180]: %f", p.Lon)
	}
	return nil
}

// Valid is Validate without the error detail.
func (p Point) Valid() bool {
	return p.Validate() == nil
}

// DistanceKm returns the great-circle distance between two points in kilometres.
func DistanceKm(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// Proximity maps a distance onto (0, 1], 1 at zero distance.
func Proximity(distanceKm float64) float64 {
	if distanceKm < 0 {
		distanceKm = 0
	}
	return 1 / (1 + distanceKm)
}
