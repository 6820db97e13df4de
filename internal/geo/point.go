// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"fmt"
	"math"
)

// e6 is the scale of the fixed-point microdegree representation.
const e6 = 1e6

// Point represents a geographic position in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// PointE6 represents a geographic position in microdegrees (degrees * 1e6). One microdegree of
// latitude is roughly 0.11 meters.
type PointE6 struct {
	LatE6 int32
	LngE6 int32
}

// NewPoint returns a Point for the given latitude and longitude in degrees.
func NewPoint(lat, lng float64) Point {
	return Point{Lat: lat, Lng: lng}
}

// FromRadians returns a Point for the given latitude and longitude in radians.
func FromRadians(lat, lng float64) Point {
	return Point{Lat: lat * 180 / math.Pi, Lng: lng * 180 / math.Pi}
}

// LatRad returns the latitude in radians.
func (p Point) LatRad() float64 {
	return toRadians(p.Lat)
}

// LngRad returns the longitude in radians.
func (p Point) LngRad() float64 {
	return toRadians(p.Lng)
}

// E6 converts the Point into its microdegree form, rounding to the nearest microdegree.
func (p Point) E6() PointE6 {
	return PointE6{
		LatE6: int32(math.Round(p.Lat * e6)),
		LngE6: int32(math.Round(p.Lng * e6)),
	}
}

// Valid reports whether the Point lies within the EPSG:4326 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// String returns the Point formatted as "lat,lng" with microdegree precision.
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Point converts the microdegree form back into decimal degrees.
func (p PointE6) Point() Point {
	return Point{Lat: float64(p.LatE6) / e6, Lng: float64(p.LngE6) / e6}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
