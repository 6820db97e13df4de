// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geo implements the great-circle math used for navigation: distances, initial courses,
// radial projections, bearing normalization, magnetic variation adaptation and unit conversion.
// All functions are pure and safe for concurrent use.
package geo

import (
	"math"
)

// EarthRadius is the mean earth radius in meters used for all spherical calculations.
const EarthRadius = 6371009.0

// DistanceMeters returns the great-circle distance in meters between p1 and p2.
func DistanceMeters(p1, p2 Point) float64 {
	return DistanceRadians(p1.LatRad(), p1.LngRad(), p2.LatRad(), p2.LngRad())
}

// DistanceDegrees returns the great-circle distance in meters between two positions given in degrees.
func DistanceDegrees(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceRadians(toRadians(lat1), toRadians(lng1), toRadians(lat2), toRadians(lng2))
}

// DistanceE6 returns the great-circle distance in meters between two microdegree positions.
func DistanceE6(p1, p2 PointE6) float64 {
	return DistanceMeters(p1.Point(), p2.Point())
}

// DistanceRadians returns the great-circle distance in meters between two positions given in radians.
// We are using the Haversine formula to calculate the distance between two points on a sphere.
func DistanceRadians(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := lat2 - lat1
	dLng := lng2 - lng1
	a := haversin(dLat) + math.Cos(lat1)*math.Cos(lat2)*haversin(dLng)

	// Rounding can push a a hair outside of [0, 1] for near-antipodal points.
	a = math.Min(1, math.Max(0, a))
	return EarthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// InitialCourse returns the initial great-circle course from start to end in degrees clockwise from
// true north, in the range [0, 360). For coincident or antipodal points the direction is undefined
// and an arbitrary finite value is returned.
func InitialCourse(start, end Point) float64 {
	lat1, lng1 := start.LatRad(), start.LngRad()
	lat2, lng2 := end.LatRad(), end.LngRad()
	dLng := lng2 - lng1

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	return EuclideanMod(toDegrees(math.Atan2(y, x)), 360)
}

// PointAlongRadial returns the point reached from origin after travelling meters along the great
// circle with the given initial course (degrees clockwise from true north).
func PointAlongRadial(origin Point, course, meters float64) Point {
	crs := toRadians(course)
	dist := meters / EarthRadius
	lat1, lng1 := origin.LatRad(), origin.LngRad()

	lat := math.Asin(math.Sin(lat1)*math.Cos(dist) + math.Cos(lat1)*math.Sin(dist)*math.Cos(crs))
	dLngY := math.Sin(crs) * math.Sin(dist) * math.Cos(lat1)
	dLngX := math.Cos(dist) - math.Sin(lat1)*math.Sin(lat)
	lng := EuclideanMod(lng1+math.Atan2(dLngY, dLngX)+math.Pi, 2*math.Pi) - math.Pi

	return FromRadians(lat, lng)
}

// EuclideanMod returns x modulo y in the range [0, y) for y > 0. Unlike math.Mod the result is
// never negative.
func EuclideanMod(x, y float64) float64 {
	mod := math.Mod(x, y)
	if mod < 0 {
		mod += y
	}
	// A tiny negative remainder plus y rounds to y itself.
	if mod >= y {
		return 0
	}
	return mod
}

// NormalizeBearing returns bearing normalized into [0, 360).
func NormalizeBearing(bearing float64) float64 {
	return EuclideanMod(bearing, 360)
}

// haversin returns sin²(x/2).
func haversin(x float64) float64 {
	s := math.Sin(x / 2)
	return s * s
}
