// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"time"
)

// Declinator is a geomagnetic model. Declination returns the angle between true and magnetic
// north in radians, west positive and east negative, for a position in radians, a height in
// kilometers and the model epoch.
type Declinator interface {
	Declination(latRad, lngRad, heightKm float64, epoch time.Time) float64
}

// DeclinatorFunc adapts a plain function to the Declinator interface.
type DeclinatorFunc func(latRad, lngRad, heightKm float64, epoch time.Time) float64

// Declination calls f.
func (f DeclinatorFunc) Declination(latRad, lngRad, heightKm float64, epoch time.Time) float64 {
	return f(latRad, lngRad, heightKm, epoch)
}

// FixedDeclination is a Declinator that returns the same variation (radians, west positive)
// everywhere. It is useful when a locally published variation is good enough.
type FixedDeclination float64

// Declination returns the fixed variation.
func (d FixedDeclination) Declination(float64, float64, float64, time.Time) float64 {
	return float64(d)
}

// FixedDeclinationDegrees returns a FixedDeclination for a variation given in degrees as it is
// printed on charts (east positive, west negative).
func FixedDeclinationDegrees(chartDegrees float64) FixedDeclination {
	return FixedDeclination(toRadians(-chartDegrees))
}

// MagneticVariation returns the magnetic variation in degrees (west positive, east negative) at
// position p and heightMeters, evaluated by model for the time at. A nil model yields 0.
//
// The variation should only be applied to the numeric display of a track or bearing, never to
// drawing the map.
func MagneticVariation(model Declinator, p Point, heightMeters float64, at time.Time) float64 {
	if model == nil {
		return 0
	}
	return toDegrees(model.Declination(p.LatRad(), p.LngRad(), heightMeters/1000, at))
}

// MagneticBearing converts a true bearing into a magnetic bearing in [0, 360) for a variation given
// in degrees, west positive.
func MagneticBearing(trueBearing, variation float64) float64 {
	return NormalizeBearing(trueBearing + variation)
}
