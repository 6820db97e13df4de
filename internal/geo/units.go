// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"errors"
	"fmt"
	"strings"
)

// Multiply the base unit by these constants to obtain the target unit.
const (
	MetersToNM            = 0.000539956803
	MetersToMile          = 0.000621371192
	MetersToKM            = 0.001
	Meters                = 1
	MetersToFeet          = 3.2808399
	MetersPerSecToKnots   = 1.94384449
	MetersPerSecToMPH     = 2.23693629
	MetersPerSecToKPH     = 3.6
	secondsPerHour        = 3600
	secondsPerMinute      = 60
	unitsNameMiles        = "miles"
	unitsNameNauticalMile = "nautical"
	unitsNameKilometers   = "kilometers"
)

// ErrUnknownUnits is returned when a distance unit system name cannot be resolved.
var ErrUnknownUnits = errors.New("unknown distance units")

// DistanceUnits describes a unit system for displaying distances and speeds. Short distance units
// are meant for values where the main unit would be below 1.0 (e.g. meters instead of kilometers).
type DistanceUnits struct {
	Name                      string
	DistanceAbbreviation      string
	ShortDistanceAbbreviation string
	SpeedAbbreviation         string

	perMeter              float64
	shortDistancePerMeter float64
	perMeterPerSecond     float64
}

var (
	Miles = DistanceUnits{
		Name: unitsNameMiles, DistanceAbbreviation: "mi", ShortDistanceAbbreviation: "ft", SpeedAbbreviation: "mph",
		perMeter: MetersToMile, shortDistancePerMeter: MetersToFeet, perMeterPerSecond: MetersPerSecToMPH,
	}
	NauticalMiles = DistanceUnits{
		Name: unitsNameNauticalMile, DistanceAbbreviation: "nm", ShortDistanceAbbreviation: "ft", SpeedAbbreviation: "kts",
		perMeter: MetersToNM, shortDistancePerMeter: MetersToFeet, perMeterPerSecond: MetersPerSecToKnots,
	}
	Kilometers = DistanceUnits{
		Name: unitsNameKilometers, DistanceAbbreviation: "km", ShortDistanceAbbreviation: "m", SpeedAbbreviation: "kph",
		perMeter: MetersToKM, shortDistancePerMeter: Meters, perMeterPerSecond: MetersPerSecToKPH,
	}
)

// ParseDistanceUnits resolves a unit system by its configuration name (miles, nautical or kilometers).
func ParseDistanceUnits(name string) (DistanceUnits, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case unitsNameMiles, "mi":
		return Miles, nil
	case unitsNameNauticalMile, "nm":
		return NauticalMiles, nil
	case unitsNameKilometers, "km":
		return Kilometers, nil
	default:
		return DistanceUnits{}, fmt.Errorf("%w: %q", ErrUnknownUnits, name)
	}
}

// Distance converts meters into this unit's distance.
func (u DistanceUnits) Distance(meters float64) float64 {
	return meters * u.perMeter
}

// Meters converts a distance in this unit into meters.
func (u DistanceUnits) Meters(distance float64) float64 {
	return distance / u.perMeter
}

// ShortDistance converts meters into this unit's short distance.
func (u DistanceUnits) ShortDistance(meters float64) float64 {
	return meters * u.shortDistancePerMeter
}

// MetersFromShortDistance converts a short distance in this unit into meters.
func (u DistanceUnits) MetersFromShortDistance(shortDistance float64) float64 {
	return shortDistance / u.shortDistancePerMeter
}

// Speed converts meters per second into this unit's speed.
func (u DistanceUnits) Speed(metersPerSecond float64) float64 {
	return metersPerSecond * u.perMeterPerSecond
}

// HoursMinutesSeconds formats a duration given in seconds as "h:mm:ss", or "m:ss" if it is below
// one hour.
func HoursMinutesSeconds(seconds float64) string {
	total := int(seconds)
	hours := total / secondsPerHour
	minutes := total/secondsPerMinute - hours*secondsPerMinute
	secs := total - hours*secondsPerHour - minutes*secondsPerMinute

	if hours == 0 {
		return fmt.Sprintf("%d:%02d", minutes, secs)
	}
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
}
