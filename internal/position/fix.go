// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package position

import (
	"time"

	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/vartype"
)

// Fix is a single raw position sample as delivered by a fix source. Speed and bearing are
// optional and, for speed in particular, not trusted by the Filter.
type Fix struct {
	Position       geo.Point
	Altitude       vartype.VarFloat64 // meters
	AccuracyMeters float64
	Speed          vartype.VarFloat64 // meters per second
	Bearing        vartype.VarFloat64 // degrees clockwise from true north
	Time           time.Time
	Source         string
}

// State is the Filter's best estimate of the current position. Speed is defined for every state
// built from a real fix. Bearing stays undefined until it could be determined once.
type State struct {
	Position       geo.Point
	Altitude       vartype.VarFloat64
	AccuracyMeters float64
	Speed          vartype.VarFloat64
	Bearing        vartype.VarFloat64
	Time           time.Time
	Source         string
}

// Seeded reports whether the State is a coarse seed position rather than the result of a fix.
func (s State) Seeded() bool {
	return s.Time.IsZero()
}

// stateFromFix builds a new State from the given fix and derived quantities.
func stateFromFix(fix Fix, speed, bearing vartype.VarFloat64) State {
	return State{
		Position:       fix.Position,
		Altitude:       fix.Altitude,
		AccuracyMeters: fix.AccuracyMeters,
		Speed:          speed,
		Bearing:        bearing,
		Time:           fix.Time,
		Source:         fix.Source,
	}
}
