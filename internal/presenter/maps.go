// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import "github.com/vorlif/spreak/localize"

var i18nVars = map[string]localize.MsgID{
	"position":  "Position",
	"speed":     "Speed",
	"track":     "Track",
	"altitude":  "Altitude",
	"accuracy":  "Accuracy",
	"source":    "Source",
	"live":      "Live",
	"simulated": "Simulated",
	"nofix":     "No position",
	"lastfix":   "Last fix",
}

// compassPoints are the eight principal winds, clockwise from north.
var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

var dirIcons = map[string]string{
	"N":  "↑",
	"NE": "↗",
	"E":  "→",
	"SE": "↘",
	"S":  "↓",
	"SW": "↙",
	"W":  "←",
	"NW": "↖",
}
