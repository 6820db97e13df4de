// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/vorlif/humanize"

	"github.com/wneessen/navfix/internal/geo"
)

func (p *Presenter) templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeFormat":    p.timeFormat,
		"localizedTime": p.localizedTime,
		"sinceTime":     p.sinceTime,
		"floatFormat":   p.floatFormat,
		"numFormat":     p.numFormat,
		"hms":           geo.HoursMinutesSeconds,
		"compass":       p.degToString,
		"arrow":         p.arrow,
		"pad":           p.pad,
		"loc":           p.loc,
		"lc":            strings.ToLower,
		"uc":            strings.ToUpper,
	}
}

func (p *Presenter) loc(val string) string {
	val = strings.ToLower(val)
	if raw, ok := i18nVars[val]; ok {
		return p.localizer.Get(raw)
	}
	return val
}

func (p *Presenter) localizedTime(val time.Time) string {
	return p.humanizer.FormatTime(val, humanize.TimeFormat)
}

// sinceTime describes the age of val relative to now, e.g. "5 seconds ago".
func (p *Presenter) sinceTime(val time.Time) string {
	return p.humanizer.NaturalTime(val)
}

func (p *Presenter) timeFormat(val time.Time, fmt string) string {
	return val.Format(fmt)
}

func (p *Presenter) floatFormat(val float64, precision int) string {
	pow := math.Pow(10, float64(precision))
	return fmt.Sprintf("%.*f", precision, math.Trunc(val*pow)/pow)
}

// numFormat formats val with the grouping and decimal separators of the configured language.
func (p *Presenter) numFormat(val float64, precision int) string {
	return p.printer.Sprintf("%.*f", precision, val)
}

// degToString returns the compass point nearest to the bearing deg.
func (p *Presenter) degToString(deg float64) string {
	idx := int(geo.NormalizeBearing(deg)+22.5) / 45
	return compassPoints[idx%len(compassPoints)]
}

func (p *Presenter) dirIcon(dir string) string {
	if icon, ok := dirIcons[strings.ToUpper(dir)]; ok {
		return icon
	}
	return ""
}

// arrow returns an arrow pointing into the direction of the bearing deg.
func (p *Presenter) arrow(deg float64) string {
	return p.dirIcon(p.degToString(deg))
}

// pad right-pads val to width terminal cells, so the module keeps its size in the bar.
func (p *Presenter) pad(width int, val string) string {
	return runewidth.FillRight(val, width)
}
