// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/vorlif/humanize"
	"github.com/vorlif/spreak"
	"golang.org/x/text/message"

	"github.com/wneessen/navfix/internal/config"
	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/i18n"
	"github.com/wneessen/navfix/internal/position"
)

// TemplateContext is the data the text and tooltip templates are rendered with. Distances and
// speeds are converted into the configured units. The Has* fields report whether the
// corresponding value is defined.
type TemplateContext struct {
	HasFix    bool
	Seeded    bool
	Latitude  float64
	Longitude float64
	Position  string

	HasAltitude bool
	Altitude    float64
	Accuracy    float64

	HasSpeed bool
	Speed    float64

	HasTrack      bool
	Track         float64
	TrackMagnetic float64
	Variation     float64

	Source     string
	Provider   string
	FixTime    time.Time
	UpdateTime time.Time
	Units      geo.DistanceUnits
}

type Presenter struct {
	TextTemplate    *template.Template
	TooltipTemplate *template.Template

	localizer  *spreak.Localizer
	humanizer  *humanize.Humanizer
	printer    *message.Printer
	units      geo.DistanceUnits
	declinator geo.Declinator
}

func New(conf *config.Config, lang *spreak.Localizer) (*Presenter, error) {
	units, err := geo.ParseDistanceUnits(conf.Units)
	if err != nil {
		return nil, fmt.Errorf("failed to parse units: %w", err)
	}

	pres := &Presenter{
		localizer:  lang,
		humanizer:  i18n.NewHumanizer(lang.Language()),
		printer:    message.NewPrinter(lang.Language()),
		units:      units,
		declinator: geo.FixedDeclinationDegrees(conf.Magnetic.Variation),
	}

	if pres.TextTemplate, err = template.New("text").Funcs(pres.templateFuncMap()).
		Parse(conf.Templates.Text); err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	if pres.TooltipTemplate, err = template.New("tooltip").Funcs(pres.templateFuncMap()).
		Parse(conf.Templates.Tooltip); err != nil {
		return nil, fmt.Errorf("failed to parse tooltip template: %w", err)
	}

	// catch references to unknown fields before the first real output
	if _, err = pres.Render(TemplateContext{Units: units}); err != nil {
		return nil, err
	}

	return pres, nil
}

// Units returns the unit system the context values are converted into.
func (p *Presenter) Units() geo.DistanceUnits {
	return p.units
}

// BuildContext converts a filter state into a TemplateContext. ok reports whether the state is
// defined at all; source names the active fix source.
func (p *Presenter) BuildContext(state position.State, ok bool, source string, now time.Time) TemplateContext {
	ctx := TemplateContext{
		Source:     source,
		UpdateTime: now,
		Units:      p.units,
	}
	if !ok {
		return ctx
	}

	ctx.HasFix = true
	ctx.Seeded = state.Seeded()
	ctx.Latitude = state.Position.Lat
	ctx.Longitude = state.Position.Lng
	ctx.Position = state.Position.String()
	ctx.Accuracy = p.units.ShortDistance(state.AccuracyMeters)
	ctx.Provider = state.Source
	ctx.FixTime = state.Time

	if alt, isSet := state.Altitude.Get(); isSet {
		ctx.HasAltitude = true
		ctx.Altitude = p.units.ShortDistance(alt)
	}
	if speed, isSet := state.Speed.Get(); isSet {
		ctx.HasSpeed = true
		ctx.Speed = p.units.Speed(speed)
	}
	if track, isSet := state.Bearing.Get(); isSet {
		at := state.Time
		if at.IsZero() {
			at = now
		}
		ctx.HasTrack = true
		ctx.Track = track
		ctx.Variation = geo.MagneticVariation(p.declinator, state.Position, state.Altitude.ValueOr(0), at)
		ctx.TrackMagnetic = geo.MagneticBearing(track, ctx.Variation)
	}
	return ctx
}

// Render executes the text and tooltip templates for ctx.
func (p *Presenter) Render(ctx TemplateContext) (map[string]string, error) {
	out := make(map[string]string, 2)
	for name, tpl := range map[string]*template.Template{
		"text":    p.TextTemplate,
		"tooltip": p.TooltipTemplate,
	} {
		buf := bytes.NewBuffer(nil)
		if err := tpl.Execute(buf, ctx); err != nil {
			return nil, fmt.Errorf("failed to render %s template: %w", name, err)
		}
		out[name] = buf.String()
	}
	return out, nil
}
