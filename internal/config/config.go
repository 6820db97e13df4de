// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"

	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/source"
)

const (
	configEnv = "NAVFIX"

	DefaultTextTpl    = "{{if .HasFix}}{{if .HasTrack}}{{arrow .Track}} {{end}}{{if .HasSpeed}}" +
		"{{floatFormat .Speed 1}} {{.Units.SpeedAbbreviation}}{{else}}{{.Position}}{{end}}" +
		"{{else}}{{loc \"nofix\"}}{{end}}"
	DefaultTooltipTpl = "{{if .HasFix}}{{loc \"position\"}}: {{.Position}}" +
		"{{if .HasSpeed}}\n{{loc \"speed\"}}: {{floatFormat .Speed 1}} {{.Units.SpeedAbbreviation}}{{end}}" +
		"{{if .HasTrack}}\n{{loc \"track\"}}: {{floatFormat .TrackMagnetic 0}}°M ({{compass .Track}}){{end}}" +
		"{{if .HasAltitude}}\n{{loc \"altitude\"}}: {{numFormat .Altitude 0}} {{.Units.ShortDistanceAbbreviation}}{{end}}" +
		"{{if not .Seeded}}\n{{loc \"lastfix\"}}: {{sinceTime .FixTime}}{{end}}" +
		"{{else}}{{loc \"nofix\"}}{{end}}\n{{loc \"source\"}}: {{loc .Source}}"

	ProviderGPSD = "gpsd"
	ProviderNMEA = "nmea"
)

// Config represents the application's configuration structure.
type Config struct {
	// Allowed values: miles, nautical, kilometers
	Units    string     `fig:"units" default:"nautical"`
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`
	// Allowed values: live, simulated
	Source              string `fig:"source" default:"live"`
	DisableSleepMonitor bool   `fig:"disable_sleep_monitor"`

	Filter struct {
		MaxAccuracy   float64 `fig:"max_accuracy" default:"100"`
		MinSpeedKnots float64 `fig:"min_speed_knots" default:"3"`
		Window        int     `fig:"window" default:"3"`
	} `fig:"filter"`

	Intervals struct {
		Output time.Duration `fig:"output" default:"100ms"`
	} `fig:"intervals"`

	Live struct {
		// Allowed values: gpsd, nmea
		Provider string `fig:"provider" default:"gpsd"`
		GPSD     struct {
			Host string `fig:"host" default:"localhost"`
			Port string `fig:"port" default:"2947"`
		} `fig:"gpsd"`
		NMEA struct {
			Port       string  `fig:"port" default:"/dev/ttyUSB0"`
			BaudRate   uint    `fig:"baud_rate" default:"9600"`
			HDOPMeters float64 `fig:"hdop_meters" default:"5"`
		} `fig:"nmea"`
	} `fig:"live"`

	Simulator struct {
		Latitude   float64       `fig:"latitude" default:"37.6213"`
		Longitude  float64       `fig:"longitude" default:"-122.379"`
		Altitude   float64       `fig:"altitude" default:"300"`
		SpeedKnots float64       `fig:"speed_knots" default:"120"`
		Course     float64       `fig:"course" default:"90"`
		Accuracy   float64       `fig:"accuracy" default:"5"`
		Jitter     float64       `fig:"jitter"`
		Tick       time.Duration `fig:"tick" default:"1s"`
	} `fig:"simulator"`

	Magnetic struct {
		// Degrees, east positive as printed on charts
		Variation float64 `fig:"variation"`
	} `fig:"magnetic"`

	Templates struct {
		Text    string `fig:"text"`
		Tooltip string `fig:"tooltip"`
	} `fig:"templates"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if _, err := geo.ParseDistanceUnits(c.Units); err != nil {
		return fmt.Errorf("invalid units: %s", c.Units)
	}
	if _, err := source.ParseKind(c.Source); err != nil {
		return fmt.Errorf("invalid source: %s", c.Source)
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Filter.MaxAccuracy <= 0 {
		return fmt.Errorf("invalid filter max accuracy: %f", c.Filter.MaxAccuracy)
	}
	if c.Filter.MinSpeedKnots < 0 {
		return fmt.Errorf("invalid filter min speed: %f", c.Filter.MinSpeedKnots)
	}
	if c.Filter.Window < 1 {
		return fmt.Errorf("invalid filter window: %d", c.Filter.Window)
	}
	if c.Intervals.Output <= 0 {
		return fmt.Errorf("invalid output interval: %s", c.Intervals.Output)
	}
	c.Live.Provider = strings.ToLower(c.Live.Provider)
	if c.Live.Provider != ProviderGPSD && c.Live.Provider != ProviderNMEA {
		return fmt.Errorf("invalid live provider: %s", c.Live.Provider)
	}
	if c.Live.NMEA.HDOPMeters <= 0 {
		return fmt.Errorf("invalid HDOP range error: %f", c.Live.NMEA.HDOPMeters)
	}
	if !geo.NewPoint(c.Simulator.Latitude, c.Simulator.Longitude).Valid() {
		return fmt.Errorf("invalid simulator origin: %f,%f", c.Simulator.Latitude, c.Simulator.Longitude)
	}
	if c.Simulator.SpeedKnots < 0 {
		return fmt.Errorf("invalid simulator speed: %f", c.Simulator.SpeedKnots)
	}
	if c.Simulator.Tick <= 0 {
		return fmt.Errorf("invalid simulator tick: %s", c.Simulator.Tick)
	}
	if c.Magnetic.Variation < -180 || c.Magnetic.Variation > 180 {
		return fmt.Errorf("invalid magnetic variation: %f", c.Magnetic.Variation)
	}
	if c.Templates.Text == "" {
		c.Templates.Text = DefaultTextTpl
	}
	if c.Templates.Tooltip == "" {
		c.Templates.Tooltip = DefaultTooltipTpl
	}

	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
