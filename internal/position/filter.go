// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package position turns a stream of jittery raw fixes into a single smoothed position state.
//
// Raw receiver data is often noisy and the reported ground speed is unreliable while altitude is
// changing, so the Filter derives ground speed from consecutive positions, smooths it
// exponentially and fills in a missing bearing from the track between fixes.
package position

import (
	"log/slog"
	"math"
	"sync"

	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/logger"
	"github.com/wneessen/navfix/internal/vartype"
)

const (
	// DefaultMaxAccuracy is the accuracy in meters above which fixes are ignored.
	DefaultMaxAccuracy = 100.0

	// DefaultMinSpeed is the smoothed speed in m/s (3 knots) below which we consider
	// ourselves stationary.
	DefaultMinSpeed = 3 / geo.MetersPerSecToKnots

	// DefaultWindow is the number of samples the speed smoothing averages over. Higher values give
	// more smoothing and more lag.
	DefaultWindow = 3
)

// Options tunes the Filter. Zero values select the defaults.
type Options struct {
	MaxAccuracy float64
	MinSpeed    float64
	Window      int
}

// Filter keeps the current best estimate of position, ground speed and bearing. It is safe for
// concurrent use: Ingest calls are serialized and CurrentState returns copies.
type Filter struct {
	logger  *logger.Logger
	options Options

	mu       sync.RWMutex
	state    State
	hasState bool
}

// NewFilter returns an empty Filter.
func NewFilter(log *logger.Logger, opts Options) *Filter {
	if opts.MaxAccuracy <= 0 {
		opts.MaxAccuracy = DefaultMaxAccuracy
	}
	if opts.MinSpeed <= 0 {
		opts.MinSpeed = DefaultMinSpeed
	}
	if opts.Window < 1 {
		opts.Window = DefaultWindow
	}
	return &Filter{
		logger:  log,
		options: opts,
	}
}

// Options returns the effective options of the Filter.
func (f *Filter) Options() Options {
	return f.options
}

// Ingest feeds a raw fix into the Filter. Fixes with poor accuracy are dropped.
func (f *Filter) Ingest(fix Fix) {
	if fix.AccuracyMeters > f.options.MaxAccuracy {
		f.logger.Info("ignoring fix, accuracy too low", slog.Float64("accuracy", fix.AccuracyMeters),
			slog.String("source", fix.Source))
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasState || f.state.Seeded() {
		f.state = stateFromFix(fix, vartype.NewVariable(fix.Speed.ValueOr(0)), fix.Bearing)
		f.hasState = true
		return
	}

	prev := f.state
	speed := f.smoothSpeed(prev, fix)
	bearing := fix.Bearing
	if !bearing.IsSet() {
		bearing = f.deriveBearing(prev, fix, speed)
	}
	f.state = stateFromFix(fix, vartype.NewVariable(speed), bearing)
}

// smoothSpeed calculates the ground speed from the distance travelled since the previous state,
// since the speed reported by the receiver is often wrong, especially when altitude is changing.
func (f *Filter) smoothSpeed(prev State, fix Fix) float64 {
	previous := prev.Speed.ValueOr(0)
	seconds := fix.Time.Sub(prev.Time).Seconds()
	if seconds <= 0 {
		return previous
	}

	meters := geo.DistanceMeters(prev.Position, fix.Position)
	samples := float64(f.options.Window)
	smoothed := (previous*(samples-1) + meters/seconds) / samples
	if smoothed < f.options.MinSpeed {
		return 0
	}
	return smoothed
}

// deriveBearing calculates the bearing for a fix without one. While stationary the previous
// bearing is kept.
func (f *Filter) deriveBearing(prev State, fix Fix, speed float64) vartype.VarFloat64 {
	if speed <= 0 {
		return prev.Bearing
	}

	bearing := geo.InitialCourse(prev.Position, fix.Position)
	f.logger.Debug("calculated bearing", slog.Float64("bearing", bearing))
	previous, ok := prev.Bearing.Get()
	if !ok {
		return vartype.NewVariable(bearing)
	}

	averaged := AverageBearing(previous, bearing)
	f.logger.Debug("normalized bearing", slog.Float64("bearing", averaged))
	return vartype.NewVariable(averaged)
}

// Seed sets a coarse position when no history exists yet. Speed and bearing stay undefined.
// Seeding a Filter that already holds a state has no effect.
func (f *Filter) Seed(p geo.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasState {
		return
	}
	f.state = State{Position: p}
	f.hasState = true
}

// CurrentState returns a copy of the current state and false if there is none.
func (f *Filter) CurrentState() (State, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state, f.hasState
}

// Reset discards the current state.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = State{}
	f.hasState = false
}

// AverageBearing averages two bearings in degrees, handling the wraparound at 0/360 so that 350
// and 10 average to 0 instead of 180. The result is in [0, 360).
func AverageBearing(a, b float64) float64 {
	if math.Abs(a-b) > 180 {
		if a < 180 {
			a += 360
		}
		if b < 180 {
			b += 360
		}
	}
	return geo.NormalizeBearing((a + b) / 2)
}
