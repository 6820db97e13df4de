// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package simulator

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/job"
	"github.com/wneessen/navfix/internal/position"
	"github.com/wneessen/navfix/internal/vartype"
)

const name = "simulator"

// Config describes the simulated flight.
type Config struct {
	Origin   geo.Point
	Altitude float64 // meters
	Speed    float64 // meters per second
	Course   float64 // degrees true
	Accuracy float64 // meters, reported with every fix
	Jitter   float64 // maximum random position error in meters
	Tick     time.Duration
}

// SimulatorProvider produces simulated fixes along a great circle at constant speed. Its position
// survives stopping and restarting the stream, so a paused simulation resumes where it left off.
type SimulatorProvider struct {
	name     string
	config   Config
	now      func() time.Time
	jitterFn func() (course, meters float64)

	mu       sync.Mutex
	position geo.Point
	course   float64
	last     time.Time
}

// NewSimulatorProvider returns a simulator starting at the configured origin.
func NewSimulatorProvider(conf Config) *SimulatorProvider {
	if conf.Tick <= 0 {
		conf.Tick = time.Second
	}
	provider := &SimulatorProvider{
		name:     name,
		config:   conf,
		now:      time.Now,
		position: conf.Origin,
		course:   geo.NormalizeBearing(conf.Course),
	}
	provider.jitterFn = provider.randomJitter
	return provider
}

// Name returns the name of the SimulatorProvider.
func (p *SimulatorProvider) Name() string {
	return p.name
}

// Stream emits one simulated fix per tick until ctx is cancelled. The first fix is emitted right
// away at the current simulated position.
func (p *SimulatorProvider) Stream(ctx context.Context) <-chan position.Fix {
	out := make(chan position.Fix)

	p.mu.Lock()
	p.last = time.Time{}
	p.mu.Unlock()

	go func() {
		defer close(out)
		job.NewImmediate(p.config.Tick, func(ctx context.Context) {
			fix := p.advance()
			select {
			case <-ctx.Done():
			case out <- fix:
			}
		}).Start(ctx)
	}()

	return out
}

// LastKnownCoarseFix returns the current simulated position.
func (p *SimulatorProvider) LastKnownCoarseFix() (geo.Point, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, true
}

// advance moves the simulated position forward by the time elapsed since the previous tick and
// returns the resulting fix.
func (p *SimulatorProvider) advance() position.Fix {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if !p.last.IsZero() {
		elapsed := now.Sub(p.last).Seconds()
		p.position = geo.PointAlongRadial(p.position, p.course, p.config.Speed*elapsed)
	}
	p.last = now

	reported := p.position
	if p.config.Jitter > 0 {
		course, meters := p.jitterFn()
		reported = geo.PointAlongRadial(reported, course, meters)
	}

	return position.Fix{
		Position:       reported,
		Altitude:       vartype.NewVariable(p.config.Altitude),
		AccuracyMeters: p.config.Accuracy,
		Time:           now,
		Source:         p.name,
	}
}

func (p *SimulatorProvider) randomJitter() (float64, float64) {
	return rand.Float64() * 360, rand.Float64() * p.config.Jitter
}
