// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/gpspoll"
	"github.com/wneessen/navfix/internal/logger"
	"github.com/wneessen/navfix/internal/position"
	"github.com/wneessen/navfix/internal/vartype"
)

const (
	name = "gpsd"

	DefaultHost = "localhost"
	DefaultPort = "2947"
)

// session is the subset of a gpsd session the provider needs.
type session interface {
	AddFilter(class string, f gpsd.Filter)
	Watch() chan bool
	Close() error
}

// GPSDProvider streams fixes from a gpsd daemon. Lost connections are re-established after the
// retry period until the stream's context is cancelled.
type GPSDProvider struct {
	name   string
	logger *logger.Logger
	addr   string
	period time.Duration

	now    func() time.Time
	dialFn func(addr string) (session, error)
	pollFn func(ctx context.Context) (gpspoll.Fix, error)

	mu        sync.RWMutex
	coarse    geo.Point
	hasCoarse bool
}

// NewGPSDProvider returns a provider for the gpsd daemon at host:port.
func NewGPSDProvider(log *logger.Logger, host, port string) *GPSDProvider {
	if host == "" {
		host = DefaultHost
	}
	if port == "" {
		port = DefaultPort
	}
	client := gpspoll.New(host, port)
	return &GPSDProvider{
		name:   name,
		logger: log,
		addr:   client.Addr,
		period: time.Second * 10,
		now:    time.Now,
		dialFn: dialSession,
		pollFn: client.Poll,
	}
}

func (p *GPSDProvider) Name() string {
	return p.name
}

// Stream connects to gpsd and emits a fix for every TPV report with at least a 2D fix. The session
// is closed when the stream's context is cancelled.
func (p *GPSDProvider) Stream(ctx context.Context) <-chan position.Fix {
	out := make(chan position.Fix)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			sess, err := p.dialFn(p.addr)
			if err != nil {
				p.logger.Error("failed to connect to gpsd", logger.Err(err), slog.String("addr", p.addr))
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
					continue
				}
			}

			if !p.forward(ctx, sess, out) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.period):
			}
		}
	}()

	return out
}

// forward hands the session's fixes to out until the connection is lost or the context is
// cancelled, and closes the session in both cases. It returns false once the context is done.
func (p *GPSDProvider) forward(ctx context.Context, sess session, out chan<- position.Fix) bool {
	fixes := make(chan position.Fix)
	sess.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok {
			return
		}
		fix, ok := p.fixFromTPV(tpv)
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
		case fixes <- fix:
		}
	})
	done := sess.Watch()

	for {
		select {
		case <-ctx.Done():
			p.closeSession(sess, done)
			return false
		case <-done:
			p.logger.Warn("gpsd connection lost", slog.String("addr", p.addr))
			p.closeSession(sess, nil)
			return true
		case fix := <-fixes:
			p.setCoarse(fix.Position)
			select {
			case <-ctx.Done():
				p.closeSession(sess, done)
				return false
			case out <- fix:
			}
		}
	}
}

// closeSession closes the connection to gpsd. The session's reader reports its end on done
// without a buffer, so a pending done is drained in the background.
func (p *GPSDProvider) closeSession(sess session, done <-chan bool) {
	if done != nil {
		go func() { <-done }()
	}
	if err := sess.Close(); err != nil {
		p.logger.Debug("failed to close gpsd session", logger.Err(err), slog.String("addr", p.addr))
	}
}

// LastKnownCoarseFix returns the position of the most recent fix, or the one obtained by Prime.
func (p *GPSDProvider) LastKnownCoarseFix() (geo.Point, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.coarse, p.hasCoarse
}

// Prime polls gpsd once for a coarse position, so LastKnownCoarseFix has an answer before the
// stream delivered its first fix.
func (p *GPSDProvider) Prime(ctx context.Context) error {
	fix, err := p.pollFn(ctx)
	if err != nil {
		return err
	}
	if !fix.Has2DFix() {
		p.logger.Debug("gpsd has no position fix yet", slog.Int("mode", fix.Mode))
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasCoarse {
		p.coarse, p.hasCoarse = fix.Point(), true
	}
	return nil
}

func (p *GPSDProvider) setCoarse(pos geo.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coarse, p.hasCoarse = pos, true
}

// fixFromTPV converts a TPV report into a Fix. Reports without a 2D fix are dropped. The course is
// only reported while gpsd sees movement.
func (p *GPSDProvider) fixFromTPV(tpv *gpsd.TPVReport) (position.Fix, bool) {
	if tpv.Mode < gpsd.Mode2D {
		return position.Fix{}, false
	}

	fix := position.Fix{
		Position:       geo.Point{Lat: tpv.Lat, Lng: tpv.Lon},
		AccuracyMeters: gpspoll.HorizontalAccuracy(int(tpv.Mode), 0, tpv.Epx, tpv.Epy),
		Speed:          vartype.NewVariable(tpv.Speed),
		Time:           p.now(),
		Source:         p.name,
	}
	if tpv.Mode >= gpsd.Mode3D {
		fix.Altitude.Set(tpv.Alt)
	}
	if tpv.Speed > 0 {
		fix.Bearing.Set(geo.NormalizeBearing(tpv.Track))
	}
	return fix, true
}

func dialSession(addr string) (session, error) {
	sess, err := gpsd.Dial(addr)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
