// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/navfix/internal/logger"
	"github.com/wneessen/navfix/internal/position"
)

// Manager owns the live and the simulated Source and feeds fixes of the active one into the Filter.
// Exactly one Source is active at a time.
//
// Switching from the simulated source back to the live one discards the filter state, so a
// simulated position is never displayed as a real one. Entering the simulation keeps the state;
// the jump is expected since the user asked for it.
type Manager struct {
	logger  *logger.Logger
	filter  *position.Filter
	sources map[Kind]Source

	// mu serializes source transitions with fix ingestion.
	mu      sync.Mutex
	kind    Kind
	parent  context.Context
	cancel  context.CancelFunc
	running bool
}

// NewManager returns a stopped Manager with kind as the active source.
func NewManager(log *logger.Logger, filter *position.Filter, live, simulated Source, kind Kind) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if filter == nil {
		return nil, fmt.Errorf("position filter is required")
	}
	if live == nil || simulated == nil {
		return nil, ErrNoSource
	}
	if kind != Live && kind != Simulated {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	return &Manager{
		logger:  log,
		filter:  filter,
		sources: map[Kind]Source{Live: live, Simulated: simulated},
		kind:    kind,
	}, nil
}

// Start begins acquisition from the active source. The acquisition ends on Stop or when ctx is
// cancelled. Calling Start on a running Manager has no effect.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.parent = ctx
	m.running = true
	m.startLocked()
}

// Stop ends acquisition from the active source. Calling Stop on a stopped Manager has no effect.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.stopLocked()
	m.running = false
	m.parent = nil
}

// Restart stops and starts the active source again, e.g. after the system resumed from sleep.
func (m *Manager) Restart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.stopLocked()
	m.startLocked()
}

// SetSource switches to the source of the given kind. Leaving the simulated source discards the
// filter state.
func (m *Manager) SetSource(kind Kind) error {
	if kind != Live && kind != Simulated {
		return fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.switchLocked(kind)
	return nil
}

// Toggle switches between the live and the simulated source and returns the new kind.
func (m *Manager) Toggle() Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := Simulated
	if m.kind == Simulated {
		next = Live
	}
	m.switchLocked(next)
	return next
}

// CurrentSource returns the kind of the active source.
func (m *Manager) CurrentSource() Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kind
}

// CurrentState returns a snapshot of the filter state. Without any fix history on the live source
// the filter is seeded with the live source's last known coarse position first.
func (m *Manager) CurrentState() (position.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.filter.CurrentState()
	if ok || m.kind != Live {
		return state, ok
	}
	if coarse, found := m.sources[Live].LastKnownCoarseFix(); found {
		m.logger.Debug("seeding position with last known coarse fix", slog.String("position", coarse.String()))
		m.filter.Seed(coarse)
		return m.filter.CurrentState()
	}
	return state, false
}

// switchLocked makes kind the active source. m.mu must be held.
func (m *Manager) switchLocked(kind Kind) {
	if kind == m.kind {
		return
	}
	if m.running {
		m.stopLocked()
	}
	if m.kind == Simulated {
		// discard simulated position
		m.filter.Reset()
	}
	m.logger.Info("switching fix source", slog.String("from", m.kind.String()),
		slog.String("to", kind.String()))
	m.kind = kind
	if m.running {
		m.startLocked()
	}
}

// startLocked subscribes to the active source. m.mu must be held.
func (m *Manager) startLocked() {
	ctx, cancel := context.WithCancel(m.parent)
	m.cancel = cancel
	src := m.sources[m.kind]
	m.logger.Info("requesting location updates", slog.String("source", src.Name()),
		slog.String("kind", m.kind.String()))
	go m.pump(ctx, src.Stream(ctx))
}

// stopLocked cancels the active subscription. m.mu must be held.
func (m *Manager) stopLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.logger.Info("no longer listening for location updates", slog.String("kind", m.kind.String()))
}

// pump feeds fixes from a source stream into the filter. Fixes still in flight after the stream's
// context was cancelled are dropped.
func (m *Manager) pump(ctx context.Context, fixes <-chan position.Fix) {
	for fix := range fixes {
		m.mu.Lock()
		if ctx.Err() == nil {
			m.filter.Ingest(fix)
		}
		m.mu.Unlock()
	}
}
