// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package source switches between live and simulated fix sources and feeds the active one into a
// position.Filter.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/position"
)

// Kind identifies the variant of a fix source.
type Kind int

const (
	// Live sources report the real physical position (GPS receiver, gpsd, ...).
	Live Kind = iota
	// Simulated sources report a simulated position.
	Simulated
)

var (
	ErrUnknownKind = errors.New("unknown source kind")
	ErrNoSource    = errors.New("fix source is required")
)

// Source defines the contract of a fix source.
//
// Stream starts the acquisition and delivers fixes on the returned channel until ctx is cancelled,
// after which the channel is closed. LastKnownCoarseFix reports a coarse last known position without
// blocking.
type Source interface {
	Name() string
	Stream(ctx context.Context) <-chan position.Fix
	LastKnownCoarseFix() (geo.Point, bool)
}

// ParseKind resolves a Kind from its configuration name.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "live", "real":
		return Live, nil
	case "simulated", "simulator":
		return Simulated, nil
	default:
		return Live, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// String returns the configuration name of the Kind.
func (k Kind) String() string {
	switch k {
	case Live:
		return "live"
	case Simulated:
		return "simulated"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}
