// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpspoll fetches a single TPV report from gpsd without keeping a session open. It is used
// to obtain a coarse last known position before the streaming session delivers its first fix.
package gpspoll

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/wneessen/navfix/internal/geo"
)

const (
	FallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	FallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	FallbackAccuracyNoFix = 1e6 // effectively unusable
	watchTimeout          = time.Second * 2
)

// Client is a minimal gpsd client
type Client struct {
	Addr string
}

// Fix represents a single TPV report from gpsd.
type Fix struct {
	Lat   float64
	Lon   float64
	Alt   float64
	Acc   float64
	Track float64
	Speed float64
	Mode  int
}

// tpvResponse matches the subset of gpsd's TPV report we care about.
type tpvResponse struct {
	Class string  `json:"class"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	Mode  int     `json:"mode"`
	Track float64 `json:"track"`
	Speed float64 `json:"speed"`
	Epx   float64 `json:"epx"`
	Epy   float64 `json:"epy"`
	Eph   float64 `json:"eph"`
}

// New constructs a new Client for the given host and port.
func New(host, port string) *Client {
	return &Client{
		Addr: net.JoinHostPort(host, port),
	}
}

// Poll connects to gpsd, enables watch mode and returns the first TPV report received. The
// connection is closed before returning.
func (c *Client) Poll(ctx context.Context) (Fix, error) {
	var zero Fix

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return zero, fmt.Errorf("gpspoll: dial gpsd: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// without a deadline on ctx we must not hang forever on a silent gpsd
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(watchTimeout))
	}

	if _, err = fmt.Fprint(conn, `?WATCH={"enable":true,"json":true}`+"\n"); err != nil {
		return zero, fmt.Errorf("gpspoll: write WATCH: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var resp tpvResponse

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		if err = json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}
		if resp.Class != "TPV" {
			continue
		}

		return Fix{
			Lat:   resp.Lat,
			Lon:   resp.Lon,
			Alt:   resp.Alt,
			Acc:   HorizontalAccuracy(resp.Mode, resp.Eph, resp.Epx, resp.Epy),
			Track: resp.Track,
			Speed: resp.Speed,
			Mode:  resp.Mode,
		}, nil
	}

	if err = scanner.Err(); err != nil {
		return zero, fmt.Errorf("failed to scan gpsd response: %w", err)
	}

	return zero, fmt.Errorf("no TPV response received from gpsd")
}

// Has2DFix reports whether the fix has at least a 2D fix.
func (f Fix) Has2DFix() bool {
	return f.Mode >= 2
}

// Point returns the position of the fix.
func (f Fix) Point() geo.Point {
	return geo.Point{Lat: f.Lat, Lng: f.Lon}
}

// HorizontalAccuracy estimates the horizontal error in meters from gpsd's error estimates. When
// gpsd reports none, a typical value for the fix mode is returned.
func HorizontalAccuracy(mode int, eph, epx, epy float64) float64 {
	switch {
	case eph > 0:
		return eph
	case epx > 0 && epy > 0:
		return math.Hypot(epx, epy)
	}

	switch mode {
	case 3:
		return FallbackAccuracy3DFix
	case 2:
		return FallbackAccuracy2DFix
	default:
		return FallbackAccuracyNoFix
	}
}
