// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package receiver reads positions from a GPS receiver speaking NMEA 0183 on a serial port.
package receiver

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/jacobsa/go-serial/serial"

	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/logger"
	"github.com/wneessen/navfix/internal/position"
	"github.com/wneessen/navfix/internal/vartype"
)

const (
	name = "nmea"

	DefaultPort       = "/dev/ttyUSB0"
	DefaultBaudRate   = 9600
	DefaultHDOPMeters = 5.0

	// used while no GGA sentence reported a dilution of precision
	fallbackAccuracy = 25.0
)

// Config describes the serial connection to the receiver.
type Config struct {
	Port     string
	BaudRate uint
	// HDOPMeters is the range error multiplied with the HDOP to estimate the horizontal accuracy.
	HDOPMeters float64
}

// NMEAProvider reads NMEA 0183 sentences from a GPS receiver on a serial port. Positions are taken
// from RMC sentences, accuracy and altitude from the most recent GGA sentence.
type NMEAProvider struct {
	name   string
	logger *logger.Logger
	config Config
	period time.Duration
	openFn func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu        sync.RWMutex
	coarse    geo.Point
	hasCoarse bool
}

// receiverState carries the GGA data between sentences of one stream.
type receiverState struct {
	hdop     float64
	altitude vartype.VarFloat64
}

// NewNMEAProvider returns a provider for the receiver on the configured serial port.
func NewNMEAProvider(log *logger.Logger, conf Config) *NMEAProvider {
	if conf.Port == "" {
		conf.Port = DefaultPort
	}
	if conf.BaudRate == 0 {
		conf.BaudRate = DefaultBaudRate
	}
	if conf.HDOPMeters <= 0 {
		conf.HDOPMeters = DefaultHDOPMeters
	}
	return &NMEAProvider{
		name:   name,
		logger: log,
		config: conf,
		period: time.Second * 10,
		openFn: serial.Open,
	}
}

func (p *NMEAProvider) Name() string {
	return p.name
}

// Stream opens the serial port and emits a fix for every valid RMC sentence. A failing port is
// reopened after the retry period until ctx is cancelled.
func (p *NMEAProvider) Stream(ctx context.Context) <-chan position.Fix {
	out := make(chan position.Fix)

	go func() {
		defer close(out)
		for {
			if err := p.read(ctx, out); err != nil {
				p.logger.Error("failed to read from GPS receiver", logger.Err(err),
					slog.String("port", p.config.Port))
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

// LastKnownCoarseFix returns the position of the most recent fix.
func (p *NMEAProvider) LastKnownCoarseFix() (geo.Point, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.coarse, p.hasCoarse
}

// read consumes sentences from the port until it fails or ctx is cancelled.
func (p *NMEAProvider) read(ctx context.Context, out chan<- position.Fix) error {
	port, err := p.openFn(serial.OpenOptions{
		PortName:        p.config.Port,
		BaudRate:        p.config.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	})
	if err != nil {
		return err
	}
	p.logger.Info("GPS serial port opened", slog.String("port", p.config.Port),
		slog.Uint64("baud_rate", uint64(p.config.BaudRate)))

	// closing the port unblocks a pending read
	stop := context.AfterFunc(ctx, func() {
		_ = port.Close()
	})
	defer func() {
		if stop() {
			_ = port.Close()
		}
	}()

	var state receiverState
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		fix, ok := p.handleSentence(&state, scanner.Text())
		if !ok {
			continue
		}
		p.mu.Lock()
		p.coarse, p.hasCoarse = fix.Position, true
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case out <- fix:
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	if err = scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// handleSentence parses a single line. It returns a fix for valid RMC sentences and updates the
// receiver state from GGA sentences.
func (p *NMEAProvider) handleSentence(state *receiverState, line string) (position.Fix, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return position.Fix{}, false
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		p.logger.Debug("ignoring malformed NMEA sentence", logger.Err(err))
		return position.Fix{}, false
	}

	switch sentence.DataType() {
	case nmea.TypeGGA:
		gga := sentence.(nmea.GGA)
		if gga.FixQuality == nmea.Invalid {
			state.hdop = 0
			state.altitude.Reset()
			return position.Fix{}, false
		}
		state.hdop = gga.HDOP
		state.altitude.Set(gga.Altitude)
	case nmea.TypeRMC:
		rmc := sentence.(nmea.RMC)
		if rmc.Validity != nmea.ValidRMC {
			return position.Fix{}, false
		}
		return p.fixFromRMC(state, rmc), true
	}
	return position.Fix{}, false
}

func (p *NMEAProvider) fixFromRMC(state *receiverState, rmc nmea.RMC) position.Fix {
	accuracy := fallbackAccuracy
	if state.hdop > 0 {
		accuracy = state.hdop * p.config.HDOPMeters
	}
	speed := rmc.Speed / geo.MetersPerSecToKnots

	fix := position.Fix{
		Position:       geo.Point{Lat: rmc.Latitude, Lng: rmc.Longitude},
		Altitude:       state.altitude,
		AccuracyMeters: accuracy,
		Speed:          vartype.NewVariable(speed),
		Time:           fixTime(rmc.Date, rmc.Time),
		Source:         p.name,
	}
	if speed > 0 {
		fix.Bearing.Set(geo.NormalizeBearing(rmc.Course))
	}
	return fix
}

// fixTime combines the RMC date and time into a UTC timestamp. Without a valid date the receipt
// time is used.
func fixTime(date nmea.Date, clock nmea.Time) time.Time {
	if !date.Valid || !clock.Valid {
		return time.Now().UTC()
	}
	return time.Date(2000+date.YY, time.Month(date.MM), date.DD, clock.Hour, clock.Minute, clock.Second,
		clock.Millisecond*int(time.Millisecond), time.UTC)
}
