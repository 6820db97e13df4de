// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// stdLibSignalSource is the production implementation.
type stdLibSignalSource struct{}

func (stdLibSignalSource) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (stdLibSignalSource) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}

// HandleSignals toggles between the live and the simulated fix source on SIGUSR1 and logs the
// current position on SIGUSR2.
func (s *Service) HandleSignals(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGUSR1:
				next := s.manager.Toggle()
				s.logger.Info("fix source toggled", slog.String("source", next.String()))
				s.printPosition(ctx)
			case syscall.SIGUSR2:
				s.logCurrentState()
			}
		}
	}
}

func (s *Service) logCurrentState() {
	state, ok := s.manager.CurrentState()
	kind := s.manager.CurrentSource().String()
	if !ok {
		s.logger.Info("no position available", slog.String("source", kind))
		return
	}
	s.logger.Info("current position", slog.Float64("latitude", state.Position.Lat),
		slog.Float64("longitude", state.Position.Lng), slog.String("speed", state.Speed.String()),
		slog.String("bearing", state.Bearing.String()), slog.Float64("accuracy", state.AccuracyMeters),
		slog.String("source", kind))
}
