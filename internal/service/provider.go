// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"

	"github.com/wneessen/navfix/internal/config"
	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/logger"
	"github.com/wneessen/navfix/internal/source"
	"github.com/wneessen/navfix/internal/source/provider/gpsd"
	"github.com/wneessen/navfix/internal/source/provider/receiver"
	"github.com/wneessen/navfix/internal/source/provider/simulator"
)

func selectLiveProvider(conf *config.Config, log *logger.Logger) (source.Source, error) {
	switch strings.ToLower(conf.Live.Provider) {
	case config.ProviderGPSD:
		return gpsd.NewGPSDProvider(log, conf.Live.GPSD.Host, conf.Live.GPSD.Port), nil
	case config.ProviderNMEA:
		return receiver.NewNMEAProvider(log, receiver.Config{
			Port:       conf.Live.NMEA.Port,
			BaudRate:   conf.Live.NMEA.BaudRate,
			HDOPMeters: conf.Live.NMEA.HDOPMeters,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported live provider: %s", conf.Live.Provider)
	}
}

func newSimulator(conf *config.Config) *simulator.SimulatorProvider {
	return simulator.NewSimulatorProvider(simulator.Config{
		Origin:   geo.NewPoint(conf.Simulator.Latitude, conf.Simulator.Longitude),
		Altitude: conf.Simulator.Altitude,
		Speed:    conf.Simulator.SpeedKnots / geo.MetersPerSecToKnots,
		Course:   conf.Simulator.Course,
		Accuracy: conf.Simulator.Accuracy,
		Jitter:   conf.Simulator.Jitter,
		Tick:     conf.Simulator.Tick,
	})
}
