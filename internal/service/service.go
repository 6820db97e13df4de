// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"

	"github.com/wneessen/navfix/internal/config"
	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/logger"
	"github.com/wneessen/navfix/internal/position"
	"github.com/wneessen/navfix/internal/presenter"
	"github.com/wneessen/navfix/internal/source"
	"github.com/wneessen/navfix/internal/source/provider/simulator"
)

const (
	OutputClass       = "navfix"
	NoFixOutputClass  = "nofix"
	SeededOutputClass = "seeded"
)

type outputData struct {
	Text          string   `json:"text"`
	Tooltip       string   `json:"tooltip"`
	Classes       []string `json:"class"`
	Alt           string   `json:"alt"`
	Source        string   `json:"source"`
	Latitude      *float64 `json:"lat,omitempty"`
	Longitude     *float64 `json:"lon,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
	Track         *float64 `json:"track,omitempty"`
	TrackMagnetic *float64 `json:"track_magnetic,omitempty"`
}

// primer is implemented by live sources that can look up a coarse position before their stream
// delivers the first fix.
type primer interface {
	Prime(ctx context.Context) error
}

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	filter    *position.Filter
	live      source.Source
	simulator *simulator.SimulatorProvider
	manager   *source.Manager
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	output    io.Writer
	now       func() time.Time

	SignalSrc signalSource
}

func New(conf *config.Config, log *logger.Logger, lang *spreak.Localizer) (*Service, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	kind, err := source.ParseKind(conf.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fix source: %w", err)
	}

	live, err := selectLiveProvider(conf, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create live provider: %w", err)
	}
	sim := newSimulator(conf)
	filter := position.NewFilter(log, position.Options{
		MaxAccuracy: conf.Filter.MaxAccuracy,
		MinSpeed:    conf.Filter.MinSpeedKnots / geo.MetersPerSecToKnots,
		Window:      conf.Filter.Window,
	})
	manager, err := source.NewManager(log, filter, live, sim, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to create source manager: %w", err)
	}

	pres, err := presenter.New(conf, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		filter:    filter,
		live:      live,
		simulator: sim,
		manager:   manager,
		presenter: pres,
		output:    os.Stdout,
		now:       time.Now,
		SignalSrc: stdLibSignalSource{},
	}
	return service, nil
}

func (s *Service) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	s.scheduler = scheduler

	// Start scheduled jobs
	if err = s.createScheduledJob(ctx, s.config.Intervals.Output, s.printPosition,
		"position_output_job"); err != nil {
		return err
	}
	s.scheduler.Start()

	// Start acquisition from the configured source
	s.manager.Start(ctx)
	if p, ok := s.live.(primer); ok {
		go s.primeLiveSource(ctx, p)
	}

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		defer s.SignalSrc.Stop(sigChan)
		s.HandleSignals(ctx, sigChan)
	}()

	if !s.config.DisableSleepMonitor {
		go s.monitorSleepResume(ctx)
	}

	// Wait for the context to cancel
	<-ctx.Done()
	s.manager.Stop()
	return s.scheduler.Shutdown()
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

func (s *Service) primeLiveSource(ctx context.Context, p primer) {
	if err := p.Prime(ctx); err != nil {
		s.logger.Debug("unable to look up coarse position", logger.Err(err),
			slog.String("source", s.live.Name()))
	}
}

// printPosition renders the current filter state and writes it as one JSON line to the output.
func (s *Service) printPosition(context.Context) {
	state, ok := s.manager.CurrentState()
	kind := s.manager.CurrentSource().String()
	tplCtx := s.presenter.BuildContext(state, ok, kind, s.now())

	rendered, err := s.presenter.Render(tplCtx)
	if err != nil {
		s.logger.Error("failed to render position template", logger.Err(err))
		return
	}

	output := outputData{
		Text:    rendered["text"],
		Tooltip: rendered["tooltip"],
		Classes: outputClasses(tplCtx, kind),
		Alt:     kind,
		Source:  kind,
	}
	if tplCtx.HasFix {
		output.Latitude = &tplCtx.Latitude
		output.Longitude = &tplCtx.Longitude
	}
	if tplCtx.HasSpeed {
		output.Speed = &tplCtx.Speed
	}
	if tplCtx.HasTrack {
		output.Track = &tplCtx.Track
		output.TrackMagnetic = &tplCtx.TrackMagnetic
	}

	if err = json.NewEncoder(s.output).Encode(output); err != nil {
		s.logger.Error("failed to encode position data", logger.Err(err))
	}
}

func outputClasses(tplCtx presenter.TemplateContext, kind string) []string {
	classes := []string{OutputClass, kind}
	switch {
	case !tplCtx.HasFix:
		classes = append(classes, NoFixOutputClass)
	case tplCtx.Seeded:
		classes = append(classes, SeededOutputClass)
	}
	return classes
}
