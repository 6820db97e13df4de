// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"testing/synctest"
	tt "text/template"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/navfix/internal/config"
	"github.com/wneessen/navfix/internal/geo"
	"github.com/wneessen/navfix/internal/i18n"
	"github.com/wneessen/navfix/internal/logger"
	"github.com/wneessen/navfix/internal/position"
	"github.com/wneessen/navfix/internal/source"
	"github.com/wneessen/navfix/internal/source/provider/gpsd"
	"github.com/wneessen/navfix/internal/source/provider/receiver"
	"github.com/wneessen/navfix/internal/vartype"
)

var testFix = position.Fix{
	Position:       geo.Point{Lat: 53.5511, Lng: 9.9937},
	AccuracyMeters: 5,
	Speed:          vartype.NewVariable(10.0),
	Bearing:        vartype.NewVariable(90.0),
	Time:           time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	Source:         "mock",
}

func TestNew(t *testing.T) {
	t.Run("new service succeeds", func(t *testing.T) {
		serv, err := testService(t, false)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		if _, ok := serv.live.(*gpsd.GPSDProvider); !ok {
			t.Errorf("expected gpsd live provider, got %T", serv.live)
		}
		if serv.manager.CurrentSource() != source.Live {
			t.Errorf("expected live source, got %s", serv.manager.CurrentSource())
		}
	})
	t.Run("new service with nmea receiver and simulated source", func(t *testing.T) {
		t.Setenv("NAVFIX_LIVE_PROVIDER", "nmea")
		t.Setenv("NAVFIX_SOURCE", "simulated")
		serv, err := testService(t, false)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		if _, ok := serv.live.(*receiver.NMEAProvider); !ok {
			t.Errorf("expected nmea live provider, got %T", serv.live)
		}
		if serv.manager.CurrentSource() != source.Simulated {
			t.Errorf("expected simulated source, got %s", serv.manager.CurrentSource())
		}
	})
	t.Run("filter options are converted from knots", func(t *testing.T) {
		t.Setenv("NAVFIX_FILTER_MIN_SPEED_KNOTS", "5")
		serv, err := testService(t, false)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		want := 5 / geo.MetersPerSecToKnots
		if got := serv.filter.Options().MinSpeed; got != want {
			t.Errorf("expected min speed of %f m/s, got %f", want, got)
		}
	})
	t.Run("invalid template configuration should fail", func(t *testing.T) {
		t.Setenv("NAVFIX_TEMPLATES_TEXT", "{{")
		_, err := testService(t, false)
		if err == nil {
			t.Fatal("expected service creation to fail")
		}
		wantErr := "failed to parse text template"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
	t.Run("nil logger fails", func(t *testing.T) {
		_, err := testService(t, true)
		if err == nil {
			t.Fatal("expected service creation to fail")
		}
		wantErr := "logger is required"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
}

func TestService_selectLiveProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantName string
		wantFail bool
	}{
		{"gpsd", "gpsd", "gpsd", false},
		{"nmea", "NMEA", "nmea", false},
		{"unsupported provider", "geoclue", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf, err := config.New()
			if err != nil {
				t.Fatalf("failed to load config: %s", err)
			}
			conf.Live.Provider = tc.provider
			provider, err := selectLiveProvider(conf, logger.NewLogger(slog.LevelError, io.Discard))
			if tc.wantFail {
				if err == nil {
					t.Fatal("expected live provider selection to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to select live provider: %s", err)
			}
			if provider.Name() != tc.wantName {
				t.Errorf("expected provider name to be %q, got %q", tc.wantName, provider.Name())
			}
		})
	}
}

func TestService_newSimulator(t *testing.T) {
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to load config: %s", err)
	}
	sim := newSimulator(conf)
	origin, ok := sim.LastKnownCoarseFix()
	if !ok {
		t.Fatal("expected simulator to know its position")
	}
	if origin.Lat != conf.Simulator.Latitude || origin.Lng != conf.Simulator.Longitude {
		t.Errorf("expected simulator to start at the configured origin, got %s", origin)
	}
}

func TestService_Run(t *testing.T) {
	t.Run("start the service and gracefully shut it down", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			serv, live := testServiceWithMock(t, source.Live)
			buf := &syncBuffer{buf: bytes.NewBuffer(nil)}
			serv.output = buf
			serv.SignalSrc = &mockSignalSource{}

			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := serv.Run(ctx); err != nil {
					t.Errorf("failed to run service: %s", err)
				}
			}()

			synctest.Wait()
			live.fixes <- testFix
			time.Sleep(time.Second)
			synctest.Wait()

			cancel()
			<-done
			synctest.Wait()
			if live.active.Load() != 0 {
				t.Errorf("expected live stream to be stopped, got %d active", live.active.Load())
			}
			if !strings.Contains(buf.String(), `"lat":53.5511`) {
				t.Errorf("expected position output, got %q", buf.String())
			}
		})
	})
	t.Run("signal handling is registered and released", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())

			serv, _ := testServiceWithMock(t, source.Live)
			serv.output = io.Discard
			signals := &mockSignalSource{}
			serv.SignalSrc = signals

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = serv.Run(ctx)
			}()
			synctest.Wait()
			if signals.notified.Load() != 1 {
				t.Errorf("expected signals to be registered once, got %d", signals.notified.Load())
			}

			cancel()
			<-done
			synctest.Wait()
			if signals.stopped.Load() != 1 {
				t.Errorf("expected signals to be released once, got %d", signals.stopped.Load())
			}
		})
	})
	t.Run("live source is primed", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())

			serv, live := testServiceWithMock(t, source.Simulated)
			serv.output = io.Discard
			serv.SignalSrc = &mockSignalSource{}

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = serv.Run(ctx)
			}()
			synctest.Wait()
			if live.primed.Load() != 1 {
				t.Errorf("expected live source to be primed once, got %d", live.primed.Load())
			}
			cancel()
			<-done
		})
	})
	t.Run("starting service fails with invalid output interval", func(t *testing.T) {
		serv, _ := testServiceWithMock(t, source.Live)
		serv.config.Intervals.Output = -1
		err := serv.Run(t.Context())
		if err == nil {
			t.Fatal("expected service to fail")
		}
		wantErr := "failed to create position_output_job"
		if !strings.Contains(err.Error(), wantErr) {
			t.Errorf("expected error to contain %q, got %q", wantErr, err)
		}
	})
}

func TestService_printPosition(t *testing.T) {
	t.Run("print position to a buffer", func(t *testing.T) {
		t.Setenv("NAVFIX_TEMPLATES_TEXT", "text")
		t.Setenv("NAVFIX_TEMPLATES_TOOLTIP", "tooltip")

		serv, err := testService(t, false)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		buf := bytes.NewBuffer(nil)
		serv.output = buf
		serv.filter.Ingest(testFix)

		serv.printPosition(t.Context())

		var output outputData
		if err = json.Unmarshal(buf.Bytes(), &output); err != nil {
			t.Fatalf("failed to unmarshal JSON: %s", err)
		}
		if output.Text != "text" {
			t.Errorf("expected Text to be %q, got %q", "text", output.Text)
		}
		if output.Tooltip != "tooltip" {
			t.Errorf("expected Tooltip to be %q, got %q", "tooltip", output.Tooltip)
		}
		if len(output.Classes) != 2 || output.Classes[0] != OutputClass || output.Classes[1] != "live" {
			t.Errorf("unexpected output classes: %#v", output.Classes)
		}
		if output.Source != "live" || output.Alt != "live" {
			t.Errorf("expected source to be live, got %q/%q", output.Source, output.Alt)
		}
		if output.Latitude == nil || *output.Latitude != testFix.Position.Lat {
			t.Errorf("expected latitude %f, got %v", testFix.Position.Lat, output.Latitude)
		}
		if output.Longitude == nil || *output.Longitude != testFix.Position.Lng {
			t.Errorf("expected longitude %f, got %v", testFix.Position.Lng, output.Longitude)
		}
		if output.Speed == nil || *output.Speed != 10*geo.MetersPerSecToKnots {
			t.Errorf("expected speed in knots, got %v", output.Speed)
		}
		if output.Track == nil || *output.Track != 90 {
			t.Errorf("expected track of 90, got %v", output.Track)
		}
		if output.TrackMagnetic == nil || *output.TrackMagnetic != 90 {
			t.Errorf("expected magnetic track of 90, got %v", output.TrackMagnetic)
		}
	})
	t.Run("undefined quantities are omitted", func(t *testing.T) {
		serv, err := testService(t, false)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		buf := bytes.NewBuffer(nil)
		serv.output = buf
		serv.printPosition(t.Context())

		raw := buf.String()
		for _, key := range []string{`"lat"`, `"lon"`, `"speed"`, `"track"`, `"track_magnetic"`} {
			if strings.Contains(raw, key) {
				t.Errorf("expected %s to be omitted, got %q", key, raw)
			}
		}
		var output outputData
		if err = json.Unmarshal(buf.Bytes(), &output); err != nil {
			t.Fatalf("failed to unmarshal JSON: %s", err)
		}
		if output.Text != "No position" {
			t.Errorf("expected Text to be %q, got %q", "No position", output.Text)
		}
		if len(output.Classes) != 3 || output.Classes[2] != NoFixOutputClass {
			t.Errorf("expected nofix output class, got %#v", output.Classes)
		}
	})
	t.Run("seeded position is flagged", func(t *testing.T) {
		serv, _ := testServiceWithMock(t, source.Live)
		buf := bytes.NewBuffer(nil)
		serv.output = buf
		serv.printPosition(t.Context())

		var output outputData
		if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
			t.Fatalf("failed to unmarshal JSON: %s", err)
		}
		if len(output.Classes) != 3 || output.Classes[2] != SeededOutputClass {
			t.Errorf("expected seeded output class, got %#v", output.Classes)
		}
		if output.Latitude == nil || output.Speed != nil {
			t.Errorf("expected a position without speed, got %+v", output)
		}
	})
	t.Run("output is empty on failing writer", func(t *testing.T) {
		serv, err := testService(t, false)
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		logBuf := bytes.NewBuffer(nil)
		serv.logger = logger.NewLogger(slog.LevelError, logBuf)
		serv.output = &failWriter{}
		serv.printPosition(t.Context())
		wantErr := `msg="failed to encode position data"`
		if !strings.Contains(logBuf.String(), wantErr) {
			t.Errorf("expected log to contain %q, got %q", wantErr, logBuf.String())
		}
	})
	t.Run("printing position fails on template rendering", func(t *testing.T) {
		tests := []struct {
			name    string
			setTpl  func(serv *Service, tpl *tt.Template)
			wantErr string
		}{
			{
				name:    "text template",
				setTpl:  func(serv *Service, tpl *tt.Template) { serv.presenter.TextTemplate = tpl },
				wantErr: "text template",
			},
			{
				name:    "tooltip template",
				setTpl:  func(serv *Service, tpl *tt.Template) { serv.presenter.TooltipTemplate = tpl },
				wantErr: "tooltip template",
			},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				serv, err := testService(t, false)
				if err != nil {
					t.Fatalf("failed to create service: %s", err)
				}
				tpl, err := tt.New(tc.name).Parse("{{.AbsolutelyInvalid}}")
				if err != nil {
					t.Fatalf("failed to parse template: %s", err)
				}
				tc.setTpl(serv, tpl)

				logBuf := bytes.NewBuffer(nil)
				serv.logger = logger.NewLogger(slog.LevelError, logBuf)
				buf := bytes.NewBuffer(nil)
				serv.output = buf
				serv.printPosition(t.Context())

				wantErr1 := `msg="failed to render position template" error="failed to render ` + tc.wantErr
				wantErr2 := `can't evaluate field AbsolutelyInvalid in type presenter.TemplateContext`
				if !strings.Contains(logBuf.String(), wantErr1) || !strings.Contains(logBuf.String(), wantErr2) {
					t.Errorf("expected error to contain %q and %q, got %q", wantErr1, wantErr2, logBuf.String())
				}
				if buf.Len() != 0 {
					t.Errorf("expected no output, got %q", buf.String())
				}
			})
		}
	})
}

func TestService_HandleSignals(t *testing.T) {
	t.Run("USR1 signal toggles the fix source", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			serv, _ := testServiceWithMock(t, source.Live)
			buf := &syncBuffer{buf: bytes.NewBuffer(nil)}
			serv.output = buf

			sigChan := make(chan os.Signal, 1)
			go serv.HandleSignals(ctx, sigChan)

			sigChan <- syscall.SIGUSR1
			synctest.Wait()
			if serv.manager.CurrentSource() != source.Simulated {
				t.Errorf("expected simulated source, got %s", serv.manager.CurrentSource())
			}
			if !strings.Contains(buf.String(), `"source":"simulated"`) {
				t.Errorf("expected toggle to print the position, got %q", buf.String())
			}

			sigChan <- syscall.SIGUSR1
			synctest.Wait()
			if serv.manager.CurrentSource() != source.Live {
				t.Errorf("expected live source, got %s", serv.manager.CurrentSource())
			}
		})
	})
	t.Run("USR2 signal logs the current position", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			serv, err := testService(t, false)
			if err != nil {
				t.Fatalf("failed to create service: %s", err)
			}
			buf := &syncBuffer{buf: bytes.NewBuffer(nil)}
			serv.logger = logger.NewLogger(slog.LevelInfo, buf)
			serv.filter.Ingest(testFix)

			sigChan := make(chan os.Signal, 1)
			go serv.HandleSignals(ctx, sigChan)

			sigChan <- syscall.SIGUSR2
			synctest.Wait()
			wantLog := `msg="current position" latitude=53.5511 longitude=9.9937 speed=10 bearing=90 accuracy=5 source=live`
			if !strings.Contains(buf.String(), wantLog) {
				t.Errorf("expected log to contain %q, got %q", wantLog, buf.String())
			}
		})
	})
	t.Run("USR2 signal without position", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			serv, err := testService(t, false)
			if err != nil {
				t.Fatalf("failed to create service: %s", err)
			}
			buf := &syncBuffer{buf: bytes.NewBuffer(nil)}
			serv.logger = logger.NewLogger(slog.LevelInfo, buf)

			sigChan := make(chan os.Signal, 1)
			go serv.HandleSignals(ctx, sigChan)

			sigChan <- syscall.SIGUSR2
			synctest.Wait()
			wantLog := `msg="no position available" source=live`
			if !strings.Contains(buf.String(), wantLog) {
				t.Errorf("expected log to contain %q, got %q", wantLog, buf.String())
			}
		})
	})
}

func TestService_processSleepSignal(t *testing.T) {
	tests := []struct {
		name        string
		body        []any
		recentWake  bool
		wantStreams int32
	}{
		{"resume restarts the source", []any{false}, false, 2},
		{"going to sleep is ignored", []any{true}, false, 1},
		{"unexpected body is ignored", []any{"false"}, false, 1},
		{"empty body is ignored", nil, false, 1},
		{"repeated resume is debounced", []any{false}, true, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				ctx, cancel := context.WithCancel(t.Context())
				defer cancel()

				serv, live := testServiceWithMock(t, source.Live)
				serv.manager.Start(ctx)
				synctest.Wait()

				var lastResume int64
				if tc.recentWake {
					lastResume = time.Now().Unix()
				}
				serv.processSleepSignal(ctx, &dbus.Signal{Body: tc.body}, &lastResume)
				synctest.Wait()

				if got := live.streams.Load(); got != tc.wantStreams {
					t.Errorf("expected %d stream subscriptions, got %d", tc.wantStreams, got)
				}
				if got := live.active.Load(); got != 1 {
					t.Errorf("expected exactly one active stream, got %d", got)
				}
				serv.manager.Stop()
				synctest.Wait()
			})
		})
	}
}

func testService(_ *testing.T, nilLogger bool) (*Service, error) {
	conf, err := config.New()
	if err != nil {
		return nil, err
	}
	conf.Locale = "en"
	conf.DisableSleepMonitor = true

	var log *logger.Logger
	if !nilLogger {
		log = logger.NewLogger(conf.LogLevel, io.Discard)
	}

	lang, err := i18n.New(conf.Locale)
	if err != nil {
		return nil, err
	}
	serv, err := New(conf, log, lang)
	if err != nil {
		return nil, err
	}

	return serv, nil
}

// testServiceWithMock returns a service whose live source is a mockSource with a known coarse
// position.
func testServiceWithMock(t *testing.T, kind source.Kind) (*Service, *mockSource) {
	t.Helper()
	serv, err := testService(t, false)
	if err != nil {
		t.Fatalf("failed to create service: %s", err)
	}
	live := &mockSource{
		fixes:  make(chan position.Fix),
		coarse: geo.Point{Lat: 53.55, Lng: 9.99},
	}
	serv.live = live
	serv.manager, err = source.NewManager(serv.logger, serv.filter, live, serv.simulator, kind)
	if err != nil {
		t.Fatalf("failed to create source manager: %s", err)
	}
	return serv, live
}

type (
	failWriter struct{}
	mockSource struct {
		fixes   chan position.Fix
		coarse  geo.Point
		streams atomic.Int32
		active  atomic.Int32
		primed  atomic.Int32
	}
	mockSignalSource struct {
		notified atomic.Int32
		stopped  atomic.Int32
	}
	syncBuffer struct {
		mu  sync.Mutex
		buf *bytes.Buffer
	}
)

func (f failWriter) Write([]byte) (int, error) { return 0, fmt.Errorf("failed to write") }

func (m *mockSource) Name() string {
	return "mock"
}

func (m *mockSource) Stream(ctx context.Context) <-chan position.Fix {
	m.streams.Add(1)
	m.active.Add(1)
	out := make(chan position.Fix)
	go func() {
		defer m.active.Add(-1)
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case fix := <-m.fixes:
				select {
				case <-ctx.Done():
					return
				case out <- fix:
				}
			}
		}
	}()
	return out
}

func (m *mockSource) LastKnownCoarseFix() (geo.Point, bool) {
	return m.coarse, true
}

func (m *mockSource) Prime(context.Context) error {
	m.primed.Add(1)
	return errors.New("intentionally failing")
}

func (m *mockSignalSource) Notify(chan<- os.Signal, ...os.Signal) {
	m.notified.Add(1)
}

func (m *mockSignalSource) Stop(chan<- os.Signal) {
	m.stopped.Add(1)
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
