// Package app wires the controller components from the configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/hems/api"
	"github.com/kilianp07/hems/api/ws"
	"github.com/kilianp07/hems/config"
	"github.com/kilianp07/hems/core/actuator"
	"github.com/kilianp07/hems/core/events"
	"github.com/kilianp07/hems/core/forecast"
	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/metrics/energy"
	"github.com/kilianp07/hems/core/model"
	coremon "github.com/kilianp07/hems/core/monitoring"
	"github.com/kilianp07/hems/core/settings"
	"github.com/kilianp07/hems/core/state"
	"github.com/kilianp07/hems/core/tick"
	"github.com/kilianp07/hems/core/ticklog"
	_ "github.com/kilianp07/hems/infra/forecast"
	"github.com/kilianp07/hems/infra/logger"
	"github.com/kilianp07/hems/infra/metrics"
	"github.com/kilianp07/hems/infra/monitoring"
	"github.com/kilianp07/hems/infra/mqtt"
	"github.com/kilianp07/hems/internal/eventbus"
)

// Service owns the controller: state, forecast, tick loop and HTTP API.
type Service struct {
	Config       *config.Config
	Store        state.Store
	Settings     *settings.Store
	Forecast     forecast.Provider
	Orchestrator *tick.Orchestrator
	Bus          *eventbus.Bus
	TickLog      ticklog.LogStore
	Energy       energy.Store
	Hub          *ws.Hub

	actuator actuator.Actuator
	mqtt     *mqtt.PahoClient
	sink     coremetrics.MetricsSink
	monitor  coremon.Monitor
	log      logger.Logger
	closers  []io.Closer
}

// New builds a Service from cfg. The configuration must already carry its
// defaults.
func New(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	s := &Service{Config: cfg, log: logger.New("service"), Bus: eventbus.New()}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)
	s.monitor = mon

	seed := state.DefaultSeed()
	if cfg.State.SeedPath != "" {
		if seed, err = state.LoadSeed(cfg.State.SeedPath); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	store := state.NewMemoryStore(seed.State())
	if err := store.SetBatteryCapacity(cfg.System.BatteryCapacityWh); err != nil {
		return nil, fmt.Errorf("battery capacity: %w", err)
	}
	s.Store = store

	s.Settings = settings.NewStore(cfg.System)
	s.Settings.Subscribe(func(c model.SystemConfig) {
		if err := store.SetBatteryCapacity(c.BatteryCapacityWh); err != nil {
			s.log.Errorf("apply battery capacity: %v", err)
		}
	})

	s.Forecast, err = forecast.New(cfg.Forecast, forecast.Deps{
		Settings:      s.Settings,
		TimestepHours: cfg.Tick.TimestepHours,
		Logger:        logger.New("forecast"),
	})
	if err != nil {
		return nil, err
	}

	if err := s.openStores(); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.openActuator(); err != nil {
		s.Close()
		return nil, err
	}

	s.Orchestrator, err = tick.New(store, s.Forecast, tick.Options{
		TimestepHours: cfg.Tick.TimestepHours,
		Actuator:      s.actuator,
		Sink:          s.sink,
		LogStore:      s.TickLog,
		Bus:           s.Bus,
		Logger:        logger.New("tick"),
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Hub = ws.NewHub(logger.New("ws"))
	return s, nil
}

func (s *Service) openStores() error {
	cfg := s.Config
	logs, err := ticklog.Open(cfg.Logging.TickLog())
	if err != nil {
		return fmt.Errorf("tick log: %w", err)
	}
	s.TickLog = logs
	s.closers = append(s.closers, logs)

	s.Energy, err = metrics.OpenEnergyStore(cfg.Energy.Path)
	if err != nil {
		return fmt.Errorf("energy store: %w", err)
	}
	if c, ok := s.Energy.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	energySink, err := metrics.NewEnergySink(s.Energy, nil)
	if err != nil {
		return fmt.Errorf("energy sink: %w", err)
	}

	configured, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics sinks: %w", err)
	}
	s.sink = coremetrics.NewMultiSink(configured, energySink)
	return nil
}

func (s *Service) openActuator() error {
	if !s.Config.MQTT.Enabled {
		s.actuator = actuator.LogActuator{Logger: logger.New("actuator")}
		return nil
	}
	client, err := mqtt.NewPahoClient(s.Config.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	s.mqtt = client
	s.actuator = client
	return nil
}

// Handler returns the HTTP API handler.
func (s *Service) Handler() http.Handler {
	d := api.Deps{
		Store:         s.Store,
		Settings:      s.Settings,
		Ticker:        s.Orchestrator,
		Forecast:      s.Forecast,
		TickLog:       s.TickLog,
		Energy:        s.Energy,
		Bus:           s.Bus,
		Hub:           s.Hub,
		HistoryPath:   s.Config.History.Path,
		TimestepHours: s.Config.Tick.TimestepHours,
		CORSOrigins:   s.Config.HTTP.CORSOrigins,
		Gzip:          s.Config.HTTP.Gzip,
		Logger:        logger.New("api"),
	}
	if s.Config.HTTP.EnableMetrics {
		d.Metrics = metrics.Handler(nil)
	}
	return api.NewRouter(d)
}

// Run starts the background loops and serves the API until ctx is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	metrics.StartEventCollector(ctx, s.Bus, s.sink)
	start(func() { s.Hub.Run(ctx, s.Bus) })
	devices := s.Bus.Subscribe()
	start(func() { s.followDevices(ctx, devices) })
	if !s.Config.Tick.Disabled {
		start(func() { s.Orchestrator.Run(ctx, s.Config.Tick.Interval()) })
	}

	errCh := make(chan error, 2)
	if addr := s.Config.HTTP.MetricsAddr; addr != "" {
		start(func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		})
	}
	start(func() {
		if err := api.Serve(ctx, s.Config.HTTP.Addr, s.Handler(), logger.New("http")); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	})

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		s.log.Errorf("%v", err)
		coremon.CaptureException(err, map[string]string{"component": "service"})
	}
	cancel()
	s.Bus.Unsubscribe(devices)
	wg.Wait()
	return err
}

type forgetter interface {
	Forget(deviceID string)
}

// followDevices forwards manual switches to the actuator so hardware
// follows API commands between ticks.
func (s *Service) followDevices(ctx context.Context, ch <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			de, ok := ev.(events.DeviceEvent)
			if !ok {
				continue
			}
			switch de.Action {
			case events.DeviceSwitched:
				res := s.actuator.Apply(ctx, []model.Device{de.Device})
				if n := actuator.Failed(res); n > 0 {
					s.log.Warnf("device %s: %d command(s) failed", de.Device.ID, n)
				}
			case events.DeviceRemoved:
				if f, ok := s.actuator.(forgetter); ok {
					f.Forget(de.Device.ID)
				}
			}
		}
	}
}

// Close releases the stores and transports.
func (s *Service) Close() {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	if err := errors.Join(errs...); err != nil {
		s.log.Errorf("close: %v", err)
	}
	if s.monitor != nil {
		s.monitor.Flush(2 * time.Second)
	}
}
