// Package tick runs the periodic control loop: forecast, allocate, settle,
// commit, then notify observers.
package tick

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/hems/core/actuator"
	"github.com/kilianp07/hems/core/events"
	"github.com/kilianp07/hems/core/forecast"
	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/schedule"
	"github.com/kilianp07/hems/core/state"
	"github.com/kilianp07/hems/core/ticklog"
	"github.com/kilianp07/hems/internal/eventbus"
)

// Defaults for a 15 minute control loop.
const (
	DefaultTimestepHours = 0.25
	DefaultInterval      = 15 * time.Minute
)

// ErrInvalidInput wraps validation failures of the assembled tick input.
var ErrInvalidInput = errors.New("invalid tick input")

// Result describes one committed tick.
type Result struct {
	Time            time.Time            `json:"time"`
	Mode            string               `json:"mode"`
	SolarForecastWh float64              `json:"solarForecastWh"`
	BatteryBeforeWh float64              `json:"batteryBeforeWh"`
	Output          model.TimestepOutput `json:"output"`
	State           model.State          `json:"state"`
	Warnings        []schedule.Warning   `json:"warnings"`
}

// Options configures the optional collaborators of an Orchestrator.
type Options struct {
	TimestepHours float64
	Actuator      actuator.Actuator
	Sink          metrics.MetricsSink
	LogStore      ticklog.LogStore
	Bus           eventbus.EventBus
	Logger        logger.Logger
	Clock         func() time.Time
}

// Orchestrator owns the tick sequence. Ticks are serialised.
type Orchestrator struct {
	store         state.Store
	forecast      forecast.Provider
	timestepHours float64
	actuator      actuator.Actuator
	sink          metrics.MetricsSink
	logs          ticklog.LogStore
	bus           eventbus.EventBus
	logger        logger.Logger
	clock         func() time.Time

	mu sync.Mutex
}

// New creates an orchestrator. Missing options fall back to no-op
// implementations.
func New(store state.Store, provider forecast.Provider, opts Options) (*Orchestrator, error) {
	if store == nil || provider == nil {
		return nil, fmt.Errorf("tick: nil store or forecast provider")
	}
	o := &Orchestrator{
		store:         store,
		forecast:      provider,
		timestepHours: opts.TimestepHours,
		actuator:      opts.Actuator,
		sink:          opts.Sink,
		logs:          opts.LogStore,
		bus:           opts.Bus,
		logger:        logger.OrNop(opts.Logger),
		clock:         opts.Clock,
	}
	if o.timestepHours == 0 {
		o.timestepHours = DefaultTimestepHours
	}
	if o.timestepHours < 0 {
		return nil, fmt.Errorf("tick: timestep must be positive, got %v", o.timestepHours)
	}
	if o.actuator == nil {
		o.actuator = actuator.NopActuator{}
	}
	if o.sink == nil {
		o.sink = metrics.NopSink{}
	}
	if o.logs == nil {
		o.logs = ticklog.NopStore{}
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	return o, nil
}

// TimestepHours returns the tick length in hours.
func (o *Orchestrator) TimestepHours() float64 { return o.timestepHours }

// Tick runs one timestep. The state is only written when every step up to
// the commit succeeds; observer failures after the commit are logged.
func (o *Orchestrator) Tick(ctx context.Context) (Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	start := time.Now()

	solar, err := o.forecast.ForecastWh(ctx)
	if err != nil {
		tickErrors.Inc()
		return Result{}, fmt.Errorf("tick: forecast: %w", err)
	}

	res := Result{Time: o.clock(), SolarForecastWh: solar}
	err = o.store.Update(func(st *model.State) error {
		in := model.TimestepInput{
			SolarForecastWh:    model.Float(solar),
			BatteryRemainingWh: st.BatteryRemainingWh,
			BatteryCapacityWh:  st.BatteryCapacityWh,
			Devices:            st.Devices,
			OverrideMode:       st.OverrideMode,
			TimestepHours:      o.timestepHours,
		}
		if err := in.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		out := schedule.Run(in)

		res.Mode = modeOf(st.OverrideMode)
		res.BatteryBeforeWh = st.BatteryRemainingWh
		res.Output = out

		st.BatteryRemainingWh = out.BatteryRemainingWh
		st.Devices = out.Devices
		st.LastSolarForecastWh = solar
		st.EnergyDeficitWh = out.DeficitWh
		st.LastTick = res.Time
		res.State = st.Clone()
		return nil
	})
	if err != nil {
		tickErrors.Inc()
		return Result{}, fmt.Errorf("tick: %w", err)
	}
	res.Warnings = schedule.Classify(res.State)

	o.notify(ctx, res)

	elapsed := time.Since(start)
	tickDuration.Observe(elapsed.Seconds())
	ticksTotal.WithLabelValues(res.Mode).Inc()
	batteryLevel.Set(res.State.BatteryRemainingWh)
	energyDeficit.Set(res.State.EnergyDeficitWh)
	o.recordMetrics(res, elapsed)
	o.logger.Debugw("tick committed", map[string]any{
		"mode":       res.Mode,
		"solar_wh":   solar,
		"battery_wh": res.State.BatteryRemainingWh,
		"load_wh":    res.Output.TotalLoadWh,
		"deficit_wh": res.Output.DeficitWh,
		"warnings":   schedule.Strings(res.Warnings),
	})
	return res, nil
}

// notify runs the post-commit side effects. None of them can roll back the
// committed state.
func (o *Orchestrator) notify(ctx context.Context, res Result) {
	results := o.actuator.Apply(ctx, res.State.Devices)
	failed := actuator.Failed(results)
	actuatorCommands.WithLabelValues("ok").Add(float64(len(results) - failed))
	actuatorCommands.WithLabelValues("error").Add(float64(failed))
	for _, r := range results {
		if r.Err != nil {
			o.logger.Errorf("actuator command for %s failed: %v", r.Command.DeviceID, r.Err)
		}
	}
	if pub, ok := o.actuator.(actuator.StatePublisher); ok {
		if err := pub.PublishState(ctx, res.State, schedule.Strings(res.Warnings)); err != nil {
			o.logger.Errorf("publish state: %v", err)
		}
	}

	rec := ticklog.LogRecord{
		Timestamp:       res.Time,
		Mode:            res.Mode,
		SolarForecastWh: res.SolarForecastWh,
		BatteryBeforeWh: res.BatteryBeforeWh,
		BatteryAfterWh:  res.State.BatteryRemainingWh,
		TotalLoadWh:     res.Output.TotalLoadWh,
		DeficitWh:       res.Output.DeficitWh,
		Devices:         res.State.Devices,
		Warnings:        schedule.Strings(res.Warnings),
	}
	if err := o.logs.Append(ctx, rec); err != nil {
		o.logger.Errorf("tick log append: %v", err)
	}

	if o.bus != nil {
		o.bus.Publish(events.TickEvent{
			Time:            res.Time,
			Mode:            res.Mode,
			SolarForecastWh: res.SolarForecastWh,
			BatteryBeforeWh: res.BatteryBeforeWh,
			Output:          res.Output,
			State:           res.State,
			Warnings:        schedule.Strings(res.Warnings),
		})
	}
}

func (o *Orchestrator) recordMetrics(res Result, elapsed time.Duration) {
	on := 0
	for _, d := range res.State.Devices {
		if d.IsOn {
			on++
		}
	}
	rec := metrics.TickRecord{
		Time:              res.Time,
		Mode:              res.Mode,
		SolarForecastWh:   res.SolarForecastWh,
		BatteryBeforeWh:   res.BatteryBeforeWh,
		BatteryAfterWh:    res.State.BatteryRemainingWh,
		BatteryCapacityWh: res.State.BatteryCapacityWh,
		TotalLoadWh:       res.Output.TotalLoadWh,
		DeficitWh:         res.Output.DeficitWh,
		DevicesOn:         on,
		Warnings:          schedule.Strings(res.Warnings),
		Duration:          elapsed,
	}
	if err := o.sink.RecordTick(rec); err != nil {
		o.logger.Errorf("metrics error: %v", err)
	}
	if dr, ok := o.sink.(metrics.DeviceStateRecorder); ok {
		for _, d := range res.State.Devices {
			if err := dr.RecordDeviceState(metrics.DeviceStateEvent{Device: d, Time: res.Time}); err != nil {
				o.logger.Errorf("device metrics error: %v", err)
				break
			}
		}
	}
}

func modeOf(override bool) string {
	if override {
		return ticklog.ModeOverride
	}
	return ticklog.ModeAuto
}
