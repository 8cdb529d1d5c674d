package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/hems/core/metrics"
)

// PromSink exposes tick summaries and device states as Prometheus metrics.
type PromSink struct {
	solar    prometheus.Gauge
	load     prometheus.Gauge
	soc      prometheus.Gauge
	deficit  prometheus.Counter
	devices  *prometheus.GaugeVec
	override prometheus.Gauge
	warnings *prometheus.CounterVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered under the same name are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.solar, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hems_solar_forecast_wh",
		Help: "Solar energy forecast used by the last tick",
	})); err != nil {
		return nil, err
	}
	if s.load, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hems_load_wh",
		Help: "Energy drawn by the devices during the last tick",
	})); err != nil {
		return nil, err
	}
	if s.soc, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hems_battery_state_of_charge",
		Help: "Battery fill ratio after the last tick",
	})); err != nil {
		return nil, err
	}
	if s.deficit, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hems_energy_deficit_wh_total",
		Help: "Cumulated unmet demand",
	})); err != nil {
		return nil, err
	}
	if s.devices, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hems_device_on",
		Help: "Device state after the last tick (1 on, 0 off)",
	}, []string{"device_id", "tier"})); err != nil {
		return nil, err
	}
	if s.override, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hems_override_mode",
		Help: "1 while override mode is enabled",
	})); err != nil {
		return nil, err
	}
	if s.warnings, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hems_warnings_total",
		Help: "Warnings raised by committed ticks",
	}, []string{"warning"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTick updates the tick gauges.
func (s *PromSink) RecordTick(rec coremetrics.TickRecord) error {
	s.solar.Set(rec.SolarForecastWh)
	s.load.Set(rec.TotalLoadWh)
	s.soc.Set(rec.StateOfCharge())
	s.deficit.Add(rec.DeficitWh)
	for _, w := range rec.Warnings {
		s.warnings.WithLabelValues(w).Inc()
	}
	return nil
}

// RecordDeviceState sets the on/off gauge of a device.
func (s *PromSink) RecordDeviceState(ev coremetrics.DeviceStateEvent) error {
	v := 0.0
	if ev.Device.IsOn {
		v = 1
	}
	s.devices.WithLabelValues(ev.Device.ID, ev.Device.Tier.String()).Set(v)
	return nil
}

// RecordOverride tracks the override flag.
func (s *PromSink) RecordOverride(ev coremetrics.OverrideEvent) error {
	v := 0.0
	if ev.Enabled {
		v = 1
	}
	s.override.Set(v)
	return nil
}
