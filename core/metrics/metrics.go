package metrics

import (
	"time"

	"github.com/kilianp07/hems/core/model"
)

// TickRecord summarises one committed tick.
type TickRecord struct {
	Time              time.Time
	Mode              string
	SolarForecastWh   float64
	BatteryBeforeWh   float64
	BatteryAfterWh    float64
	BatteryCapacityWh float64
	TotalLoadWh       float64
	DeficitWh         float64
	DevicesOn         int
	Warnings          []string
	Duration          time.Duration
}

// StateOfCharge returns the battery fill ratio after the tick.
func (r TickRecord) StateOfCharge() float64 {
	if r.BatteryCapacityWh <= 0 {
		return 0
	}
	return r.BatteryAfterWh / r.BatteryCapacityWh
}

// MetricsSink records tick summaries for observability purposes.
type MetricsSink interface {
	RecordTick(rec TickRecord) error
}

// DeviceStateEvent is a snapshot of one device after a tick.
type DeviceStateEvent struct {
	Device model.Device
	Time   time.Time
}

// DeviceStateRecorder records device snapshots.
type DeviceStateRecorder interface {
	RecordDeviceState(ev DeviceStateEvent) error
}

// OverrideEvent records a change of the override flag.
type OverrideEvent struct {
	Enabled bool
	Time    time.Time
}

// OverrideRecorder records override toggles.
type OverrideRecorder interface {
	RecordOverride(ev OverrideEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(TickRecord) error              { return nil }
func (NopSink) RecordDeviceState(DeviceStateEvent) error { return nil }
func (NopSink) RecordOverride(OverrideEvent) error       { return nil }
