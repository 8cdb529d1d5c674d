package tick

import "github.com/prometheus/client_golang/prometheus"

var (
	tickDuration     prometheus.Histogram
	ticksTotal       *prometheus.CounterVec
	tickErrors       prometheus.Counter
	actuatorCommands *prometheus.CounterVec
	batteryLevel     prometheus.Gauge
	energyDeficit    prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Histogram, *prometheus.CounterVec, prometheus.Counter, *prometheus.CounterVec, prometheus.Gauge, prometheus.Gauge) {
	dur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hems_tick_duration_seconds",
		Help:    "Time spent running one scheduler tick",
		Buckets: prometheus.DefBuckets,
	})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hems_ticks_total",
		Help: "Number of committed ticks",
	}, []string{"mode"})
	errs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hems_tick_errors_total",
		Help: "Number of ticks aborted before commit",
	})
	cmds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hems_actuator_commands_total",
		Help: "Device commands sent to the actuator",
	}, []string{"result"})
	battery := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hems_battery_remaining_wh",
		Help: "Battery energy after the last tick",
	})
	deficit := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hems_energy_deficit_wh",
		Help: "Unmet demand of the last tick",
	})
	return dur, total, errs, cmds, battery, deficit
}

func init() {
	tickDuration, ticksTotal, tickErrors, actuatorCommands, batteryLevel, energyDeficit = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers tick metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(tickDuration, ticksTotal, tickErrors, actuatorCommands, batteryLevel, energyDeficit)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	tickDuration, ticksTotal, tickErrors, actuatorCommands, batteryLevel, energyDeficit = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
