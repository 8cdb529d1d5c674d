package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/hems/core/factory"
	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/metrics/energy"
	"github.com/kilianp07/hems/infra/kpi"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, fmt.Errorf("influx sink requires url")
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})

	_ = coremetrics.RegisterMetricsSink("kafka", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			Brokers []string `json:"brokers"`
			Topic   string   `json:"topic"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewKafkaSink(c.Brokers, c.Topic)
	})

	_ = coremetrics.RegisterMetricsSink("energy", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		store, err := OpenEnergyStore(c.Path)
		if err != nil {
			return nil, err
		}
		return NewEnergySink(store, prometheus.DefaultRegisterer)
	})
}

// OpenEnergyStore returns a SQLite store for path, or an in-memory store
// when path is empty.
func OpenEnergyStore(path string) (energy.Store, error) {
	if path == "" {
		return energy.NewMemoryStore(), nil
	}
	return kpi.NewSQLiteStore(path)
}
