package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/infra/logger"
)

// InfluxSink writes tick summaries to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTick writes one hems_tick point.
func (s *InfluxSink) RecordTick(rec coremetrics.TickRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("hems_tick").
		AddTag("mode", rec.Mode).
		AddTag("component", "tick").
		AddField("solar_forecast_wh", round3(rec.SolarForecastWh)).
		AddField("battery_before_wh", round3(rec.BatteryBeforeWh)).
		AddField("battery_after_wh", round3(rec.BatteryAfterWh)).
		AddField("load_wh", round3(rec.TotalLoadWh)).
		AddField("deficit_wh", round3(rec.DeficitWh)).
		AddField("devices_on", rec.DevicesOn).
		AddField("warnings", strings.Join(rec.Warnings, ",")).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordDeviceState writes one hems_device point.
func (s *InfluxSink) RecordDeviceState(ev coremetrics.DeviceStateEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d := ev.Device
	p := write.NewPointWithMeasurement("hems_device").
		AddTag("device_id", d.ID).
		AddTag("tier", d.Tier.String()).
		AddField("on", d.IsOn).
		AddField("power_w", round3(d.PowerW)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOverride writes one hems_override point.
func (s *InfluxSink) RecordOverride(ev coremetrics.OverrideEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("hems_override").
		AddTag("enabled", strconv.FormatBool(ev.Enabled)).
		AddField("enabled", ev.Enabled).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
