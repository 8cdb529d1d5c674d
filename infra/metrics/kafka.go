package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	coremetrics "github.com/kilianp07/hems/core/metrics"
)

// DefaultKafkaTopic receives the tick records.
const DefaultKafkaTopic = "hems.ticks"

// messageWriter is the subset of *kafka.Writer used by KafkaSink.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every committed tick as a JSON message keyed by mode.
type KafkaSink struct {
	w       messageWriter
	timeout time.Duration
}

type kafkaTick struct {
	Time              time.Time `json:"time"`
	Mode              string    `json:"mode"`
	SolarForecastWh   float64   `json:"solar_forecast_wh"`
	BatteryBeforeWh   float64   `json:"battery_before_wh"`
	BatteryAfterWh    float64   `json:"battery_after_wh"`
	BatteryCapacityWh float64   `json:"battery_capacity_wh"`
	TotalLoadWh       float64   `json:"total_load_wh"`
	DeficitWh         float64   `json:"deficit_wh"`
	DevicesOn         int       `json:"devices_on"`
	Warnings          []string  `json:"warnings,omitempty"`
}

// NewKafkaSink creates a synchronous writer for the given brokers.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka sink requires at least one broker")
	}
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return newKafkaSink(w), nil
}

func newKafkaSink(w messageWriter) *KafkaSink {
	return &KafkaSink{w: w, timeout: 5 * time.Second}
}

// RecordTick publishes the record.
func (s *KafkaSink) RecordTick(rec coremetrics.TickRecord) error {
	b, err := json.Marshal(kafkaTick{
		Time:              rec.Time,
		Mode:              rec.Mode,
		SolarForecastWh:   rec.SolarForecastWh,
		BatteryBeforeWh:   rec.BatteryBeforeWh,
		BatteryAfterWh:    rec.BatteryAfterWh,
		BatteryCapacityWh: rec.BatteryCapacityWh,
		TotalLoadWh:       rec.TotalLoadWh,
		DeficitWh:         rec.DeficitWh,
		DevicesOn:         rec.DevicesOn,
		Warnings:          rec.Warnings,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.w.WriteMessages(ctx, kafka.Message{Key: []byte(rec.Mode), Value: b, Time: rec.Time})
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error { return s.w.Close() }
