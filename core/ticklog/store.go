// Package ticklog persists one record per committed tick.
package ticklog

import (
	"context"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// Tick modes.
const (
	ModeAuto     = "auto"
	ModeOverride = "override"
)

// LogRecord captures one tick: inputs, decided device states and outcome.
type LogRecord struct {
	Timestamp       time.Time      `json:"timestamp"`
	Mode            string         `json:"mode"`
	SolarForecastWh float64        `json:"solar_forecast_wh"`
	BatteryBeforeWh float64        `json:"battery_before_wh"`
	BatteryAfterWh  float64        `json:"battery_after_wh"`
	TotalLoadWh     float64        `json:"total_load_wh"`
	DeficitWh       float64        `json:"deficit_wh"`
	Devices         []model.Device `json:"devices"`
	Warnings        []string       `json:"warnings,omitempty"`
}

// LogQuery defines filters for retrieving records. Zero values match all.
type LogQuery struct {
	Start    time.Time
	End      time.Time
	DeviceID string
	Mode     string
}

// Match reports whether r satisfies the query.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Mode != "" && r.Mode != q.Mode {
		return false
	}
	if q.DeviceID != "" {
		for _, d := range r.Devices {
			if d.ID == q.DeviceID {
				return true
			}
		}
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, LogRecord) error              { return nil }
func (NopStore) Query(context.Context, LogQuery) ([]LogRecord, error) { return nil, nil }
func (NopStore) Close() error                                         { return nil }
