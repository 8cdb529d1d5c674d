package events

import (
	"time"

	"github.com/kilianp07/hems/core/model"
)

// TickEvent is published after every committed tick.
type TickEvent struct {
	Time            time.Time            `json:"time"`
	Mode            string               `json:"mode"`
	SolarForecastWh float64              `json:"solarForecastWh"`
	BatteryBeforeWh float64              `json:"batteryBeforeWh"`
	Output          model.TimestepOutput `json:"output"`
	State           model.State          `json:"state"`
	Warnings        []string             `json:"warnings"`
}
