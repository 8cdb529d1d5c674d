package events

import (
	"time"

	"github.com/kilianp07/hems/core/model"
)

// OverrideEvent is published when override mode changes.
type OverrideEvent struct {
	Enabled bool      `json:"enabled"`
	Time    time.Time `json:"time"`
}

// Device actions.
const (
	DeviceSwitched = "switched"
	DeviceAdded    = "added"
	DeviceRemoved  = "removed"
)

// DeviceEvent is published on manual commands and inventory changes.
type DeviceEvent struct {
	Action string       `json:"action"`
	Device model.Device `json:"device"`
	Time   time.Time    `json:"time"`
}
