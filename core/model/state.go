package model

import "time"

// State is the shared household snapshot owned by the state store.
type State struct {
	BatteryRemainingWh  float64   `json:"batteryRemainingWh"`
	BatteryCapacityWh   float64   `json:"batteryCapacityWh"`
	Devices             []Device  `json:"devices"`
	OverrideMode        bool      `json:"overrideMode"`
	LastSolarForecastWh float64   `json:"lastSolarForecastWh"`
	EnergyDeficitWh     float64   `json:"energyDeficitWh"`
	LastTick            time.Time `json:"lastTick,omitempty"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	s.Devices = CloneDevices(s.Devices)
	return s
}

// Device returns the device with the given id.
func (s State) Device(id string) (Device, bool) {
	for _, d := range s.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}
