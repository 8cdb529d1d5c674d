// Package energy aggregates committed ticks into daily energy totals.
package energy

import "time"

// Record aggregates the household energy flows of one UTC day.
type Record struct {
	Date       time.Time `json:"date"`
	ConsumedWh float64   `json:"consumed_wh"`
	SolarWh    float64   `json:"solar_wh"`
	DeficitWh  float64   `json:"deficit_wh"`
	Ticks      int       `json:"ticks"`
}

// SelfSufficiency is the share of the consumed energy that was actually
// served, in [0,1]. A day without consumption counts as fully served.
func (r Record) SelfSufficiency() float64 {
	if r.ConsumedWh <= 0 {
		return 1
	}
	served := r.ConsumedWh - r.DeficitWh
	if served < 0 {
		return 0
	}
	return served / r.ConsumedWh
}

// SolarShare is the ratio of solar production to consumption.
func (r Record) SolarShare() float64 {
	if r.ConsumedWh <= 0 {
		return 0
	}
	return r.SolarWh / r.ConsumedWh
}
