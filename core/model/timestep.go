package model

import (
	"errors"
	"fmt"
	"math"
)

// TimestepInput carries everything the scheduler needs for one tick.
type TimestepInput struct {
	SolarForecastWh    *float64 // nil is treated as zero
	BatteryRemainingWh float64
	BatteryCapacityWh  float64
	Devices            []Device
	OverrideMode       bool
	TimestepHours      float64 // e.g. 0.25 for 15 minutes
}

// Solar returns the solar forecast or zero when absent.
func (in TimestepInput) Solar() float64 {
	if in.SolarForecastWh == nil {
		return 0
	}
	return *in.SolarForecastWh
}

// Validate reports inputs outside the documented domain of the scheduler.
func (in TimestepInput) Validate() error {
	var errs []error
	if !finite(in.Solar()) {
		errs = append(errs, errors.New("solar forecast must be finite"))
	}
	if !finite(in.BatteryRemainingWh) {
		errs = append(errs, errors.New("battery remaining must be finite"))
	}
	if !finite(in.BatteryCapacityWh) || in.BatteryCapacityWh <= 0 {
		errs = append(errs, errors.New("battery capacity must be positive"))
	}
	if !finite(in.TimestepHours) || in.TimestepHours <= 0 {
		errs = append(errs, fmt.Errorf("timestep must be positive, got %v", in.TimestepHours))
	}
	for _, d := range in.Devices {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TimestepOutput is the result of one scheduling run.
type TimestepOutput struct {
	Devices            []Device `json:"devices"`
	BatteryRemainingWh float64  `json:"batteryRemainingWh"`
	// Bookkeeping derived from the same inputs.
	AvailableWh float64 `json:"availableWh"`
	TotalLoadWh float64 `json:"totalLoadWh"`
	DeficitWh   float64 `json:"energyDeficitWh"`
}

// Float returns a pointer to v, handy for optional forecast values.
func Float(v float64) *float64 { return &v }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
