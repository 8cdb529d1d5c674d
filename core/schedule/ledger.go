package schedule

import (
	"math"

	"github.com/kilianp07/hems/core/model"
)

// TotalLoadWh sums the energy drawn by the devices that are on.
func TotalLoadWh(devices []model.Device, timestepHours float64) float64 {
	var total float64
	for _, d := range devices {
		if d.IsOn {
			total += d.RequiredWh(timestepHours)
		}
	}
	return total
}

// Settle applies the tick's load and solar production to the battery and
// clamps the result to [0, capacityWh]. A shortfall is absorbed by the clamp
// at zero; it is reported separately by Deficit.
func Settle(devices []model.Device, batteryNowWh, solarForecastWh, capacityWh, timestepHours float64) float64 {
	mustPositive("settle", timestepHours)
	load := TotalLoadWh(devices, timestepHours)
	next := batteryNowWh + solarForecastWh - load
	return math.Max(0, math.Min(next, capacityWh))
}

// Deficit is the unmet demand of a tick. It is computed from the battery
// level before the tick, not from the clamped result.
func Deficit(totalLoadWh, batteryBeforeWh, solarForecastWh float64) float64 {
	return math.Max(0, totalLoadWh-(batteryBeforeWh+solarForecastWh))
}
