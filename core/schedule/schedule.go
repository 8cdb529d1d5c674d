package schedule

import "github.com/kilianp07/hems/core/model"

// Run executes one timestep: Allocate, then Settle on the decided states.
// The returned output also carries the load and deficit derived from the
// same inputs.
func Run(in model.TimestepInput) model.TimestepOutput {
	devices := Allocate(in)
	solar := in.Solar()
	load := TotalLoadWh(devices, in.TimestepHours)
	return model.TimestepOutput{
		Devices:            devices,
		BatteryRemainingWh: Settle(devices, in.BatteryRemainingWh, solar, in.BatteryCapacityWh, in.TimestepHours),
		AvailableWh:        in.BatteryRemainingWh + solar,
		TotalLoadWh:        load,
		DeficitWh:          Deficit(load, in.BatteryRemainingWh, solar),
	}
}
