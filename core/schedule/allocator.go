package schedule

import "github.com/kilianp07/hems/core/model"

// Allocate decides which devices run during the tick.
//
// In override mode the devices are returned exactly as given: their states
// were set by manual command. Otherwise the budget is battery plus solar and
// devices are processed tier by tier. CRITICAL devices are always switched
// on and may drive the budget negative. FLEXIBLE then OPTIONAL devices are
// switched on first-fit, in their given order, while the remaining budget
// covers their demand for the tick.
//
// The caller's slice is never mutated.
func Allocate(in model.TimestepInput) []model.Device {
	mustValid("allocate", in)
	devices := model.CloneDevices(in.Devices)
	if in.OverrideMode {
		return devices
	}
	budget := in.BatteryRemainingWh + in.Solar()
	for _, tier := range model.Tiers {
		budget = allocateTier(devices, tier, budget, in.TimestepHours)
	}
	return devices
}

// allocateTier runs one pass over the devices of the given tier and returns
// the remaining budget.
func allocateTier(devices []model.Device, tier model.Tier, budget, timestepHours float64) float64 {
	for i := range devices {
		d := &devices[i]
		if d.Tier != tier {
			continue
		}
		required := d.RequiredWh(timestepHours)
		if tier == model.TierCritical {
			d.IsOn = true
			budget -= required
			continue
		}
		if budget >= required {
			d.IsOn = true
			budget -= required
		} else {
			d.IsOn = false
		}
	}
	return budget
}
