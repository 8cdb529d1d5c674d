package schedule

import "github.com/kilianp07/hems/core/model"

// Warning is an advisory flag derived from the committed state.
type Warning string

const (
	WarnBatteryDepleted    Warning = "battery depleted"
	WarnInsufficientEnergy Warning = "insufficient energy"
	WarnSurvivalMode       Warning = "survival mode"
)

// Classify derives the warnings for observers. It has no effect on
// allocation.
func Classify(s model.State) []Warning {
	var out []Warning
	if s.BatteryRemainingWh == 0 {
		out = append(out, WarnBatteryDepleted)
	}
	if s.EnergyDeficitWh > 0 {
		out = append(out, WarnInsufficientEnergy)
		if onlyCriticalOn(s.Devices) {
			out = append(out, WarnSurvivalMode)
		}
	}
	return out
}

// onlyCriticalOn is true when at least one device is on and every device
// that is on is CRITICAL.
func onlyCriticalOn(devices []model.Device) bool {
	on := 0
	for _, d := range devices {
		if !d.IsOn {
			continue
		}
		if d.Tier != model.TierCritical {
			return false
		}
		on++
	}
	return on > 0
}

// Strings converts warnings for JSON payloads and log fields.
func Strings(ws []Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = string(w)
	}
	return out
}
