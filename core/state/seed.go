package state

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/hems/core/model"
)

// Seed describes the initial household: battery level and device inventory.
type Seed struct {
	BatteryRemainingWh float64        `json:"batteryRemainingWh" yaml:"battery_remaining_wh"`
	BatteryCapacityWh  float64        `json:"batteryCapacityWh" yaml:"battery_capacity_wh"`
	Devices            []model.Device `json:"devices" yaml:"devices"`
}

// DefaultSeed is the demo household: an empty 5 kWh battery and five
// devices across the three tiers.
func DefaultSeed() Seed {
	return Seed{
		BatteryRemainingWh: 0,
		BatteryCapacityWh:  5000,
		Devices: []model.Device{
			{ID: "1", Name: "Security System", PowerW: 50, Tier: model.TierCritical},
			{ID: "2", Name: "Refrigerator", PowerW: 200, Tier: model.TierCritical},
			{ID: "3", Name: "AC Unit", PowerW: 1500, Tier: model.TierFlexible},
			{ID: "4", Name: "Washing Machine", PowerW: 500, Tier: model.TierFlexible},
			{ID: "5", Name: "Pool Pump", PowerW: 750, Tier: model.TierOptional},
		},
	}
}

// State converts the seed into an initial state snapshot.
func (s Seed) State() model.State {
	return model.State{
		BatteryRemainingWh: s.BatteryRemainingWh,
		BatteryCapacityWh:  s.BatteryCapacityWh,
		Devices:            model.CloneDevices(s.Devices),
	}
}

// Validate checks battery bounds, device fields and id uniqueness.
func (s Seed) Validate() error {
	if s.BatteryCapacityWh <= 0 {
		return fmt.Errorf("seed: battery capacity must be positive")
	}
	if s.BatteryRemainingWh < 0 || s.BatteryRemainingWh > s.BatteryCapacityWh {
		return fmt.Errorf("seed: battery remaining %v outside [0, %v]", s.BatteryRemainingWh, s.BatteryCapacityWh)
	}
	seen := make(map[string]struct{}, len(s.Devices))
	for _, d := range s.Devices {
		if d.ID == "" {
			return fmt.Errorf("seed: device %q has no id", d.Name)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("seed: duplicate device id %s", d.ID)
		}
		seen[d.ID] = struct{}{}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}

// LoadSeed loads a Seed from a JSON or YAML file.
func LoadSeed(path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, err
	}
	defer f.Close()
	return DecodeSeed(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeSeed reads from r to decode a Seed.
func DecodeSeed(r io.Reader, format string) (Seed, error) {
	var s Seed
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&s); err != nil {
			return s, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return s, err
		}
	default:
		return s, fmt.Errorf("unsupported seed format: %s", format)
	}
	for i := range s.Devices {
		t, err := model.ParseTier(string(s.Devices[i].Tier))
		if err != nil {
			return s, fmt.Errorf("seed: device %s: %w", s.Devices[i].ID, err)
		}
		s.Devices[i].Tier = t
	}
	return s, s.Validate()
}
