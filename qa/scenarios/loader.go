package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/hems/core/model"
)

type DeviceDef struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	PowerW float64 `yaml:"power_w"`
	Tier   string  `yaml:"tier"`
	On     bool    `yaml:"on"`
}

func (d DeviceDef) ToModel() (model.Device, error) {
	tier, err := model.ParseTier(d.Tier)
	if err != nil {
		return model.Device{}, fmt.Errorf("device %s: %w", d.ID, err)
	}
	name := d.Name
	if name == "" {
		name = d.ID
	}
	return model.Device{ID: d.ID, Name: name, PowerW: d.PowerW, Tier: tier, IsOn: d.On}, nil
}

type Expected struct {
	BatteryWh   float64  `yaml:"battery_wh"`
	TotalLoadWh float64  `yaml:"total_load_wh"`
	DeficitWh   float64  `yaml:"deficit_wh"`
	On          []string `yaml:"on"`
	Warnings    []string `yaml:"warnings"`
}

// Scenario runs one tick per entry of SolarWh against a fixed household.
type Scenario struct {
	Name          string      `yaml:"name"`
	Description   string      `yaml:"description,omitempty"`
	BatteryWh     float64     `yaml:"battery_wh"`
	CapacityWh    float64     `yaml:"capacity_wh"`
	Override      bool        `yaml:"override"`
	TimestepHours float64     `yaml:"timestep_hours"`
	Devices       []DeviceDef `yaml:"devices"`
	SolarWh       []float64   `yaml:"solar_wh"`
	Expected      Expected    `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.CapacityWh == 0 {
		sc.CapacityWh = 5000
	}
	if sc.TimestepHours == 0 {
		sc.TimestepHours = 0.25
	}
	if len(sc.SolarWh) == 0 {
		return nil, fmt.Errorf("scenario %s: no ticks", sc.Name)
	}
	return &sc, nil
}

// State builds the initial household state.
func (sc *Scenario) State() (model.State, error) {
	st := model.State{
		BatteryRemainingWh: sc.BatteryWh,
		BatteryCapacityWh:  sc.CapacityWh,
		OverrideMode:       sc.Override,
	}
	for _, d := range sc.Devices {
		dev, err := d.ToModel()
		if err != nil {
			return st, err
		}
		st.Devices = append(st.Devices, dev)
	}
	return st, nil
}
