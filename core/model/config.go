package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid system config")

// SystemConfig describes the installation: panel size, battery size and the
// overall conversion efficiency.
type SystemConfig struct {
	PanelCapacityKw   float64 `json:"panelCapacityKw"`
	BatteryCapacityWh float64 `json:"batteryCapacityWh"`
	Efficiency        float64 `json:"efficiency"`
}

// DefaultSystemConfig matches a small residential installation.
func DefaultSystemConfig() SystemConfig {
	return SystemConfig{PanelCapacityKw: 3, BatteryCapacityWh: 5000, Efficiency: 0.85}
}

// Validate checks every field.
func (c SystemConfig) Validate() error {
	if err := validPanel(c.PanelCapacityKw); err != nil {
		return err
	}
	if err := validBattery(c.BatteryCapacityWh); err != nil {
		return err
	}
	return validEfficiency(c.Efficiency)
}

// ConfigUpdate is a partial update: nil fields are left unchanged.
type ConfigUpdate struct {
	PanelCapacityKw   *float64 `json:"panelCapacityKw,omitempty"`
	BatteryCapacityWh *float64 `json:"batteryCapacityWh,omitempty"`
	Efficiency        *float64 `json:"efficiency,omitempty"`
}

// Empty reports whether the update carries no field.
func (u ConfigUpdate) Empty() bool {
	return u.PanelCapacityKw == nil && u.BatteryCapacityWh == nil && u.Efficiency == nil
}

// Apply merges the update into c field by field. Each supplied field is
// validated; on error c is returned unchanged.
func (u ConfigUpdate) Apply(c SystemConfig) (SystemConfig, error) {
	next := c
	if u.PanelCapacityKw != nil {
		if err := validPanel(*u.PanelCapacityKw); err != nil {
			return c, err
		}
		next.PanelCapacityKw = *u.PanelCapacityKw
	}
	if u.BatteryCapacityWh != nil {
		if err := validBattery(*u.BatteryCapacityWh); err != nil {
			return c, err
		}
		next.BatteryCapacityWh = *u.BatteryCapacityWh
	}
	if u.Efficiency != nil {
		if err := validEfficiency(*u.Efficiency); err != nil {
			return c, err
		}
		next.Efficiency = *u.Efficiency
	}
	return next, nil
}

func validPanel(v float64) error {
	if !finite(v) || v <= 0 {
		return fmt.Errorf("%w: panelCapacityKw must be positive, got %v", ErrInvalidConfig, v)
	}
	return nil
}

func validBattery(v float64) error {
	if !finite(v) || v <= 0 {
		return fmt.Errorf("%w: batteryCapacityWh must be positive, got %v", ErrInvalidConfig, v)
	}
	return nil
}

func validEfficiency(v float64) error {
	if !finite(v) || v <= 0 || v > 1 {
		return fmt.Errorf("%w: efficiency must be in (0,1], got %v", ErrInvalidConfig, v)
	}
	return nil
}
