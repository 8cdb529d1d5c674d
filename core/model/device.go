package model

import (
	"fmt"
	"math"
	"strings"
)

// Tier is the fixed priority class of a device. Tiers are allocated in the
// order CRITICAL, FLEXIBLE, OPTIONAL.
type Tier string

const (
	TierCritical Tier = "CRITICAL"
	TierFlexible Tier = "FLEXIBLE"
	TierOptional Tier = "OPTIONAL"
)

// Tiers lists every tier in allocation order.
var Tiers = []Tier{TierCritical, TierFlexible, TierOptional}

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierCritical, TierFlexible, TierOptional:
		return true
	default:
		return false
	}
}

// String returns the tier name.
func (t Tier) String() string { return string(t) }

// ParseTier converts a case-insensitive tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// Device represents a controllable household load.
type Device struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	PowerW float64 `json:"powerW" yaml:"power_w"` // rated draw in watts
	Tier   Tier    `json:"type" yaml:"type"`
	IsOn   bool    `json:"isOn" yaml:"is_on"`
}

// RequiredWh returns the energy the device draws over a tick of the given
// length in hours.
func (d Device) RequiredWh(timestepHours float64) float64 {
	return d.PowerW * timestepHours
}

// Validate checks the rated power and tier.
func (d Device) Validate() error {
	if math.IsNaN(d.PowerW) || math.IsInf(d.PowerW, 0) {
		return fmt.Errorf("device %s: power must be finite", d.ID)
	}
	if d.PowerW < 0 {
		return fmt.Errorf("device %s: power must be non-negative", d.ID)
	}
	if !d.Tier.Valid() {
		return fmt.Errorf("device %s: unknown tier %q", d.ID, d.Tier)
	}
	return nil
}

// CloneDevices returns a copy of the slice so callers can mutate it freely.
func CloneDevices(devices []Device) []Device {
	if devices == nil {
		return nil
	}
	out := make([]Device, len(devices))
	copy(out, devices)
	return out
}
