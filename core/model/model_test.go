package model

import (
	"errors"
	"math"
	"testing"
)

func TestParseTier(t *testing.T) {
	for in, want := range map[string]Tier{"critical": TierCritical, " FLEXIBLE ": TierFlexible, "Optional": TierOptional} {
		got, err := ParseTier(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %s got %s", in, want, got)
		}
	}
	if _, err := ParseTier("luxury"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestDeviceRequiredWh(t *testing.T) {
	d := Device{PowerW: 1500}
	if got := d.RequiredWh(0.25); got != 375 {
		t.Fatalf("expected 375 got %v", got)
	}
}

func TestTimestepInputValidate(t *testing.T) {
	ok := TimestepInput{BatteryCapacityWh: 5000, TimestepHours: 0.25, Devices: []Device{{ID: "a", PowerW: 0, Tier: TierOptional}}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	bad := []TimestepInput{
		{BatteryCapacityWh: 5000, TimestepHours: 0},
		{BatteryCapacityWh: 0, TimestepHours: 0.25},
		{BatteryCapacityWh: 5000, TimestepHours: 0.25, SolarForecastWh: Float(math.NaN())},
		{BatteryCapacityWh: 5000, TimestepHours: 0.25, Devices: []Device{{ID: "x", PowerW: -1, Tier: TierCritical}}},
		{BatteryCapacityWh: 5000, TimestepHours: 0.25, Devices: []Device{{ID: "x", PowerW: 1, Tier: "HIGH"}}},
	}
	for i, in := range bad {
		if err := in.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestSolarDefaultsToZero(t *testing.T) {
	var in TimestepInput
	if in.Solar() != 0 {
		t.Fatalf("expected 0 for absent forecast")
	}
	in.SolarForecastWh = Float(12.5)
	if in.Solar() != 12.5 {
		t.Fatalf("expected 12.5 got %v", in.Solar())
	}
}

func TestConfigUpdateApply(t *testing.T) {
	base := DefaultSystemConfig()
	eff := 0.9
	next, err := ConfigUpdate{Efficiency: &eff}.Apply(base)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.Efficiency != 0.9 || next.PanelCapacityKw != base.PanelCapacityKw || next.BatteryCapacityWh != base.BatteryCapacityWh {
		t.Fatalf("unexpected merge %#v", next)
	}

	panel := 5.0
	badEff := 1.2
	got, err := ConfigUpdate{PanelCapacityKw: &panel, Efficiency: &badEff}.Apply(base)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig got %v", err)
	}
	if got != base {
		t.Fatalf("config changed on failed update: %#v", got)
	}
}

func TestStateClone(t *testing.T) {
	s := State{Devices: []Device{{ID: "a"}}}
	c := s.Clone()
	c.Devices[0].IsOn = true
	if s.Devices[0].IsOn {
		t.Fatal("clone shares device slice")
	}
	if _, ok := s.Device("a"); !ok {
		t.Fatal("device lookup failed")
	}
}
