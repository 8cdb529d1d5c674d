package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/hems/core/model"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `system:
  panelCapacityKw: 4
  batteryCapacityWh: 8000
  efficiency: 0.9
tick:
  interval_seconds: 60
forecast:
  type: historical
  conf:
    path: data/solar.csv
    method: blend
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
metrics:
  sinks:
    - type: "nop"
logging:
  backend: sqlite
  path: ticks.db
http:
  addr: ":8080"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"panel", cfg.System.PanelCapacityKw, 4.0},
		{"battery", cfg.System.BatteryCapacityWh, 8000.0},
		{"interval", cfg.Tick.IntervalSeconds, 60},
		{"timestep derived", cfg.Tick.TimestepHours, 60.0 / 3600},
		{"forecast", cfg.Forecast.Type, "historical"},
		{"forecast.method", cfg.Forecast.Conf["method"], "blend"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"topic_prefix", cfg.MQTT.TopicPrefix, "hems"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"logging.backend", cfg.Logging.Backend, "sqlite"},
		{"logging.level", cfg.Logging.Level, "info"},
		{"http.addr", cfg.HTTP.Addr, ":8080"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.System.BatteryCapacityWh != 5000 || cfg.System.Efficiency != 0.85 {
		t.Fatalf("system defaults not applied: %+v", cfg.System)
	}
	if cfg.Forecast.Type != "static" || cfg.HTTP.Addr != ":3001" || cfg.Tick.Interval().Minutes() != 15 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[system]
panelCapacityKw = 2.5
batteryCapacityWh = 3000
efficiency = 0.8

[tick]
interval_seconds = 1800
timestep_hours = 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.System.PanelCapacityKw != 2.5 || cfg.Tick.TimestepHours != 0.5 || cfg.Tick.IntervalSeconds != 1800 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeFile(t, "config.json", `{"tick":{"interval_seconds":60}}`)
	t.Setenv("HEMS_TICK__INTERVAL_SECONDS", "120")
	t.Setenv("HEMS_LOGGING__LEVEL", "debug")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Tick.IntervalSeconds != 120 {
		t.Fatalf("env override not applied: %d", cfg.Tick.IntervalSeconds)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("env override not applied: %s", cfg.Logging.Level)
	}
	if cfg.Tick.TimestepHours != 120.0/3600 {
		t.Fatalf("timestep not derived from interval: %v", cfg.Tick.TimestepHours)
	}
}

func TestLoad_PartialSystem(t *testing.T) {
	check := func(t *testing.T, cfg *Config) {
		t.Helper()
		want := model.SystemConfig{PanelCapacityKw: 3, BatteryCapacityWh: 10000, Efficiency: 0.85}
		if cfg.System != want {
			t.Fatalf("got %+v want %+v", cfg.System, want)
		}
	}

	t.Run("file", func(t *testing.T) {
		cfg, err := Load(writeFile(t, "config.yaml", "system:\n  batteryCapacityWh: 10000\n"))
		if err != nil {
			t.Fatalf("load error: %v", err)
		}
		check(t, cfg)
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("HEMS_SYSTEM__BATTERYCAPACITYWH", "10000")
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load error: %v", err)
		}
		check(t, cfg)
	})
}

func TestTickConfig_IntervalFollowsTimestep(t *testing.T) {
	cases := []struct {
		name         string
		in           TickConfig
		wantInterval int
		wantStep     float64
	}{
		{"empty", TickConfig{}, 900, 0.25},
		{"timestep only", TickConfig{TimestepHours: 1}, 3600, 1},
		{"interval only", TickConfig{IntervalSeconds: 60}, 60, 60.0 / 3600},
		{"both", TickConfig{IntervalSeconds: 1800, TimestepHours: 0.5}, 1800, 0.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := c.in
			cfg.SetDefaults()
			if cfg.IntervalSeconds != c.wantInterval || cfg.TimestepHours != c.wantStep {
				t.Fatalf("got %+v", cfg)
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
		})
	}

	mismatch := TickConfig{IntervalSeconds: 60, TimestepHours: 0.25}
	mismatch.SetDefaults()
	if err := mismatch.Validate(); err == nil {
		t.Fatalf("expected mismatch error for %+v", mismatch)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"efficiency.yaml": "system:\n  panelCapacityKw: 3\n  batteryCapacityWh: 5000\n  efficiency: 1.5\n",
		"backend.yaml":    "logging:\n  backend: postgres\n",
		"mqtt.yaml":       "mqtt:\n  enabled: true\n",
		"level.yaml":      "logging:\n  level: trace\n",
		"tick.yaml":       "tick:\n  interval_seconds: 60\n  timestep_hours: 0.25\n",
	}
	for name, data := range cases {
		if _, err := Load(writeFile(t, name, data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Load(writeFile(t, "config.ini", "")); err == nil {
		t.Errorf("expected unsupported format error")
	}
}
