// Package config loads the controller configuration from YAML, JSON or TOML
// files with HEMS_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/hems/core/factory"
	"github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/infra/mqtt"
)

// EnvPrefix marks environment overrides, e.g. HEMS_TICK__INTERVAL_SECONDS.
const EnvPrefix = "HEMS_"

type Config struct {
	System   model.SystemConfig   `json:"system"`
	Tick     TickConfig           `json:"tick"`
	Forecast factory.ModuleConfig `json:"forecast"`
	State    StateConfig          `json:"state"`
	History  HistoryConfig        `json:"history"`
	MQTT     mqtt.Config          `json:"mqtt"`
	Metrics  metrics.Config       `json:"metrics"`
	Energy   EnergyConfig         `json:"energy"`
	Logging  LoggingConfig        `json:"logging"`
	HTTP     HTTPConfig           `json:"http"`
	Sentry   SentryConfig         `json:"sentry"`
}

// Default returns a configuration usable without any file.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	def := model.DefaultSystemConfig()
	if c.System.PanelCapacityKw == 0 {
		c.System.PanelCapacityKw = def.PanelCapacityKw
	}
	if c.System.BatteryCapacityWh == 0 {
		c.System.BatteryCapacityWh = def.BatteryCapacityWh
	}
	if c.System.Efficiency == 0 {
		c.System.Efficiency = def.Efficiency
	}
	c.Tick.SetDefaults()
	if c.Forecast.Type == "" {
		c.Forecast.Type = "static"
	}
	c.History.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
	c.HTTP.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.System.Validate(); err != nil {
		return fmt.Errorf("system: %w", err)
	}
	if err := c.Tick.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return TOMLParser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
}

// Load reads path, applies HEMS_ environment overrides, defaults and
// validation. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
