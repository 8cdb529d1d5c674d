package config

import (
	"fmt"
	"math"
	"time"
)

// TickConfig controls the periodic control loop.
type TickConfig struct {
	IntervalSeconds int     `json:"interval_seconds"`
	TimestepHours   float64 `json:"timestep_hours"`
	// Disabled stops the periodic runner; ticks can still be triggered manually.
	Disabled bool `json:"disabled"`
}

// SetDefaults derives whichever of interval and timestep is unset from the
// other. A tick covers exactly one interval.
func (c *TickConfig) SetDefaults() {
	switch {
	case c.IntervalSeconds <= 0 && c.TimestepHours <= 0:
		c.TimestepHours = 0.25
		c.IntervalSeconds = 900
	case c.IntervalSeconds <= 0:
		c.IntervalSeconds = int(math.Round(c.TimestepHours * 3600))
	case c.TimestepHours <= 0:
		c.TimestepHours = float64(c.IntervalSeconds) / 3600
	}
}

func (c TickConfig) Validate() error {
	if c.TimestepHours > 24 {
		return fmt.Errorf("tick: timestep_hours must not exceed 24, got %v", c.TimestepHours)
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("tick: interval_seconds must be positive, got %d", c.IntervalSeconds)
	}
	if math.Abs(float64(c.IntervalSeconds)-c.TimestepHours*3600) > 1 {
		return fmt.Errorf("tick: interval_seconds %d does not match timestep_hours %v", c.IntervalSeconds, c.TimestepHours)
	}
	return nil
}

// Interval returns the runner period.
func (c TickConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// StateConfig points at the optional seed file for the household.
type StateConfig struct {
	SeedPath string `json:"seed_path"`
}

// HistoryConfig locates the historical CSV served by the API.
type HistoryConfig struct {
	Path string `json:"path"`
}

func (c *HistoryConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "data/solar_data.csv"
	}
}

// EnergyConfig selects the daily energy KPI store. An empty path keeps
// aggregates in memory.
type EnergyConfig struct {
	Path string `json:"path"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr          string   `json:"addr"`
	CORSOrigins   []string `json:"cors_origins"`
	Gzip          bool     `json:"gzip"`
	EnableMetrics bool     `json:"enable_metrics"`
	// MetricsAddr starts a dedicated Prometheus listener when set.
	MetricsAddr string `json:"metrics_addr"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":3001"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
}

func (c HTTPConfig) Validate() error {
	if c.MetricsAddr != "" && c.MetricsAddr == c.Addr {
		return fmt.Errorf("http: metrics_addr must differ from addr")
	}
	return nil
}
