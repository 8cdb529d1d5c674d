// Package forecast provides the solar energy expected during the next tick.
package forecast

import (
	"context"
	"time"

	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/model"
)

// Provider returns the solar energy, in Wh, expected over the next tick.
type Provider interface {
	ForecastWh(ctx context.Context) (float64, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (float64, error)

func (f ProviderFunc) ForecastWh(ctx context.Context) (float64, error) { return f(ctx) }

// SettingsSource exposes the live installation parameters.
type SettingsSource interface {
	Get() model.SystemConfig
}

// Deps are the shared dependencies handed to every provider builder.
type Deps struct {
	Settings      SettingsSource
	TimestepHours float64
	Clock         func() time.Time
	Logger        logger.Logger
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

func (d Deps) config() model.SystemConfig {
	if d.Settings == nil {
		return model.DefaultSystemConfig()
	}
	return d.Settings.Get()
}
