package forecast

import (
	"context"
	"fmt"
)

// DefaultSunlightFactor is the share of the rated panel output assumed by
// Static when nothing better is configured.
const DefaultSunlightFactor = 0.5

// Static derives the forecast from the installation size alone:
// factor × panelKw × efficiency × 1000 × timestepHours.
type Static struct {
	SunlightFactor float64
	deps           Deps
}

// NewStatic returns a Static provider reading the live settings from deps.
func NewStatic(factor float64, deps Deps) (*Static, error) {
	if factor < 0 || factor > 1 {
		return nil, fmt.Errorf("forecast: sunlight factor must be in [0,1], got %v", factor)
	}
	if deps.TimestepHours <= 0 {
		return nil, fmt.Errorf("forecast: timestep must be positive")
	}
	return &Static{SunlightFactor: factor, deps: deps}, nil
}

func (s *Static) ForecastWh(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c := s.deps.config()
	return s.SunlightFactor * c.PanelCapacityKw * c.Efficiency * 1000 * s.deps.TimestepHours, nil
}

// Fixed always returns the same value.
type Fixed float64

func (f Fixed) ForecastWh(context.Context) (float64, error) { return float64(f), nil }
