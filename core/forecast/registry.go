package forecast

import (
	"fmt"

	"github.com/kilianp07/hems/core/factory"
	"github.com/kilianp07/hems/core/history"
)

// Builder finishes a configured provider once the shared dependencies are
// known.
type Builder func(Deps) (Provider, error)

var registry = factory.NewRegistry[Builder]()

// Register adds a provider factory identified by name.
func Register(name string, f factory.Factory[Builder]) error {
	return registry.Register(name, f)
}

// New creates a provider from its module configuration.
func New(cfg factory.ModuleConfig, deps Deps) (Provider, error) {
	b, err := registry.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	return b(deps)
}

type staticConf struct {
	SunlightFactor *float64 `json:"sunlight_factor"`
}

type fixedConf struct {
	Wh float64 `json:"wh"`
}

type historicalConf struct {
	Path   string   `json:"path"`
	Method string   `json:"method"`
	Ratio  *float64 `json:"ratio"`
	Window int      `json:"window"`
}

type fallbackConf struct {
	Primary   factory.ModuleConfig `json:"primary"`
	Secondary factory.ModuleConfig `json:"secondary"`
}

func init() {
	_ = Register("static", func(conf map[string]any) (Builder, error) {
		var c staticConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		factor := DefaultSunlightFactor
		if c.SunlightFactor != nil {
			factor = *c.SunlightFactor
		}
		return func(d Deps) (Provider, error) { return NewStatic(factor, d) }, nil
	})
	_ = Register("fixed", func(conf map[string]any) (Builder, error) {
		var c fixedConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Wh < 0 {
			return nil, fmt.Errorf("fixed forecast must be non-negative")
		}
		return func(Deps) (Provider, error) { return Fixed(c.Wh), nil }, nil
	})
	_ = Register("historical", func(conf map[string]any) (Builder, error) {
		var c historicalConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("historical forecast requires a path")
		}
		ratio := DefaultBlendRatio
		if c.Ratio != nil {
			ratio = *c.Ratio
		}
		load := func() ([]history.Record, error) { return history.Load(c.Path) }
		return func(d Deps) (Provider, error) {
			return NewHistorical(load, c.Method, ratio, c.Window, d)
		}, nil
	})
	_ = Register("fallback", func(conf map[string]any) (Builder, error) {
		var c fallbackConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return func(d Deps) (Provider, error) {
			p, err := New(c.Primary, d)
			if err != nil {
				return nil, fmt.Errorf("primary: %w", err)
			}
			s, err := New(c.Secondary, d)
			if err != nil {
				return nil, fmt.Errorf("secondary: %w", err)
			}
			return &Fallback{Primary: p, Secondary: s, Logger: d.Logger}, nil
		}, nil
	})
}
