package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/hems/core/history"
)

// Forecast methods for the historical provider.
const (
	MethodPersistence = "persistence"
	MethodTrend       = "trend"
	MethodBlend       = "blend"
)

// DefaultBlendRatio weights the trend against persistence in blend mode.
const DefaultBlendRatio = 0.7

// minRecords is one full day of hourly readings.
const minRecords = 24

// Historical forecasts from the hourly solar log. Hourly values are
// predicted per hour of day, interpolated to the tick instants and averaged
// over the tick.
type Historical struct {
	Load   func() ([]history.Record, error)
	Method string
	Ratio  float64
	Window int
	deps   Deps
}

// NewHistorical builds a provider reading records through load.
func NewHistorical(load func() ([]history.Record, error), method string, ratio float64, window int, deps Deps) (*Historical, error) {
	if method == "" {
		method = MethodBlend
	}
	switch method {
	case MethodPersistence, MethodTrend, MethodBlend:
	default:
		return nil, fmt.Errorf("forecast: unknown method %q", method)
	}
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("forecast: blend ratio must be in [0,1], got %v", ratio)
	}
	if window <= 0 {
		window = history.DefaultWindow
	}
	if deps.TimestepHours <= 0 {
		return nil, fmt.Errorf("forecast: timestep must be positive")
	}
	return &Historical{Load: load, Method: method, Ratio: ratio, Window: window, deps: deps}, nil
}

func (h *Historical) ForecastWh(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	recs, err := h.Load()
	if err != nil {
		return 0, fmt.Errorf("forecast: load history: %w", err)
	}
	recs = history.Tail(recs, h.Window)
	if len(recs) < minRecords {
		return 0, fmt.Errorf("forecast: need at least %d hourly records, got %d", minRecords, len(recs))
	}
	// hours of day are matched in the zone the history was recorded in
	start := h.deps.now().In(recs[len(recs)-1].Timestamp.Location())
	step := time.Duration(h.deps.TimestepHours * float64(time.Hour))
	avgKw := (h.kwAt(recs, start) + h.kwAt(recs, start.Add(step))) / 2
	return avgKw * 1000 * h.deps.TimestepHours * h.deps.config().Efficiency, nil
}

// kwAt linearly interpolates between the surrounding hourly predictions.
func (h *Historical) kwAt(recs []history.Record, t time.Time) float64 {
	h0 := t.Truncate(time.Hour)
	frac := float64(t.Sub(h0)) / float64(time.Hour)
	v0 := h.hourly(recs, h0)
	if frac == 0 {
		return v0
	}
	v1 := h.hourly(recs, h0.Add(time.Hour))
	return v0 + (v1-v0)*frac
}

func (h *Historical) hourly(recs []history.Record, ts time.Time) float64 {
	var v float64
	switch h.Method {
	case MethodPersistence:
		v = persistence(recs, ts)
	case MethodTrend:
		v = trend(recs, ts)
	default:
		v = h.Ratio*trend(recs, ts) + (1-h.Ratio)*persistence(recs, ts)
	}
	return math.Max(0, v)
}

// persistence repeats the most recent reading taken at the same hour of day.
func persistence(recs []history.Record, ts time.Time) float64 {
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		if r.Timestamp.Before(ts) && r.Timestamp.Hour() == ts.Hour() {
			return r.SolarKw
		}
	}
	return 0
}

// trend fits a least-squares line through the readings taken at the same
// hour of day and evaluates it at ts.
func trend(recs []history.Record, ts time.Time) float64 {
	origin := recs[0].Timestamp
	var xs, ys []float64
	for _, r := range recs {
		if r.Timestamp.Hour() != ts.Hour() || !r.Timestamp.Before(ts) {
			continue
		}
		xs = append(xs, days(r.Timestamp.Sub(origin)))
		ys = append(ys, r.SolarKw)
	}
	if len(xs) < 2 {
		return persistence(recs, ts)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return alpha + beta*days(ts.Sub(origin))
}

func days(d time.Duration) float64 { return d.Hours() / 24 }
