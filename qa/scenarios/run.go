package scenarios

import (
	"context"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/hems/core/actuator"
	"github.com/kilianp07/hems/core/forecast"
	"github.com/kilianp07/hems/core/logger"
	"github.com/kilianp07/hems/core/schedule"
	"github.com/kilianp07/hems/core/state"
	"github.com/kilianp07/hems/core/tick"
	"github.com/kilianp07/hems/infra/metrics"
	"github.com/kilianp07/hems/internal/eventbus"
)

const tolerance = 1e-9

func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	initial, err := sc.State()
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	store := state.NewMemoryStore(initial)

	i := 0
	solar := forecast.ProviderFunc(func(context.Context) (float64, error) {
		v := sc.SolarWh[i]
		i++
		return v, nil
	})

	rec := &actuator.Recorder{}
	ts := time.Unix(0, 0)
	orch, err := tick.New(store, solar, tick.Options{
		TimestepHours: sc.TimestepHours,
		Actuator:      rec,
		Sink:          sink,
		Bus:           eventbus.New(),
		Logger:        logger.NopLogger{},
		Clock:         func() time.Time { return ts },
	})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	var res tick.Result
	var deficitTotal float64
	for range sc.SolarWh {
		ts = ts.Add(15 * time.Minute)
		if res, err = orch.Tick(context.Background()); err != nil {
			t.Fatalf("scenario %s tick %d: %v", sc.Name, i, err)
		}
		deficitTotal += res.Output.DeficitWh
	}

	exp := sc.Expected
	if !approx(res.State.BatteryRemainingWh, exp.BatteryWh) {
		t.Errorf("scenario %s: battery %v, want %v", sc.Name, res.State.BatteryRemainingWh, exp.BatteryWh)
	}
	if !approx(res.Output.TotalLoadWh, exp.TotalLoadWh) {
		t.Errorf("scenario %s: load %v, want %v", sc.Name, res.Output.TotalLoadWh, exp.TotalLoadWh)
	}
	if !approx(res.Output.DeficitWh, exp.DeficitWh) {
		t.Errorf("scenario %s: deficit %v, want %v", sc.Name, res.Output.DeficitWh, exp.DeficitWh)
	}
	if on := onIDs(res); !slices.Equal(on, normalize(exp.On)) {
		t.Errorf("scenario %s: devices on %v, want %v", sc.Name, on, exp.On)
	}
	if got := schedule.Strings(res.Warnings); !slices.Equal(got, normalize(exp.Warnings)) {
		t.Errorf("scenario %s: warnings %v, want %v", sc.Name, got, exp.Warnings)
	}
	if rec.Calls() != len(sc.SolarWh) {
		t.Errorf("scenario %s: actuator called %d times, want %d", sc.Name, rec.Calls(), len(sc.SolarWh))
	}
	if got := gatheredValue(t, reg, "hems_energy_deficit_wh_total"); !approx(got, deficitTotal) {
		t.Errorf("scenario %s: deficit counter %v, want %v", sc.Name, got, deficitTotal)
	}
}

func onIDs(res tick.Result) []string {
	ids := []string{}
	for _, d := range res.State.Devices {
		if d.IsOn {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func normalize(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func approx(a, b float64) bool { return math.Abs(a-b) < tolerance }

func gatheredValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	mfs, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
		return sum
	}
	return 0
}
