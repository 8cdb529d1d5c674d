package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/core/metrics/energy"
)

// EnergySink accumulates ticks into daily energy records.
type EnergySink struct {
	store           energy.Store
	consumed        *prometheus.GaugeVec
	selfSufficiency *prometheus.GaugeVec
}

// NewEnergySink creates a sink with Prometheus gauges registered on reg.
func NewEnergySink(store energy.Store, reg prometheus.Registerer) (*EnergySink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	consumed, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hems_daily_consumed_wh",
		Help: "Energy consumed by the household per day",
	}, []string{"day"}))
	if err != nil {
		return nil, err
	}
	ss, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hems_daily_self_sufficiency",
		Help: "Share of the daily demand that was served",
	}, []string{"day"}))
	if err != nil {
		return nil, err
	}
	return &EnergySink{store: store, consumed: consumed, selfSufficiency: ss}, nil
}

// RecordTick adds the tick to the daily record and refreshes the gauges.
func (s *EnergySink) RecordTick(rec coremetrics.TickRecord) error {
	if err := s.store.Add(energy.Record{
		Date:       rec.Time,
		ConsumedWh: rec.TotalLoadWh,
		SolarWh:    rec.SolarForecastWh,
		DeficitWh:  rec.DeficitWh,
		Ticks:      1,
	}); err != nil {
		return err
	}
	day := energy.Day(rec.Time)
	recs, err := s.store.Query(day, day)
	if err != nil || len(recs) == 0 {
		return err
	}
	label := day.Format("2006-01-02")
	s.consumed.WithLabelValues(label).Set(recs[0].ConsumedWh)
	s.selfSufficiency.WithLabelValues(label).Set(recs[0].SelfSufficiency())
	return nil
}
