package kpi

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/hems/core/metrics/energy"
)

func TestSQLiteStore_Accumulates(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kpi.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		rec := energy.Record{Date: day.Add(time.Duration(i) * 15 * time.Minute), ConsumedWh: 10, SolarWh: 5, DeficitWh: 1, Ticks: 1}
		if err := s.Add(rec); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := s.Add(energy.Record{Date: day.AddDate(0, 0, 1), ConsumedWh: 3, Ticks: 1}); err != nil {
		t.Fatalf("add next day: %v", err)
	}
	recs, err := s.Query(day, day)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(recs) != 1 || recs[0].ConsumedWh != 40 || recs[0].Ticks != 4 || !recs[0].Date.Equal(day) {
		t.Fatalf("unexpected records %+v", recs)
	}
	all, err := s.Query(day, time.Time{})
	if err != nil || len(all) != 2 {
		t.Fatalf("open-ended query: %v %+v", err, all)
	}
}
