package kpi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/hems/core/metrics/energy"
)

func TestKPIHandler(t *testing.T) {
	store := energy.NewMemoryStore()
	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_ = store.Add(energy.Record{Date: day, ConsumedWh: 1000, SolarWh: 500, DeficitWh: 250, Ticks: 4})
	_ = store.Add(energy.Record{Date: day.AddDate(0, 0, 2), ConsumedWh: 200, Ticks: 1})

	h := NewKPIHandler(store)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/energy?start=2026-03-01&end=2026-03-01", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []kpi
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 record got %d", len(out))
	}
	if out[0].Date != "2026-03-01" || out[0].SelfSufficiency != 0.75 || out[0].SolarShare != 0.5 {
		t.Fatalf("unexpected kpi %+v", out[0])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/energy?start=2026-03-01T00:00:00Z&end=2026-03-05", nil))
	out = nil
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if len(out) != 2 {
		t.Fatalf("expected 2 records got %d", len(out))
	}
}

func TestKPIHandler_Errors(t *testing.T) {
	h := NewKPIHandler(energy.NewMemoryStore())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/energy?start=march", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/energy", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}
