// Package kpi serves the daily energy KPIs.
package kpi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/hems/core/metrics/energy"
)

type kpi struct {
	Date            string  `json:"date"`
	ConsumedWh      float64 `json:"consumed_wh"`
	SolarWh         float64 `json:"solar_wh"`
	DeficitWh       float64 `json:"deficit_wh"`
	Ticks           int     `json:"ticks"`
	SelfSufficiency float64 `json:"self_sufficiency"`
	SolarShare      float64 `json:"solar_share"`
}

// NewKPIHandler exposes daily energy KPIs via GET /api/energy?start&end.
// Dates are RFC3339 or YYYY-MM-DD; start defaults to seven days ago.
func NewKPIHandler(store energy.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		end, err := parseDate(r.URL.Query().Get("end"))
		if err != nil {
			http.Error(w, "invalid end", http.StatusBadRequest)
			return
		}
		if end.IsZero() {
			end = time.Now()
		}
		start, err := parseDate(r.URL.Query().Get("start"))
		if err != nil {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
		if start.IsZero() {
			start = end.AddDate(0, 0, -7)
		}
		recs, err := store.Query(start, end)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]kpi, len(recs))
		for i, rec := range recs {
			out[i] = kpi{
				Date:            rec.Date.Format("2006-01-02"),
				ConsumedWh:      rec.ConsumedWh,
				SolarWh:         rec.SolarWh,
				DeficitWh:       rec.DeficitWh,
				Ticks:           rec.Ticks,
				SelfSufficiency: rec.SelfSufficiency(),
				SolarShare:      rec.SolarShare(),
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
