// Package ticks serves the tick log.
package ticks

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/hems/core/ticklog"
)

// NewLogHandler returns an HTTP handler exposing tick logs via GET /api/ticks.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewLogHandler(store ticklog.LogStore, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := ticklog.LogQuery{}
		if s := r.URL.Query().Get("start"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "start must be RFC3339", http.StatusBadRequest)
				return
			}
			q.Start = t
		}
		if s := r.URL.Query().Get("end"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "end must be RFC3339", http.StatusBadRequest)
				return
			}
			q.End = t
		}
		q.DeviceID = r.URL.Query().Get("device_id")
		switch m := r.URL.Query().Get("mode"); m {
		case "", ticklog.ModeAuto, ticklog.ModeOverride:
			q.Mode = m
		default:
			http.Error(w, "mode must be auto or override", http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []ticklog.LogRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
