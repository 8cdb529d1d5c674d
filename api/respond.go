package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/state"
	"github.com/kilianp07/hems/core/tick"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v before writing the status, so a value that cannot be
// encoded yields a complete 500 instead of a truncated body.
func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.Errorf("encode response: %v", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (s *server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, state.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, state.ErrOverrideDisabled):
		return http.StatusForbidden
	case errors.Is(err, state.ErrInvalidDevice), errors.Is(err, model.ErrInvalidConfig),
		errors.Is(err, tick.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeDomainError(w http.ResponseWriter, err error) {
	s.writeError(w, statusFor(err), err.Error())
}
