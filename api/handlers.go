package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/hems/core/events"
	"github.com/kilianp07/hems/core/history"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/schedule"
	"github.com/kilianp07/hems/internal/eventbus"
)

type stateResponse struct {
	BatteryRemainingWh  float64        `json:"batteryRemainingWh"`
	BatteryCapacityWh   float64        `json:"batteryCapacityWh"`
	Devices             []model.Device `json:"devices"`
	OverrideMode        bool           `json:"overrideMode"`
	LastSolarForecastWh float64        `json:"lastSolarForecastWh"`
	EnergyDeficitWh     float64        `json:"energyDeficitWh"`
	Warnings            []string       `json:"warnings"`
}

func (s *server) getState(w http.ResponseWriter, _ *http.Request) {
	st := s.Store.Snapshot()
	devices := st.Devices
	if devices == nil {
		devices = []model.Device{}
	}
	s.writeJSON(w, http.StatusOK, stateResponse{
		BatteryRemainingWh:  st.BatteryRemainingWh,
		BatteryCapacityWh:   st.BatteryCapacityWh,
		Devices:             devices,
		OverrideMode:        st.OverrideMode,
		LastSolarForecastWh: st.LastSolarForecastWh,
		EnergyDeficitWh:     st.EnergyDeficitWh,
		Warnings:            schedule.Strings(schedule.Classify(st)),
	})
}

func (s *server) publish(ev eventbus.Event) {
	if s.Bus != nil {
		s.Bus.Publish(ev)
	}
}

func (s *server) setOverride(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OverrideMode *bool `json:"overrideMode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OverrideMode == nil {
		s.writeError(w, http.StatusBadRequest, "overrideMode must be a boolean")
		return
	}
	st := s.Store.SetOverride(*body.OverrideMode)
	s.publish(events.OverrideEvent{Enabled: st.OverrideMode, Time: s.Clock()})
	s.writeJSON(w, http.StatusOK, map[string]bool{"overrideMode": st.OverrideMode})
}

func (s *server) setDevice(w http.ResponseWriter, r *http.Request) {
	if !s.Store.Snapshot().OverrideMode {
		s.writeError(w, http.StatusForbidden, "Override mode must be enabled to manually control devices")
		return
	}
	var body struct {
		IsOn *bool `json:"isOn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsOn == nil {
		s.writeError(w, http.StatusBadRequest, "isOn must be a boolean")
		return
	}
	d, err := s.Store.SetDevice(chi.URLParam(r, "id"), *body.IsOn)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.publish(events.DeviceEvent{Action: events.DeviceSwitched, Device: d, Time: s.Clock()})
	s.writeJSON(w, http.StatusOK, d)
}

func (s *server) listDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.Store.Snapshot().Devices
	if devices == nil {
		devices = []model.Device{}
	}
	s.writeJSON(w, http.StatusOK, devices)
}

func (s *server) addDevice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string   `json:"name"`
		PowerW *float64 `json:"powerW"`
		Type   string   `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Name == "" || body.PowerW == nil || body.Type == "" {
		s.writeError(w, http.StatusBadRequest, "Missing required fields: name, powerW, type")
		return
	}
	tier, err := model.ParseTier(body.Type)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := s.Store.AddDevice(body.Name, *body.PowerW, tier)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.publish(events.DeviceEvent{Action: events.DeviceAdded, Device: d, Time: s.Clock()})
	s.writeJSON(w, http.StatusCreated, d)
}

func (s *server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, _ := s.Store.Snapshot().Device(id)
	if err := s.Store.DeleteDevice(id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.publish(events.DeviceEvent{Action: events.DeviceRemoved, Device: d, Time: s.Clock()})
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Device deleted"})
}

func (s *server) getConfig(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Settings.Get())
}

func (s *server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var u model.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid configuration: "+err.Error())
		return
	}
	cfg, err := s.Settings.Update(u)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cfg)
}

func (s *server) getForecast(w http.ResponseWriter, r *http.Request) {
	wh, err := s.Forecast.ForecastWh(r.Context())
	if err != nil {
		s.log.Errorf("forecast: %v", err)
		s.writeError(w, http.StatusBadGateway, "forecast unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]float64{
		"solarForecastWh": wh,
		"timestepHours":   s.TimestepHours,
	})
}

func (s *server) runTick(w http.ResponseWriter, r *http.Request) {
	res, err := s.Ticker.Tick(r.Context())
	if err != nil {
		s.log.Errorf("manual tick: %v", err)
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

type historicalResponse struct {
	Source      string           `json:"source"`
	RecordCount int              `json:"recordCount"`
	Data        []history.Record `json:"data"`
}

func (s *server) historicalData(w http.ResponseWriter, _ *http.Request) {
	if s.HistoryPath == "" {
		s.writeError(w, http.StatusNotFound, "Historical data file not found")
		return
	}
	recs, err := history.Load(s.HistoryPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.writeError(w, http.StatusNotFound, "Historical data file not found")
		return
	case errors.Is(err, history.ErrNoData):
		recs = []history.Record{}
	case err != nil:
		s.log.Errorf("historical data: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to read historical data")
		return
	}
	s.writeJSON(w, http.StatusOK, historicalResponse{
		Source:      filepath.Base(s.HistoryPath),
		RecordCount: len(recs),
		Data:        recs,
	})
}
