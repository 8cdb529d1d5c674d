// Package export writes tick log records as CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/hems/core/ticklog"
)

// Formats supported by Write.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Write encodes records in the named format.
func Write(w io.Writer, format string, records []ticklog.LogRecord) error {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatJSON, "":
		return WriteJSON(w, records)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, records []ticklog.LogRecord) error {
	if records == nil {
		records = []ticklog.LogRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

var csvHeader = []string{
	"timestamp", "mode", "solar_forecast_wh", "battery_before_wh", "battery_after_wh",
	"total_load_wh", "deficit_wh", "devices_on", "warnings",
}

// WriteCSV writes one row per tick. devices_on lists the ids of the devices
// switched on, separated by semicolons.
func WriteCSV(w io.Writer, records []ticklog.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		var on []string
		for _, d := range r.Devices {
			if d.IsOn {
				on = append(on, d.ID)
			}
		}
		rec := []string{
			r.Timestamp.Format(time.RFC3339),
			r.Mode,
			formatFloat(r.SolarForecastWh),
			formatFloat(r.BatteryBeforeWh),
			formatFloat(r.BatteryAfterWh),
			formatFloat(r.TotalLoadWh),
			formatFloat(r.DeficitWh),
			strings.Join(on, ";"),
			strings.Join(r.Warnings, ";"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
