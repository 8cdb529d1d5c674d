package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/ticklog"
)

func sampleRecords() []ticklog.LogRecord {
	return []ticklog.LogRecord{{
		Timestamp:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Mode:            ticklog.ModeAuto,
		SolarForecastWh: 500,
		BatteryBeforeWh: 0,
		BatteryAfterWh:  62.5,
		TotalLoadWh:     437.5,
		Devices: []model.Device{
			{ID: "1", IsOn: true},
			{ID: "2", IsOn: false},
			{ID: "3", IsOn: true},
		},
		Warnings: []string{"battery full"},
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"2026-03-01T12:00:00Z", "auto", "500", "0", "62.5", "437.5", "0", "1;3", "battery full",
	}, rows[1])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleRecords()))
	var got []ticklog.LogRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 62.5, got[0].BatteryAfterWh)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWrite_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "CSV", nil))
	assert.Contains(t, buf.String(), "timestamp,mode")
	assert.Error(t, Write(&buf, "xml", nil))
}
