// Package history reads the hourly solar and load log used by the historical
// forecast provider and the historical-data endpoint.
package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is seven days of hourly rows.
const DefaultWindow = 168

// Initial fill values used until the first real reading appears in a column.
const (
	defaultSolarKw = 0
	defaultLoadKw  = 5
)

// ErrNoData is returned when a file holds a header but no rows.
var ErrNoData = errors.New("history: no data rows")

// Record is one hourly reading.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	SolarKw   float64   `json:"solar_power_kw"`
	LoadKw    float64   `json:"load_total_kw"`
}

var layouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("history: unrecognised timestamp %q", s)
}

// Load reads a CSV file. See Parse.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads CSV with the header timestamp,solar_power_kw,load_total_kw.
// Columns are located by name. Rows come back sorted by timestamp; empty or
// unparsable numeric cells take the previous row's value.
func Parse(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoData
		}
		return nil, err
	}
	idx := map[string]int{"timestamp": -1, "solar_power_kw": -1, "load_total_kw": -1}
	for i, h := range header {
		if _, ok := idx[strings.TrimSpace(h)]; ok {
			idx[strings.TrimSpace(h)] = i
		}
	}
	for col, i := range idx {
		if i < 0 {
			return nil, fmt.Errorf("history: missing column %s", col)
		}
	}
	cr.FieldsPerRecord = len(header)

	type row struct {
		ts          time.Time
		solar, load *float64
	}
	var rows []row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := parseTime(rec[idx["timestamp"]])
		if err != nil {
			return nil, err
		}
		rows = append(rows, row{ts: ts, solar: cell(rec[idx["solar_power_kw"]]), load: cell(rec[idx["load_total_kw"]])})
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	out := make([]Record, len(rows))
	solar, load := float64(defaultSolarKw), float64(defaultLoadKw)
	for i, r := range rows {
		if r.solar != nil {
			solar = *r.solar
		}
		if r.load != nil {
			load = *r.load
		}
		out[i] = Record{Timestamp: r.ts, SolarKw: solar, LoadKw: load}
	}
	return out, nil
}

// cell parses a reading. Blank, malformed and non-finite cells count as
// missing.
func cell(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Tail returns the last n records. n <= 0 returns all of them.
func Tail(recs []Record, n int) []Record {
	if n <= 0 || n >= len(recs) {
		return recs
	}
	return recs[len(recs)-n:]
}
