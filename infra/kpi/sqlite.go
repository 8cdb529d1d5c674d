// Package kpi provides durable stores for the daily energy aggregates.
package kpi

import (
	"database/sql"
	"time"

	"github.com/kilianp07/hems/core/metrics/energy"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists energy records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS energy_kpi (
        day INTEGER PRIMARY KEY,
        consumed REAL,
        solar REAL,
        deficit REAL,
        ticks INTEGER
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Add accumulates r into the row of its day.
func (s *SQLiteStore) Add(r energy.Record) error {
	d := energy.Day(r.Date)
	_, err := s.db.Exec(`INSERT INTO energy_kpi (day, consumed, solar, deficit, ticks)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(day) DO UPDATE SET
            consumed = consumed + excluded.consumed,
            solar = solar + excluded.solar,
            deficit = deficit + excluded.deficit,
            ticks = ticks + excluded.ticks`,
		d.Unix(), r.ConsumedWh, r.SolarWh, r.DeficitWh, r.Ticks)
	return err
}

// Query returns records in the range [start,end]. A zero end means no upper
// bound.
func (s *SQLiteStore) Query(start, end time.Time) ([]energy.Record, error) {
	upper := int64(1<<62)
	if !end.IsZero() {
		upper = energy.Day(end).Unix()
	}
	rows, err := s.db.Query(`SELECT day, consumed, solar, deficit, ticks
        FROM energy_kpi WHERE day >= ? AND day <= ? ORDER BY day`,
		energy.Day(start).Unix(), upper)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []energy.Record
	for rows.Next() {
		var ts int64
		var r energy.Record
		if err := rows.Scan(&ts, &r.ConsumedWh, &r.SolarWh, &r.DeficitWh, &r.Ticks); err != nil {
			return nil, err
		}
		r.Date = time.Unix(ts, 0).UTC()
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
