package energy

import "time"

// Store persists daily energy records. Add accumulates into the record of
// the day containing r.Date.
type Store interface {
	Add(r Record) error
	Query(start, end time.Time) ([]Record, error)
}

// Day aligns t to the start of its UTC day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
