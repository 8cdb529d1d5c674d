// Package energykpi rebuilds daily energy aggregates from the tick log.
package energykpi

import (
	"context"

	"github.com/kilianp07/hems/core/metrics/energy"
	"github.com/kilianp07/hems/core/ticklog"
)

// Backfill adds every logged tick in q to the store and returns the number
// of ticks processed. Aggregates accumulate, so run it on an empty store or
// a range not yet recorded.
func Backfill(ctx context.Context, logs ticklog.LogStore, store energy.Store, q ticklog.LogQuery) (int, error) {
	recs, err := logs.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	for i, r := range recs {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		rec := energy.Record{
			Date:       energy.Day(r.Timestamp),
			ConsumedWh: r.TotalLoadWh,
			SolarWh:    r.SolarForecastWh,
			DeficitWh:  r.DeficitWh,
			Ticks:      1,
		}
		if err := store.Add(rec); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}
