package forecast

import (
	"context"
	"fmt"

	"github.com/kilianp07/hems/core/logger"
)

// Fallback queries Primary and switches to Secondary when it fails.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	Logger    logger.Logger
}

func (f *Fallback) ForecastWh(ctx context.Context) (float64, error) {
	v, err := f.Primary.ForecastWh(ctx)
	if err == nil {
		return v, nil
	}
	if f.Logger != nil {
		f.Logger.Warnf("primary forecast failed, using fallback: %v", err)
	}
	v, err2 := f.Secondary.ForecastWh(ctx)
	if err2 != nil {
		return 0, fmt.Errorf("forecast: primary: %v; fallback: %w", err, err2)
	}
	return v, nil
}
