package tick

import (
	"context"
	"time"

	"github.com/kilianp07/hems/core/monitoring"
)

// Run ticks once immediately and then every interval until ctx is done.
// Failed ticks are logged and the loop continues.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	o.safeTick(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			o.safeTick(ctx)
		}
	}
}

func (o *Orchestrator) safeTick(ctx context.Context) {
	defer func() {
		if err := monitoring.CapturePanic(recover(), map[string]string{"component": "tick"}); err != nil {
			o.logger.Errorf("tick panicked: %v", err)
		}
	}()
	if _, err := o.Tick(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		o.logger.Errorf("tick failed: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "tick"})
	}
}
