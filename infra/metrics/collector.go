package metrics

import (
	"context"

	"github.com/kilianp07/hems/core/events"
	coremetrics "github.com/kilianp07/hems/core/metrics"
	"github.com/kilianp07/hems/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards state events
// outside ticks to the sink. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.OverrideEvent:
					if r, ok := sink.(coremetrics.OverrideRecorder); ok {
						_ = r.RecordOverride(coremetrics.OverrideEvent{Enabled: e.Enabled, Time: e.Time})
					}
				case events.DeviceEvent:
					if r, ok := sink.(coremetrics.DeviceStateRecorder); ok && e.Action == events.DeviceSwitched {
						_ = r.RecordDeviceState(coremetrics.DeviceStateEvent{Device: e.Device, Time: e.Time})
					}
				}
			}
		}
	}()
}
