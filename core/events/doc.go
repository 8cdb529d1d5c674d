// Package events defines the events emitted on the event bus.
//
// Available event types:
//   - TickEvent: a tick was committed
//   - OverrideEvent: override mode was toggled
//   - DeviceEvent: a device was switched, added or removed outside a tick
package events
