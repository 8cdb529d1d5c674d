// Package eventbus provides in-process publish/subscribe fan-out used to
// broadcast committed ticks and state changes to observers.
package eventbus

// Event represents an arbitrary event passed on the untyped bus.
type Event interface{}

// EventBus is the untyped publish/subscribe contract.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the untyped bus, used where observers switch on event type.
type Bus = TypedBus[Event]

// New creates a new untyped Bus.
func New() *Bus { return NewTyped[Event]() }
