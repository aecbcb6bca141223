// Package events provides a typed in-process event bus for device and
// capture lifecycle notifications.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers an event to all subscribers of its type.
//
// The generic event.Publish needs the concrete type, so the dynamic
// Event is dispatched through a type switch.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case DeviceAttachedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceDetachedEvent:
		event.Publish(b.dispatcher, e)
	case SignalChangedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureStartedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureStoppedEvent:
		event.Publish(b.dispatcher, e)
	case CaptureErrorEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler; the handler's parameter type selects
// which events it receives. It returns an unsubscribe function.
//
// Usage: unsub := bus.Subscribe(func(e DeviceAttachedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DeviceAttachedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceDetachedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SignalChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
