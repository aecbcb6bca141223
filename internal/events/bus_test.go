package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan DeviceAttachedEvent, 1)

	unsub := bus.Subscribe(func(e DeviceAttachedEvent) {
		received <- e
	})
	defer unsub()

	ev := DeviceAttachedEvent{
		Path:      "/dev/video0",
		Name:      "video0",
		Timestamp: "2026-08-29T10:30:00Z",
	}
	bus.Publish(ev)

	got := <-received
	if got.Path != ev.Path {
		t.Errorf("Expected path %s, got %s", ev.Path, got.Path)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan CaptureStartedEvent, 1)
	received2 := make(chan CaptureStartedEvent, 1)

	unsub1 := bus.Subscribe(func(e CaptureStartedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e CaptureStartedEvent) {
		received2 <- e
	})
	defer unsub2()

	ev := CaptureStartedEvent{
		Path:        "/dev/video0",
		PixelFormat: "YUYV",
		Width:       1920,
		Height:      1080,
		Buffers:     4,
	}
	bus.Publish(ev)

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan CaptureErrorEvent, 1)

	unsub := bus.Subscribe(func(e CaptureErrorEvent) {
		received <- e
	})

	bus.Publish(CaptureErrorEvent{Path: "/dev/video0"})
	<-received

	unsub()

	bus.Publish(CaptureErrorEvent{Path: "/dev/video1"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	attachReceived := make(chan bool, 1)
	signalReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ DeviceAttachedEvent) {
		attachReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ SignalChangedEvent) {
		signalReceived <- true
	})
	defer unsub2()

	bus.Publish(DeviceAttachedEvent{Path: "/dev/video0"})
	<-attachReceived

	select {
	case <-signalReceived:
		t.Fatal("Signal handler should not receive device events")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(SignalChangedEvent{Path: "/dev/video0", State: "signal-locked"})
	<-signalReceived
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()

	// Handlers outside the known event set get a no-op unsubscribe.
	unsub := bus.Subscribe(func(_ string) {})
	if unsub == nil {
		t.Fatal("Subscribe should never return nil")
	}
	unsub()
}

func TestBus_EventTypesDistinct(t *testing.T) {
	evs := []Event{
		DeviceAttachedEvent{},
		DeviceDetachedEvent{},
		SignalChangedEvent{},
		CaptureStartedEvent{},
		CaptureStoppedEvent{},
		CaptureErrorEvent{},
	}
	seen := make(map[uint32]bool)
	for _, ev := range evs {
		if seen[ev.Type()] {
			t.Fatalf("duplicate event type id %d", ev.Type())
		}
		seen[ev.Type()] = true
	}
}
