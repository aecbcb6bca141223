//go:build linux

package hotplug

import (
	"context"
	"errors"
	"testing"
)

func TestParseUEvent(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		ok       bool
		expected Event
	}{
		{
			name:  "empty input",
			input: []byte{},
			ok:    false,
		},
		{
			name:  "no separator",
			input: []byte("invalid"),
			ok:    false,
		},
		{
			name:  "missing action",
			input: []byte("@/devices/foo"),
			ok:    false,
		},
		{
			name:  "only null bytes",
			input: []byte{0, 0, 0, 0},
			ok:    false,
		},
		{
			name:  "video device added",
			input: []byte("add@/devices/pci0000:00/usb1/1-3/video4linux/video0\x00SUBSYSTEM=video4linux\x00DEVNAME=video0\x00"),
			ok:    true,
			expected: Event{
				Action:    ActionAdd,
				Subsystem: "video4linux",
				Name:      "video0",
				Path:      "/dev/video0",
				Env: map[string]string{
					"SUBSYSTEM": "video4linux",
					"DEVNAME":   "video0",
				},
			},
		},
		{
			name:  "absolute devname",
			input: []byte("add@/devices/foo\x00SUBSYSTEM=video4linux\x00DEVNAME=/dev/video2\x00"),
			ok:    true,
			expected: Event{
				Action:    ActionAdd,
				Subsystem: "video4linux",
				Name:      "video2",
				Path:      "/dev/video2",
				Env: map[string]string{
					"SUBSYSTEM": "video4linux",
					"DEVNAME":   "/dev/video2",
				},
			},
		},
		{
			name:  "device removed",
			input: []byte("remove@/devices/pci0000:00/usb1/1-3/video4linux/video0\x00SUBSYSTEM=video4linux\x00DEVNAME=video0\x00"),
			ok:    true,
			expected: Event{
				Action:    ActionRemove,
				Subsystem: "video4linux",
				Name:      "video0",
				Path:      "/dev/video0",
				Env: map[string]string{
					"SUBSYSTEM": "video4linux",
					"DEVNAME":   "video0",
				},
			},
		},
		{
			name:  "no device node",
			input: []byte("change@/devices/sound/card0\x00SUBSYSTEM=sound\x00"),
			ok:    true,
			expected: Event{
				Action:    ActionChange,
				Subsystem: "sound",
				Env: map[string]string{
					"SUBSYSTEM": "sound",
				},
			},
		},
		{
			name:  "value containing equals",
			input: []byte("add@/devices/foo\x00KEY=val=ue\x00"),
			ok:    true,
			expected: Event{
				Action: ActionAdd,
				Env:    map[string]string{"KEY": "val=ue"},
			},
		},
		{
			name:  "consecutive null bytes",
			input: []byte("add@/devices/foo\x00\x00\x00KEY=val\x00"),
			ok:    true,
			expected: Event{
				Action: ActionAdd,
				Env:    map[string]string{"KEY": "val"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := parseUEvent(tt.input)
			if ok != tt.ok {
				t.Fatalf("parseUEvent ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}

			if result.Action != tt.expected.Action {
				t.Errorf("Action = %q, want %q", result.Action, tt.expected.Action)
			}
			if result.Subsystem != tt.expected.Subsystem {
				t.Errorf("Subsystem = %q, want %q", result.Subsystem, tt.expected.Subsystem)
			}
			if result.Name != tt.expected.Name {
				t.Errorf("Name = %q, want %q", result.Name, tt.expected.Name)
			}
			if result.Path != tt.expected.Path {
				t.Errorf("Path = %q, want %q", result.Path, tt.expected.Path)
			}
			if len(result.Env) != len(tt.expected.Env) {
				t.Errorf("Env length = %d, want %d", len(result.Env), len(tt.expected.Env))
			}
			for k, v := range tt.expected.Env {
				if result.Env[k] != v {
					t.Errorf("Env[%q] = %q, want %q", k, result.Env[k], v)
				}
			}
		})
	}
}

func TestParseUEventLibudevHeader(t *testing.T) {
	// udev relays carry a binary header before the uevent proper.
	input := append([]byte("libudev\x00\x01\x02\x03"), []byte("\x00add@/devices/foo\x00SUBSYSTEM=video4linux\x00DEVNAME=video1\x00")...)

	event, ok := parseUEvent(input)
	if !ok {
		t.Fatal("parseUEvent failed on libudev-framed message")
	}
	if event.Action != ActionAdd {
		t.Errorf("Action = %q, want %q", event.Action, ActionAdd)
	}
	if event.Path != "/dev/video1" {
		t.Errorf("Path = %q, want %q", event.Path, "/dev/video1")
	}
}

func TestNewMonitor(t *testing.T) {
	m, err := NewMonitor()
	if err != nil {
		t.Skipf("netlink socket unavailable: %v", err)
	}
	defer func() { _ = m.Close() }()

	if m.fd <= 0 {
		t.Errorf("expected valid fd, got %d", m.fd)
	}
	if _, ok := m.subsystems["video4linux"]; !ok {
		t.Error("video4linux subscription missing by default")
	}

	m.Subscribe("usb")
	if _, ok := m.subsystems["usb"]; !ok {
		t.Error("usb subscription missing after Subscribe")
	}
}

func TestMonitorRunCancellation(t *testing.T) {
	m, err := NewMonitor()
	if err != nil {
		t.Skipf("netlink socket unavailable: %v", err)
	}
	defer func() { _ = m.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan Event, 10)
	runErr := m.Run(ctx, events)
	if !errors.Is(runErr, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", runErr)
	}
	if _, open := <-events; open {
		t.Error("events channel not closed after Run returned")
	}
}
