//go:build linux

// Package hotplug watches for video devices appearing and disappearing.
//
// It listens to kernel uevent broadcasts over a netlink socket, without
// cgo or a libudev dependency, and reports add/remove events for the
// video4linux subsystem.
package hotplug

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"golang.org/x/sys/unix"
)

// Action is the kind of device event.
type Action string

// Actions reported by the kernel.
const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionChange Action = "change"
	ActionBind   Action = "bind"
	ActionUnbind Action = "unbind"
)

// Event is one device attach or detach notification.
type Event struct {
	// Action is what happened to the device.
	Action Action
	// Subsystem is the kernel subsystem, for example "video4linux".
	Subsystem string
	// Name is the device name, for example "video0".
	Name string
	// Path is the device node path, for example "/dev/video0". Empty
	// when the event does not carry a device node.
	Path string
	// Env holds all KEY=VALUE pairs of the uevent.
	Env map[string]string
}

// netlinkKobjectUEvent is the netlink protocol for kernel object events.
const netlinkKobjectUEvent = 15

// Monitor listens for kernel device events.
//
// By default only video4linux events are delivered; additional
// subsystems can be admitted with Subscribe before Run is called.
type Monitor struct {
	fd         int
	subsystems map[string]struct{}
}

// NewMonitor opens the netlink socket and joins the kernel broadcast
// group.
func NewMonitor() (*Monitor, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, netlinkKobjectUEvent)
	if err != nil {
		return nil, err
	}

	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: 1, // Kernel broadcast group
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &Monitor{
		fd:         fd,
		subsystems: map[string]struct{}{"video4linux": {}},
	}, nil
}

// Subscribe admits events from an additional subsystem.
func (m *Monitor) Subscribe(subsystem string) {
	m.subsystems[subsystem] = struct{}{}
}

// Close releases the netlink socket.
func (m *Monitor) Close() error {
	return unix.Close(m.fd)
}

// Run reads events and sends them to the channel until the context is
// cancelled. The channel is closed when Run returns.
func (m *Monitor) Run(ctx context.Context, events chan<- Event) error {
	defer close(events)

	buf := make([]byte, 8192)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// A receive timeout lets the loop observe context cancellation.
		tv := unix.Timeval{Sec: 1}
		if err := unix.SetsockoptTimeval(m.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return err
		}

		n, _, err := unix.Recvfrom(m.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if n == 0 {
			continue
		}

		event, ok := parseUEvent(buf[:n])
		if !ok {
			continue
		}
		if _, admitted := m.subsystems[event.Subsystem]; !admitted {
			continue
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// parseUEvent decodes a kernel uevent message of the form
// "ACTION@KOBJ\0KEY=VALUE\0KEY=VALUE\0...".
func parseUEvent(data []byte) (Event, bool) {
	if len(data) == 0 {
		return Event{}, false
	}

	// udev relays uevents with a binary "libudev" header in front of
	// the key/value section. Skip to the first ACTION@KOBJ line.
	if bytes.HasPrefix(data, []byte("libudev")) {
		for i := 0; i < len(data)-1; i++ {
			if data[i] != 0 {
				continue
			}
			rest := data[i+1:]
			if idx := bytes.IndexByte(rest, '@'); idx > 0 && idx < 20 {
				data = rest
				break
			}
		}
	}

	parts := bytes.Split(data, []byte{0})
	if len(parts) == 0 || len(parts[0]) == 0 {
		return Event{}, false
	}

	header := string(parts[0])
	at := strings.IndexByte(header, '@')
	if at < 1 {
		return Event{}, false
	}

	event := Event{
		Action: Action(header[:at]),
		Env:    make(map[string]string),
	}

	for _, part := range parts[1:] {
		if len(part) == 0 {
			continue
		}
		kv := string(part)
		eq := strings.IndexByte(kv, '=')
		if eq < 1 {
			continue
		}
		key, value := kv[:eq], kv[eq+1:]
		event.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			event.Subsystem = value
		case "DEVNAME":
			event.Name = value
			if strings.HasPrefix(value, "/dev/") {
				event.Path = value
				event.Name = strings.TrimPrefix(value, "/dev/")
			} else {
				event.Path = "/dev/" + value
			}
		}
	}

	return event, true
}
