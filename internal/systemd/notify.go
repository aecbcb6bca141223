// Package systemd reports service state to the service manager when
// running under systemd. Outside of systemd every call is a no-op.
package systemd

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady signals that the service finished starting up.
func NotifyReady() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
}

// NotifyStopping signals that the service began shutting down.
func NotifyStopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// NotifyStatus publishes a human-readable status line.
func NotifyStatus(status string) {
	_, _ = daemon.SdNotify(false, fmt.Sprintf("STATUS=%s", status))
}
