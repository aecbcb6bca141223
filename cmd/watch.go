package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SludgePhD/LiVid/internal/events"
	"github.com/SludgePhD/LiVid/internal/logging"
	"github.com/SludgePhD/LiVid/internal/systemd"
	"github.com/SludgePhD/LiVid/pkg/hotplug"
	"github.com/SludgePhD/LiVid/pkg/v4l2"
)

// CreateWatchCmd creates the watch command.
func CreateWatchCmd() *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch for video device hotplug events",
		Run: func(_ *cobra.Command, _ []string) {
			logger := logging.GetLogger("watch")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			monitor, err := hotplug.NewMonitor()
			if err != nil {
				logger.Error("Failed to open hotplug monitor", "error", err)
				os.Exit(1)
			}
			defer func() {
				if closeErr := monitor.Close(); closeErr != nil {
					logger.Warn("Failed to close monitor", "error", closeErr)
				}
			}()

			bus := events.New()
			unsubAttach := bus.Subscribe(func(e events.DeviceAttachedEvent) {
				fmt.Printf("%s  attached  %s\n", e.Timestamp, e.Path)
			})
			defer unsubAttach()
			unsubDetach := bus.Subscribe(func(e events.DeviceDetachedEvent) {
				fmt.Printf("%s  detached  %s\n", e.Timestamp, e.Path)
			})
			defer unsubDetach()
			unsubSignal := bus.Subscribe(func(e events.SignalChangedEvent) {
				fmt.Printf("%s  signal    %s %s %dx%d\n", e.Timestamp, e.Path, e.State, e.Width, e.Height)
			})
			defer unsubSignal()

			uevents := make(chan hotplug.Event, 16)
			go func() {
				if runErr := monitor.Run(ctx, uevents); runErr != nil && ctx.Err() == nil {
					logger.Error("Hotplug monitor failed", "error", runErr)
				}
			}()

			systemd.NotifyReady()
			defer systemd.NotifyStopping()

			logger.Info("Watching for device events")
			for ev := range uevents {
				now := time.Now().UTC().Format(time.RFC3339)
				switch ev.Action {
				case hotplug.ActionAdd:
					bus.Publish(events.DeviceAttachedEvent{
						Path:      ev.Path,
						Name:      ev.Name,
						Timestamp: now,
					})
					if probe && ev.Path != "" {
						// Drivers need a moment before the node accepts opens.
						time.Sleep(200 * time.Millisecond)
						probeSignal(bus, ev.Path, now)
					}
				case hotplug.ActionRemove:
					bus.Publish(events.DeviceDetachedEvent{
						Path:      ev.Path,
						Name:      ev.Name,
						Timestamp: now,
					})
				}
			}
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Probe signal status of attached devices")

	return cmd
}

func probeSignal(bus *events.Bus, path string, timestamp string) {
	dev, err := v4l2.Open(path)
	if err != nil {
		return
	}
	defer dev.Close()

	status := dev.SignalStatus()
	if status.State == v4l2.SignalStateNotSupported {
		return
	}
	bus.Publish(events.SignalChangedEvent{
		Path:      path,
		State:     status.State.String(),
		Width:     status.Width,
		Height:    status.Height,
		Timestamp: timestamp,
	})
}
