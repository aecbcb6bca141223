package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SludgePhD/LiVid/internal/logging"
	"github.com/SludgePhD/LiVid/pkg/v4l2"
)

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List video4linux devices",
		Run: func(_ *cobra.Command, _ []string) {
			logger := logging.GetLogger("devices")

			devices, err := v4l2.FindDevices()
			if err != nil {
				logger.Error("Failed to enumerate devices", "error", err)
				os.Exit(1)
			}

			if len(devices) == 0 {
				fmt.Println("no video devices found")
				return
			}

			for _, info := range devices {
				fmt.Printf("%s  %s  [%s]\n", info.DevicePath, info.DeviceName, info.DeviceID)
				if !verbose {
					continue
				}

				dev, openErr := v4l2.Open(info.DevicePath)
				if openErr != nil {
					logger.Warn("Failed to open device", "path", info.DevicePath, "error", openErr)
					continue
				}

				caps, capErr := dev.Capabilities()
				if capErr != nil {
					logger.Warn("Failed to query capabilities", "path", info.DevicePath, "error", capErr)
				} else {
					fmt.Printf("    driver: %s\n", caps.Driver)
					fmt.Printf("    bus:    %s\n", caps.BusInfo)
					fmt.Printf("    caps:   %s\n", caps.DeviceCapabilities())
				}

				if status := dev.SignalStatus(); status.State != v4l2.SignalStateNotSupported {
					fmt.Printf("    signal: %s", status.State)
					if status.State == v4l2.SignalStateLocked {
						fmt.Printf(" %dx%d@%.2f", status.Width, status.Height, status.FPS)
					}
					fmt.Println()
				}

				if closeErr := dev.Close(); closeErr != nil {
					logger.Warn("Failed to close device", "path", info.DevicePath, "error", closeErr)
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show driver, capabilities and signal state")

	return cmd
}
