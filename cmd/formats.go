package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SludgePhD/LiVid/internal/logging"
	"github.com/SludgePhD/LiVid/pkg/v4l2"
)

// CreateFormatsCmd creates the formats command.
func CreateFormatsCmd() *cobra.Command {
	var showControls bool

	cmd := &cobra.Command{
		Use:   "formats <device>",
		Short: "Show supported formats, frame sizes and rates of a device",
		Args:  cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			logger := logging.GetLogger("formats")

			dev, err := v4l2.Open(args[0])
			if err != nil {
				logger.Error("Failed to open device", "path", args[0], "error", err)
				os.Exit(1)
			}
			defer func() {
				if closeErr := dev.Close(); closeErr != nil {
					logger.Warn("Failed to close device", "error", closeErr)
				}
			}()

			caps, err := dev.Capabilities()
			if err != nil {
				logger.Error("Failed to query capabilities", "error", err)
				os.Exit(1)
			}
			fmt.Printf("%s (%s)\n", caps.Card, caps.Driver)

			bufType := v4l2.BufTypeVideoCapture
			if !caps.DeviceCapabilities().Has(v4l2.CapVideoCapture) &&
				caps.DeviceCapabilities().Has(v4l2.CapVideoOutput) {
				bufType = v4l2.BufTypeVideoOutput
			}

			printFormats(dev, bufType, logger)

			if inputs, inErr := dev.Inputs(); inErr == nil && len(inputs) > 0 {
				fmt.Println("inputs:")
				for _, in := range inputs {
					fmt.Printf("  %d: %s\n", in.Index, in.Name)
				}
			}

			if showControls {
				printControls(dev, logger)
			}
		},
	}

	cmd.Flags().BoolVar(&showControls, "controls", false, "Also list device controls")

	return cmd
}

func printFormats(dev *v4l2.Device, bufType v4l2.BufType, logger *slog.Logger) {
	formats, err := dev.Formats(bufType)
	if err != nil {
		logger.Warn("Failed to enumerate formats", "error", err)
		return
	}

	for _, desc := range formats {
		flags := ""
		if desc.Compressed {
			flags += " compressed"
		}
		if desc.Emulated {
			flags += " emulated"
		}
		fmt.Printf("%s  %s%s\n", desc.PixelFormat, desc.Description, flags)

		sizes, sizeErr := dev.FrameSizes(desc.PixelFormat)
		if sizeErr != nil {
			logger.Warn("Failed to enumerate frame sizes", "format", desc.PixelFormat.String(), "error", sizeErr)
			continue
		}
		for _, size := range sizes {
			fmt.Printf("  %dx%d:", size.Width, size.Height)
			intervals, ivErr := dev.FrameIntervals(desc.PixelFormat, size.Width, size.Height)
			if ivErr != nil {
				fmt.Println()
				continue
			}
			for _, iv := range intervals {
				fmt.Printf(" %.4gfps", iv.FPS())
			}
			fmt.Println()
		}
	}
}

func printControls(dev *v4l2.Device, logger *slog.Logger) {
	controls, err := dev.Controls()
	if err != nil {
		logger.Warn("Failed to enumerate controls", "error", err)
		return
	}
	if len(controls) == 0 {
		return
	}

	fmt.Println("controls:")
	for _, desc := range controls {
		fmt.Printf("  %s (%s): min=%d max=%d step=%d default=%d\n",
			desc.Name, desc.Type, desc.Minimum, desc.Maximum, desc.Step, desc.Default)
		if desc.Type == v4l2.CtrlTypeMenu || desc.Type == v4l2.CtrlTypeIntegerMenu {
			items, menuErr := dev.MenuItems(desc)
			if menuErr != nil {
				continue
			}
			for _, item := range items {
				if item.Name != "" {
					fmt.Printf("    %d: %s\n", item.Index, item.Name)
				} else {
					fmt.Printf("    %d: %d\n", item.Index, item.Value)
				}
			}
		}
	}
}
