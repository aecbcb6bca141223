package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SludgePhD/LiVid/internal/config"
	"github.com/SludgePhD/LiVid/internal/events"
	"github.com/SludgePhD/LiVid/internal/logging"
	"github.com/SludgePhD/LiVid/internal/metrics/collectors"
	"github.com/SludgePhD/LiVid/internal/metrics/exporters"
	"github.com/SludgePhD/LiVid/internal/profiles"
	"github.com/SludgePhD/LiVid/internal/systemd"
	"github.com/SludgePhD/LiVid/pkg/v4l2"
)

const defaultBufferCount = 4

// captureSettings is a fully resolved capture request.
type captureSettings struct {
	device   string
	pix      v4l2.PixFormat
	buffers  uint32
	interval v4l2.Fract
}

// captureOptions are the capture command settings, loadable from the
// config file and LIVID_ environment on top of the flag defaults.
type captureOptions struct {
	Config       string `toml:"-"`
	Profile      string `toml:"capture.profile" env:"CAPTURE_PROFILE"`
	ProfilesFile string `toml:"capture.profiles_file" env:"CAPTURE_PROFILES_FILE"`
	Device       string `toml:"capture.device" env:"CAPTURE_DEVICE"`
	PixelFormat  string `toml:"capture.pixel_format" env:"CAPTURE_PIXEL_FORMAT"`
	Width        uint32 `toml:"capture.width" env:"CAPTURE_WIDTH"`
	Height       uint32 `toml:"capture.height" env:"CAPTURE_HEIGHT"`
	Buffers      uint32 `toml:"capture.buffers" env:"CAPTURE_BUFFERS"`
	FrameRate    string `toml:"capture.frame_rate" env:"CAPTURE_FRAME_RATE"`
	Count        uint64 `toml:"-"`
	Out          string `toml:"capture.out" env:"CAPTURE_OUT"`
	MetricsAddr  string `toml:"capture.metrics_addr" env:"CAPTURE_METRICS_ADDR"`
}

// CreateCaptureCmd creates the capture command. configFile points at
// the root command's --config value.
func CreateCaptureCmd(configFile *string) *cobra.Command {
	var opts captureOptions

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture frames from a device into files",
		Long: `Captures frames through memory-mapped streaming I/O and writes
each frame to a file in the output directory. The capture request comes
either from flags or from a named profile in the profiles file; profile
edits are picked up while running and restart the capture.`,
		Run: func(cmd *cobra.Command, _ []string) {
			logger := logging.GetLogger("capture")

			opts.Config = *configFile
			if err := config.LoadConfig(&opts, cmd); err != nil {
				logger.Error("Failed to load configuration", "error", err)
				os.Exit(1)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loadSettings := func() (captureSettings, error) {
				if opts.Profile == "" {
					return settingsFromFlags(opts)
				}
				return settingsFromProfile(opts.ProfilesFile, opts.Profile)
			}

			settings, err := loadSettings()
			if err != nil {
				logger.Error("Invalid capture request", "error", err)
				os.Exit(1)
			}

			if opts.MetricsAddr != "" {
				go func() {
					if serveErr := exporters.Serve(ctx, opts.MetricsAddr); serveErr != nil {
						logger.Warn("Metrics server failed", "addr", opts.MetricsAddr, "error", serveErr)
					}
				}()
			}

			bus := events.New()
			unsub := subscribeCaptureLog(bus, logger)
			defer unsub()

			systemd.NotifyReady()
			systemd.NotifyStatus(fmt.Sprintf("capturing from %s", settings.device))
			defer systemd.NotifyStopping()

			// Profile edits restart the capture with fresh settings.
			reload := make(chan captureSettings, 1)
			if opts.Profile != "" {
				watcher := config.NewWatcher(
					opts.ProfilesFile,
					func(string) (captureSettings, error) { return loadSettings() },
					logger,
					config.WithDebounce[captureSettings](500*time.Millisecond),
				)
				watcher.OnReload(func(fresh captureSettings) {
					select {
					case reload <- fresh:
					default:
					}
				})
				if watchErr := watcher.Start(); watchErr != nil {
					logger.Warn("Profile watcher failed, hot-reload disabled", "error", watchErr)
				} else {
					defer func() { _ = watcher.Stop() }()
				}
			}

			for {
				err = runCapture(ctx, settings, opts.Out, opts.Count, reload, bus, logger)
				if err != nil {
					bus.Publish(events.CaptureErrorEvent{
						Path:      settings.device,
						Error:     err.Error(),
						Timestamp: time.Now().UTC().Format(time.RFC3339),
					})
					logger.Error("Capture failed", "error", err)
					os.Exit(1)
				}

				select {
				case fresh := <-reload:
					logger.Info("Profile changed, restarting capture")
					settings = fresh
					continue
				default:
				}
				return
			}
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "Capture profile name")
	cmd.Flags().StringVar(&opts.ProfilesFile, "profiles-file", "profiles.toml", "Path to profiles file")
	cmd.Flags().StringVarP(&opts.Device, "device", "d", "/dev/video0", "Device path or stable ID")
	cmd.Flags().StringVar(&opts.PixelFormat, "pixel-format", "YUYV", "Pixel format fourcc")
	cmd.Flags().Uint32Var(&opts.Width, "width", 1280, "Frame width")
	cmd.Flags().Uint32Var(&opts.Height, "height", 720, "Frame height")
	cmd.Flags().Uint32Var(&opts.Buffers, "buffers", defaultBufferCount, "Number of driver buffers")
	cmd.Flags().StringVar(&opts.FrameRate, "frame-rate", "", "Frame rate as FPS or NUM/DENOM")
	cmd.Flags().Uint64VarP(&opts.Count, "count", "n", 0, "Stop after this many frames (0 = run until interrupted)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", ".", "Output directory for frame files")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Expose prometheus metrics on this address")

	return cmd
}

func settingsFromFlags(opts captureOptions) (captureSettings, error) {
	p := profiles.Profile{
		Name:        "flags",
		Device:      opts.Device,
		PixelFormat: opts.PixelFormat,
		Width:       opts.Width,
		Height:      opts.Height,
		Buffers:     opts.Buffers,
		FrameRate:   opts.FrameRate,
	}
	return settingsFrom(p)
}

func settingsFromProfile(profilesFile, name string) (captureSettings, error) {
	store := profiles.NewTOML(profilesFile)
	if err := store.Load(); err != nil {
		return captureSettings{}, err
	}
	p, ok := store.Get(name)
	if !ok {
		return captureSettings{}, fmt.Errorf("profile %q not found in %s", name, profilesFile)
	}
	return settingsFrom(p)
}

func settingsFrom(p profiles.Profile) (captureSettings, error) {
	if err := p.Validate(); err != nil {
		return captureSettings{}, err
	}
	interval, err := p.FrameInterval()
	if err != nil {
		return captureSettings{}, err
	}

	device := p.Device
	if !strings.HasPrefix(device, "/") {
		resolved, resolveErr := v4l2.GetDevicePathByID(device)
		if resolveErr != nil {
			return captureSettings{}, fmt.Errorf("resolving device %q: %w", device, resolveErr)
		}
		device = resolved
	}

	bufferCount := p.Buffers
	if bufferCount == 0 {
		bufferCount = defaultBufferCount
	}

	return captureSettings{
		device:   device,
		pix:      p.PixFormat(),
		buffers:  bufferCount,
		interval: interval,
	}, nil
}

// runCapture opens the device and streams frames until count is
// reached, the context is canceled, or new settings arrive on reload.
func runCapture(
	ctx context.Context,
	settings captureSettings,
	outDir string,
	count uint64,
	reload chan captureSettings,
	bus *events.Bus,
	logger *slog.Logger,
) error {
	dev, err := v4l2.Open(settings.device)
	if err != nil {
		return fmt.Errorf("opening %s: %w", settings.device, err)
	}
	defer func() {
		if closeErr := dev.Close(); closeErr != nil {
			logger.Warn("Failed to close device", "error", closeErr)
		}
	}()

	capture, err := dev.VideoCapture(settings.pix)
	if err != nil {
		return fmt.Errorf("negotiating format: %w", err)
	}
	negotiated := capture.Format()
	logger.Info("Format negotiated",
		"format", negotiated.PixelFormat.String(),
		"width", negotiated.Width,
		"height", negotiated.Height)

	if settings.interval != (v4l2.Fract{}) {
		actual, fpsErr := capture.SetFrameInterval(settings.interval)
		if fpsErr != nil {
			logger.Warn("Failed to set frame rate", "error", fpsErr)
		} else {
			logger.Info("Frame rate set", "fps", actual.FPS())
		}
	}

	stream, err := capture.Stream(settings.buffers)
	if err != nil {
		return fmt.Errorf("setting up stream: %w", err)
	}
	defer func() {
		if closeErr := stream.Close(); closeErr != nil {
			logger.Warn("Failed to close stream", "error", closeErr)
		}
	}()

	if err = os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	collector := collectors.NewCaptureCollector(settings.device)
	collector.Start()
	defer collector.Stop()

	bus.Publish(events.CaptureStartedEvent{
		Path:        settings.device,
		PixelFormat: negotiated.PixelFormat.String(),
		Width:       negotiated.Width,
		Height:      negotiated.Height,
		Buffers:     stream.BufferCount(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})

	var written uint64
	var frameErr error
	err = stream.Run(func(frame *v4l2.Frame) v4l2.Verdict {
		collector.ObserveFrame(frame.Sequence, uint32(len(frame.Bytes())))

		name := filepath.Join(outDir, fmt.Sprintf("frame-%06d.raw", written))
		if frameErr = os.WriteFile(name, frame.Bytes(), 0o644); frameErr != nil {
			return v4l2.Stop
		}
		written++

		if count > 0 && written >= count {
			return v4l2.Stop
		}
		select {
		case <-ctx.Done():
			return v4l2.Stop
		case fresh := <-reload:
			// Hand the settings back for the outer loop; a newer
			// value arriving meanwhile wins.
			select {
			case reload <- fresh:
			default:
			}
			return v4l2.Stop
		default:
			return v4l2.Continue
		}
	})

	bus.Publish(events.CaptureStoppedEvent{
		Path:      settings.device,
		Frames:    written,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	if frameErr != nil {
		return fmt.Errorf("writing frame: %w", frameErr)
	}
	if err != nil && !errors.Is(err, v4l2.ErrWouldBlock) {
		return err
	}
	return nil
}

func subscribeCaptureLog(bus *events.Bus, logger *slog.Logger) func() {
	unsubStart := bus.Subscribe(func(e events.CaptureStartedEvent) {
		logger.Info("Capture started",
			"device", e.Path, "format", e.PixelFormat,
			"width", e.Width, "height", e.Height, "buffers", e.Buffers)
	})
	unsubStop := bus.Subscribe(func(e events.CaptureStoppedEvent) {
		logger.Info("Capture stopped", "device", e.Path, "frames", e.Frames)
	})
	unsubErr := bus.Subscribe(func(e events.CaptureErrorEvent) {
		logger.Error("Capture error", "device", e.Path, "error", e.Error)
	})
	return func() {
		unsubStart()
		unsubStop()
		unsubErr()
	}
}
