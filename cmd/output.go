package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/SludgePhD/LiVid/internal/logging"
	"github.com/SludgePhD/LiVid/pkg/v4l2"
)

// CreateOutputCmd creates the output command.
func CreateOutputCmd() *cobra.Command {
	var device string
	var pixelFormat string
	var width, height uint32
	var buffers uint32
	var fps uint32
	var loop bool

	cmd := &cobra.Command{
		Use:   "output <file>",
		Short: "Feed raw frames from a file into an output device",
		Long: `Reads raw frames from a file and queues them into a video output
device, for example a v4l2loopback node. The file must contain
concatenated frames matching the negotiated format's image size.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			logger := logging.GetLogger("output")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dev, err := v4l2.Open(device)
			if err != nil {
				logger.Error("Failed to open device", "path", device, "error", err)
				os.Exit(1)
			}
			defer func() {
				if closeErr := dev.Close(); closeErr != nil {
					logger.Warn("Failed to close device", "error", closeErr)
				}
			}()

			output, err := dev.VideoOutput(v4l2.NewPixFormat(width, height, v4l2.FourCC(pixelFormat)))
			if err != nil {
				logger.Error("Failed to negotiate output format", "error", err)
				os.Exit(1)
			}
			format := output.Format()
			if format.SizeImage == 0 {
				logger.Error("Driver reported zero image size")
				os.Exit(1)
			}
			logger.Info("Format negotiated",
				"format", format.PixelFormat.String(),
				"width", format.Width,
				"height", format.Height,
				"frame_size", format.SizeImage)

			file, err := os.Open(args[0])
			if err != nil {
				logger.Error("Failed to open input file", "error", err)
				os.Exit(1)
			}
			defer file.Close()

			stream, err := output.Stream(buffers)
			if err != nil {
				logger.Error("Failed to set up stream", "error", err)
				os.Exit(1)
			}
			defer func() {
				if closeErr := stream.Close(); closeErr != nil {
					logger.Warn("Failed to close stream", "error", closeErr)
				}
			}()

			interval := time.Second / time.Duration(fps)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			var sent uint64
			for {
				select {
				case <-ctx.Done():
					logger.Info("Output stopped", "frames", sent)
					return
				case <-ticker.C:
				}

				err = stream.Enqueue(func(buf []byte) (int, error) {
					if len(buf) < int(format.SizeImage) {
						return 0, fmt.Errorf("buffer %d bytes, need %d", len(buf), format.SizeImage)
					}
					frame := buf[:format.SizeImage]
					_, readErr := io.ReadFull(file, frame)
					if errors.Is(readErr, io.EOF) && loop {
						if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
							return 0, seekErr
						}
						_, readErr = io.ReadFull(file, frame)
					}
					if readErr != nil {
						return 0, readErr
					}
					return int(format.SizeImage), nil
				})
				if err != nil {
					if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
						logger.Info("End of input", "frames", sent)
						return
					}
					logger.Error("Failed to queue frame", "error", err)
					os.Exit(1)
				}
				sent++

				// Recycle one buffer once the queue is saturated.
				if sent >= uint64(stream.BufferCount()) {
					if _, reclaimErr := stream.Reclaim(); reclaimErr != nil &&
						!errors.Is(reclaimErr, v4l2.ErrNothingQueued) {
						logger.Error("Failed to reclaim buffer", "error", reclaimErr)
						os.Exit(1)
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "/dev/video0", "Output device path")
	cmd.Flags().StringVar(&pixelFormat, "pixel-format", "YUYV", "Pixel format fourcc")
	cmd.Flags().Uint32Var(&width, "width", 1280, "Frame width")
	cmd.Flags().Uint32Var(&height, "height", 720, "Frame height")
	cmd.Flags().Uint32Var(&buffers, "buffers", defaultBufferCount, "Number of driver buffers")
	cmd.Flags().Uint32Var(&fps, "fps", 30, "Playback rate in frames per second")
	cmd.Flags().BoolVar(&loop, "loop", false, "Restart from the beginning at end of file")

	return cmd
}
