//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API:
// device discovery, capability and format queries, control access, and a
// zero-copy memory-mapped streaming engine.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Discovery
//
// Use FindDevices to discover all V4L2 devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Format Negotiation
//
// Open a device, then put it into capture or output mode with a desired
// format. The driver adjusts the format to the closest supported values;
// the negotiated result is what counts:
//
//	dev, _ := v4l2.Open("/dev/video0")
//	cap, _ := dev.VideoCapture(v4l2.NewPixFormat(1280, 720, v4l2.PixFmtMJPEG))
//	fmt.Println("negotiated:", cap.Format())
//
// # Streaming
//
// Streaming I/O exchanges memory-mapped buffers with the driver instead
// of copying frame data through read/write. A ReadStream dequeues filled
// buffers and hands each one to a caller-supplied handler exactly once:
//
//	stream, _ := cap.Stream(2)
//	defer stream.Close()
//	err = stream.Run(func(f *v4l2.Frame) v4l2.Verdict {
//	    process(f.Bytes())
//	    return v4l2.Continue
//	})
//
// A WriteStream works the other way around: Enqueue hands a free buffer
// to a caller-supplied writer and submits the result to the driver.
//
// Buffer regions are owned by exactly one party at a time: user code,
// the stream, or the driver. The handler/writer view is only valid for
// the duration of the callback; a buffer submitted to the driver must
// not be touched until the driver returns it.
//
// A stream is owned by a single goroutine. Buffer-oriented requests on
// one device handle must be externally serialized if shared.
package v4l2
