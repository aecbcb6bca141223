// Package collectors feeds capture session observations into the
// Prometheus metrics.
package collectors

import (
	"log/slog"
	"sync"
	"time"

	"github.com/SludgePhD/LiVid/internal/metrics"
)

// fpsWindow is how often the measured frame rate gauge is refreshed.
const fpsWindow = time.Second

// CaptureCollector tracks per-frame observations for one device and
// publishes frame, drop, byte, and FPS metrics. Drops are inferred
// from gaps in the driver sequence numbers.
type CaptureCollector struct {
	logger *slog.Logger
	device string

	now func() time.Time

	mu          sync.Mutex
	started     bool
	lastSeq     uint32
	haveSeq     bool
	windowStart time.Time
	windowCount int
	stopOnce    sync.Once
}

// NewCaptureCollector creates a collector for the given device path.
func NewCaptureCollector(device string) *CaptureCollector {
	return &CaptureCollector{
		logger: slog.With("component", "capture_collector", "device", device),
		device: device,
		now:    time.Now,
	}
}

// Start marks the stream as up.
func (c *CaptureCollector) Start() {
	c.mu.Lock()
	c.started = true
	c.windowStart = c.now()
	c.windowCount = 0
	c.mu.Unlock()
	metrics.SetCaptureStreamUp(c.device, true)
}

// ObserveFrame records one dequeued frame.
func (c *CaptureCollector) ObserveFrame(sequence uint32, size uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics.AddCaptureFrames(c.device, 1)
	metrics.AddCaptureBytes(c.device, uint64(size))

	if c.haveSeq && sequence > c.lastSeq+1 {
		gap := uint64(sequence - c.lastSeq - 1)
		metrics.AddCaptureDroppedFrames(c.device, gap)
		c.logger.Debug("Sequence gap", "expected", c.lastSeq+1, "got", sequence)
	}
	c.lastSeq = sequence
	c.haveSeq = true

	c.windowCount++
	if elapsed := c.now().Sub(c.windowStart); elapsed >= fpsWindow {
		metrics.SetCaptureFPS(c.device, float64(c.windowCount)/elapsed.Seconds())
		c.windowStart = c.now()
		c.windowCount = 0
	}
}

// Stop marks the stream as down and removes the device metrics.
func (c *CaptureCollector) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.started = false
		c.mu.Unlock()
		metrics.SetCaptureStreamUp(c.device, false)
		metrics.DeleteCaptureMetrics(c.device)
	})
}
