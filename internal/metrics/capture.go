// Package metrics provides Prometheus metrics for capture sessions.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livid",
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Total frames dequeued from the device",
	}, []string{"device"})

	captureDroppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livid",
		Subsystem: "capture",
		Name:      "dropped_frames_total",
		Help:      "Frames lost by the driver, detected via sequence gaps",
	}, []string{"device"})

	captureBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "livid",
		Subsystem: "capture",
		Name:      "bytes_total",
		Help:      "Total payload bytes dequeued from the device",
	}, []string{"device"})

	captureFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "livid",
		Subsystem: "capture",
		Name:      "fps",
		Help:      "Measured capture rate in frames per second",
	}, []string{"device"})

	captureStreamUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "livid",
		Subsystem: "capture",
		Name:      "stream_up",
		Help:      "1 while the device is streaming, 0 otherwise",
	}, []string{"device"})

	// Local cache so callers can read current values without
	// scraping the registry.
	captureCache   = make(map[string]*CaptureMetrics)
	captureCacheMu sync.RWMutex
)

// CaptureMetrics holds current metric values for a device.
type CaptureMetrics struct {
	Frames        uint64
	DroppedFrames uint64
	Bytes         uint64
	FPS           float64
	StreamUp      bool
}

// AddCaptureFrames adds dequeued frames for a device.
func AddCaptureFrames(device string, n uint64) {
	captureFrames.WithLabelValues(device).Add(float64(n))
	updateCache(device, func(m *CaptureMetrics) { m.Frames += n })
}

// AddCaptureDroppedFrames adds driver-dropped frames for a device.
func AddCaptureDroppedFrames(device string, n uint64) {
	captureDroppedFrames.WithLabelValues(device).Add(float64(n))
	updateCache(device, func(m *CaptureMetrics) { m.DroppedFrames += n })
}

// AddCaptureBytes adds dequeued payload bytes for a device.
func AddCaptureBytes(device string, n uint64) {
	captureBytes.WithLabelValues(device).Add(float64(n))
	updateCache(device, func(m *CaptureMetrics) { m.Bytes += n })
}

// SetCaptureFPS sets the measured capture rate for a device.
func SetCaptureFPS(device string, fps float64) {
	captureFPS.WithLabelValues(device).Set(fps)
	updateCache(device, func(m *CaptureMetrics) { m.FPS = fps })
}

// SetCaptureStreamUp marks a device as streaming or stopped.
func SetCaptureStreamUp(device string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	captureStreamUp.WithLabelValues(device).Set(v)
	updateCache(device, func(m *CaptureMetrics) { m.StreamUp = up })
}

// DeleteCaptureMetrics removes all metrics for a device.
func DeleteCaptureMetrics(device string) {
	captureFrames.DeleteLabelValues(device)
	captureDroppedFrames.DeleteLabelValues(device)
	captureBytes.DeleteLabelValues(device)
	captureFPS.DeleteLabelValues(device)
	captureStreamUp.DeleteLabelValues(device)

	captureCacheMu.Lock()
	delete(captureCache, device)
	captureCacheMu.Unlock()
}

// GetCaptureMetrics returns current metric values for a device.
func GetCaptureMetrics(device string) *CaptureMetrics {
	captureCacheMu.RLock()
	defer captureCacheMu.RUnlock()
	if m, ok := captureCache[device]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllCaptureMetrics returns metrics for all active devices.
func GetAllCaptureMetrics() map[string]*CaptureMetrics {
	captureCacheMu.RLock()
	defer captureCacheMu.RUnlock()
	result := make(map[string]*CaptureMetrics, len(captureCache))
	for dev, m := range captureCache {
		dup := *m
		result[dev] = &dup
	}
	return result
}

func updateCache(device string, update func(*CaptureMetrics)) {
	captureCacheMu.Lock()
	defer captureCacheMu.Unlock()
	m, ok := captureCache[device]
	if !ok {
		m = &CaptureMetrics{}
		captureCache[device] = m
	}
	update(m)
}
