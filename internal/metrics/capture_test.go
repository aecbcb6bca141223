package metrics

import (
	"sync"
	"testing"
)

func TestCaptureMetricsCache(t *testing.T) {
	device := "/dev/video9"

	// Clean state
	DeleteCaptureMetrics(device)

	// Initially should return nil
	if m := GetCaptureMetrics(device); m != nil {
		t.Error("expected nil for unknown device")
	}

	AddCaptureFrames(device, 30)
	AddCaptureDroppedFrames(device, 2)
	AddCaptureBytes(device, 4096)
	SetCaptureFPS(device, 29.97)
	SetCaptureStreamUp(device, true)

	m := GetCaptureMetrics(device)
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	if m.Frames != 30 {
		t.Errorf("Frames = %v, want 30", m.Frames)
	}
	if m.DroppedFrames != 2 {
		t.Errorf("DroppedFrames = %v, want 2", m.DroppedFrames)
	}
	if m.Bytes != 4096 {
		t.Errorf("Bytes = %v, want 4096", m.Bytes)
	}
	if m.FPS != 29.97 {
		t.Errorf("FPS = %v, want 29.97", m.FPS)
	}
	if !m.StreamUp {
		t.Error("StreamUp = false, want true")
	}

	// Counters accumulate
	AddCaptureFrames(device, 10)
	if got := GetCaptureMetrics(device).Frames; got != 40 {
		t.Errorf("Frames after second add = %v, want 40", got)
	}

	// Verify returned copy is independent
	m.FPS = 999
	if m2 := GetCaptureMetrics(device); m2.FPS != 29.97 {
		t.Errorf("cache was modified, FPS = %v, want 29.97", m2.FPS)
	}

	// Clean up
	DeleteCaptureMetrics(device)
	if deleted := GetCaptureMetrics(device); deleted != nil {
		t.Error("expected nil after delete")
	}
}

func TestGetAllCaptureMetrics(t *testing.T) {
	DeleteCaptureMetrics("/dev/video0")
	DeleteCaptureMetrics("/dev/video1")

	SetCaptureFPS("/dev/video0", 25.0)
	SetCaptureFPS("/dev/video1", 60.0)

	all := GetAllCaptureMetrics()
	if len(all) < 2 {
		t.Fatalf("expected at least 2 devices, got %d", len(all))
	}

	if all["/dev/video0"] == nil || all["/dev/video0"].FPS != 25.0 {
		t.Errorf("/dev/video0 FPS = %v, want 25.0", all["/dev/video0"])
	}
	if all["/dev/video1"] == nil || all["/dev/video1"].FPS != 60.0 {
		t.Errorf("/dev/video1 FPS = %v, want 60.0", all["/dev/video1"])
	}

	// Verify returned map is independent
	all["/dev/video0"].FPS = 999
	fresh := GetAllCaptureMetrics()
	if fresh["/dev/video0"].FPS != 25.0 {
		t.Errorf("cache was modified")
	}

	DeleteCaptureMetrics("/dev/video0")
	DeleteCaptureMetrics("/dev/video1")
}

func TestCaptureMetricsConcurrency(t *testing.T) {
	device := "/dev/video-concurrent"
	DeleteCaptureMetrics(device)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(val float64) {
			defer wg.Done()
			AddCaptureFrames(device, 1)
			SetCaptureFPS(device, val)
			_ = GetCaptureMetrics(device)
			_ = GetAllCaptureMetrics()
		}(float64(i))
	}
	wg.Wait()

	m := GetCaptureMetrics(device)
	if m == nil {
		t.Fatal("expected non-nil metrics after concurrent access")
	}
	if m.Frames != 100 {
		t.Errorf("Frames = %v, want 100", m.Frames)
	}

	DeleteCaptureMetrics(device)
}
