//go:build linux

package v4l2

import (
	"testing"
)

func TestFormatsEnumeration(t *testing.T) {
	f := newFakeDriver(4096)
	f.formats = []fakeFormat{
		{pixelFormat: PixFmtYUYV, description: "YUYV 4:2:2"},
		{pixelFormat: PixFmtMJPEG, description: "Motion-JPEG", flags: v4l2FmtFlagCompressed},
		{pixelFormat: PixFmtNV12, description: "Y/UV 4:2:0", flags: v4l2FmtFlagEmulated},
	}
	dev := newTestDevice(f)

	formats, err := dev.Formats(BufTypeVideoCapture)
	if err != nil {
		t.Fatalf("Formats: %v", err)
	}
	if len(formats) != 3 {
		t.Fatalf("got %d formats, want 3", len(formats))
	}

	if formats[0].PixelFormat != PixFmtYUYV || formats[0].Description != "YUYV 4:2:2" {
		t.Errorf("formats[0] = %+v", formats[0])
	}
	if !formats[1].Compressed {
		t.Error("MJPG not marked compressed")
	}
	if formats[1].Emulated {
		t.Error("MJPG wrongly marked emulated")
	}
	if !formats[2].Emulated {
		t.Error("NV12 not marked emulated")
	}
}

func TestFormatsEnumerationEmpty(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	formats, err := dev.Formats(BufTypeVideoCapture)
	if err != nil {
		t.Fatalf("Formats: %v", err)
	}
	if len(formats) != 0 {
		t.Errorf("got %d formats, want 0", len(formats))
	}
}

func TestVideoCaptureNegotiation(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	capture, err := dev.VideoCapture(NewPixFormat(1280, 720, PixFmtYUYV))
	if err != nil {
		t.Fatalf("VideoCapture: %v", err)
	}

	got := capture.Format()
	if got.Width != 1280 || got.Height != 720 {
		t.Errorf("Format() = %s, want 1280x720", got)
	}
	if got.PixelFormat != PixFmtYUYV {
		t.Errorf("Format().PixelFormat = %s, want YUYV", got.PixelFormat)
	}
}

func TestMetaCaptureNegotiation(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	meta, err := dev.MetaCapture(NewMetaFormat(PixFmtUVC))
	if err != nil {
		t.Fatalf("MetaCapture: %v", err)
	}
	if meta.Format().DataFormat != PixFmtUVC {
		t.Errorf("Format().DataFormat = %s, want UVCH", meta.Format().DataFormat)
	}
}

func TestControlsEnumeration(t *testing.T) {
	brightness := v4l2Queryctrl{
		id:           uint32(CtrlBrightness),
		typ:          uint32(CtrlTypeInteger),
		minimum:      -64,
		maximum:      64,
		step:         1,
		defaultValue: 0,
	}
	copy(brightness.name[:], "Brightness")

	disabled := v4l2Queryctrl{
		id:    uint32(CtrlContrast),
		typ:   uint32(CtrlTypeInteger),
		flags: v4l2CtrlFlagDisabled,
	}
	copy(disabled.name[:], "Contrast")

	powerLine := v4l2Queryctrl{
		id:      uint32(CtrlPowerLineFrequency),
		typ:     uint32(CtrlTypeMenu),
		maximum: 2,
	}
	copy(powerLine.name[:], "Power Line Frequency")

	f := newFakeDriver(4096)
	f.controls = []v4l2Queryctrl{brightness, disabled, powerLine}
	dev := newTestDevice(f)

	controls, err := dev.Controls()
	if err != nil {
		t.Fatalf("Controls: %v", err)
	}
	// The disabled control is skipped.
	if len(controls) != 2 {
		t.Fatalf("got %d controls, want 2", len(controls))
	}
	if controls[0].Name != "Brightness" || controls[0].Minimum != -64 || controls[0].Maximum != 64 {
		t.Errorf("controls[0] = %+v", controls[0])
	}
	if controls[1].Type != CtrlTypeMenu {
		t.Errorf("controls[1].Type = %s, want MENU", controls[1].Type)
	}
}

func TestStepwiseResolutions(t *testing.T) {
	stepwise := &v4l2FrmsizeStepwise{
		minWidth:  320,
		maxWidth:  1920,
		minHeight: 240,
		maxHeight: 1080,
	}

	resolutions := stepwiseResolutions(stepwise)
	if len(resolutions) == 0 {
		t.Fatal("no resolutions within range")
	}
	for _, r := range resolutions {
		if r.Width < 320 || r.Width > 1920 || r.Height < 240 || r.Height > 1080 {
			t.Errorf("resolution %dx%d outside the stepwise range", r.Width, r.Height)
		}
	}
	// 4K must be excluded, VGA included.
	for _, r := range resolutions {
		if r.Width == 3840 {
			t.Error("resolution above the maximum was returned")
		}
	}
	found := false
	for _, r := range resolutions {
		if r.Width == 640 && r.Height == 480 {
			found = true
		}
	}
	if !found {
		t.Error("640x480 missing from stepwise range")
	}
}
