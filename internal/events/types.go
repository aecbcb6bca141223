package events

// Event type constants for kelindar/event.
const (
	TypeDeviceAttached uint32 = iota + 1
	TypeDeviceDetached
	TypeSignalChanged
	TypeCaptureStarted
	TypeCaptureStopped
	TypeCaptureError
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DeviceAttachedEvent fires when a video device node appears.
type DeviceAttachedEvent struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

func (e DeviceAttachedEvent) Type() uint32 { return TypeDeviceAttached }

// DeviceDetachedEvent fires when a video device node disappears.
type DeviceDetachedEvent struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

func (e DeviceDetachedEvent) Type() uint32 { return TypeDeviceDetached }

// SignalChangedEvent fires when the input signal of a capture device
// changes state, for example an HDMI source being plugged or unplugged.
type SignalChangedEvent struct {
	Path      string `json:"path"`
	State     string `json:"state"`
	Width     uint32 `json:"width,omitempty"`
	Height    uint32 `json:"height,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (e SignalChangedEvent) Type() uint32 { return TypeSignalChanged }

// CaptureStartedEvent fires when a capture session enters streaming.
type CaptureStartedEvent struct {
	Path        string `json:"path"`
	PixelFormat string `json:"pixel_format"`
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
	Buffers     uint32 `json:"buffers"`
	Timestamp   string `json:"timestamp"`
}

func (e CaptureStartedEvent) Type() uint32 { return TypeCaptureStarted }

// CaptureStoppedEvent fires when a capture session ends.
type CaptureStoppedEvent struct {
	Path      string `json:"path"`
	Frames    uint64 `json:"frames"`
	Timestamp string `json:"timestamp"`
}

func (e CaptureStoppedEvent) Type() uint32 { return TypeCaptureStopped }

// CaptureErrorEvent fires when a capture session fails.
type CaptureErrorEvent struct {
	Path      string `json:"path"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }
