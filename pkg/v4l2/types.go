//go:build linux

package v4l2

import (
	"fmt"
	"strings"
)

// BufType selects which logical stream of a device a request applies to.
type BufType uint32

// Buffer types defined by the V4L2 API.
const (
	BufTypeVideoCapture       BufType = 1
	BufTypeVideoOutput        BufType = 2
	BufTypeVideoOverlay       BufType = 3
	BufTypeVBICapture         BufType = 4
	BufTypeVBIOutput          BufType = 5
	BufTypeSlicedVBICapture   BufType = 6
	BufTypeSlicedVBIOutput    BufType = 7
	BufTypeVideoOutputOverlay BufType = 8
	BufTypeVideoCaptureMplane BufType = 9
	BufTypeVideoOutputMplane  BufType = 10
	BufTypeSDRCapture         BufType = 11
	BufTypeSDROutput          BufType = 12
	BufTypeMetaCapture        BufType = 13
	BufTypeMetaOutput         BufType = 14
)

// String returns the kernel enum name without the V4L2_BUF_TYPE_ prefix.
func (t BufType) String() string {
	switch t {
	case BufTypeVideoCapture:
		return "VIDEO_CAPTURE"
	case BufTypeVideoOutput:
		return "VIDEO_OUTPUT"
	case BufTypeVideoOverlay:
		return "VIDEO_OVERLAY"
	case BufTypeVBICapture:
		return "VBI_CAPTURE"
	case BufTypeVBIOutput:
		return "VBI_OUTPUT"
	case BufTypeSlicedVBICapture:
		return "SLICED_VBI_CAPTURE"
	case BufTypeSlicedVBIOutput:
		return "SLICED_VBI_OUTPUT"
	case BufTypeVideoOutputOverlay:
		return "VIDEO_OUTPUT_OVERLAY"
	case BufTypeVideoCaptureMplane:
		return "VIDEO_CAPTURE_MPLANE"
	case BufTypeVideoOutputMplane:
		return "VIDEO_OUTPUT_MPLANE"
	case BufTypeSDRCapture:
		return "SDR_CAPTURE"
	case BufTypeSDROutput:
		return "SDR_OUTPUT"
	case BufTypeMetaCapture:
		return "META_CAPTURE"
	case BufTypeMetaOutput:
		return "META_OUTPUT"
	default:
		return fmt.Sprintf("BufType(%d)", uint32(t))
	}
}

// isOutput reports whether data flows from the application to the device
// for this buffer type.
func (t BufType) isOutput() bool {
	switch t {
	case BufTypeVideoOutput, BufTypeVBIOutput, BufTypeSlicedVBIOutput,
		BufTypeVideoOutputOverlay, BufTypeVideoOutputMplane,
		BufTypeSDROutput, BufTypeMetaOutput:
		return true
	default:
		return false
	}
}

// Memory selects the buffer exchange mode for streaming I/O.
type Memory uint32

// Memory modes. Only MemoryMmap is implemented by the streaming engine.
const (
	MemoryMmap    Memory = 1
	MemoryUserPtr Memory = 2
	MemoryOverlay Memory = 3
	MemoryDMABuf  Memory = 4
)

// CapFlags is a set of device capability bits.
type CapFlags uint32

// Capability flags.
const (
	CapVideoCapture       CapFlags = 0x00000001
	CapVideoOutput        CapFlags = 0x00000002
	CapVideoOverlay       CapFlags = 0x00000004
	CapVBICapture         CapFlags = 0x00000010
	CapVBIOutput          CapFlags = 0x00000020
	CapSlicedVBICapture   CapFlags = 0x00000040
	CapSlicedVBIOutput    CapFlags = 0x00000080
	CapVideoOutputOverlay CapFlags = 0x00000200
	CapVideoCaptureMplane CapFlags = 0x00001000
	CapVideoOutputMplane  CapFlags = 0x00002000
	CapVideoM2M           CapFlags = 0x00008000
	CapVideoM2MMplane     CapFlags = 0x00004000
	CapSDRCapture         CapFlags = 0x00100000
	CapExtPixFormat       CapFlags = 0x00200000
	CapSDROutput          CapFlags = 0x00400000
	CapMetaCapture        CapFlags = 0x00800000
	CapReadWrite          CapFlags = 0x01000000
	CapStreaming          CapFlags = 0x04000000
	CapMetaOutput         CapFlags = 0x08000000
	CapTouch              CapFlags = 0x10000000
	CapIOMC               CapFlags = 0x20000000
	CapDeviceCaps         CapFlags = 0x80000000
)

// Has reports whether all bits in f are set.
func (c CapFlags) Has(f CapFlags) bool { return c&f == f }

var capFlagNames = []struct {
	flag CapFlags
	name string
}{
	{CapVideoCapture, "VIDEO_CAPTURE"},
	{CapVideoOutput, "VIDEO_OUTPUT"},
	{CapVideoOverlay, "VIDEO_OVERLAY"},
	{CapVBICapture, "VBI_CAPTURE"},
	{CapVBIOutput, "VBI_OUTPUT"},
	{CapSlicedVBICapture, "SLICED_VBI_CAPTURE"},
	{CapSlicedVBIOutput, "SLICED_VBI_OUTPUT"},
	{CapVideoOutputOverlay, "VIDEO_OUTPUT_OVERLAY"},
	{CapVideoCaptureMplane, "VIDEO_CAPTURE_MPLANE"},
	{CapVideoOutputMplane, "VIDEO_OUTPUT_MPLANE"},
	{CapVideoM2M, "VIDEO_M2M"},
	{CapVideoM2MMplane, "VIDEO_M2M_MPLANE"},
	{CapSDRCapture, "SDR_CAPTURE"},
	{CapExtPixFormat, "EXT_PIX_FORMAT"},
	{CapSDROutput, "SDR_OUTPUT"},
	{CapMetaCapture, "META_CAPTURE"},
	{CapReadWrite, "READWRITE"},
	{CapStreaming, "STREAMING"},
	{CapMetaOutput, "META_OUTPUT"},
	{CapTouch, "TOUCH"},
	{CapIOMC, "IO_MC"},
	{CapDeviceCaps, "DEVICE_CAPS"},
}

func (c CapFlags) String() string {
	var names []string
	for _, e := range capFlagNames {
		if c.Has(e.flag) {
			names = append(names, e.name)
			c &^= e.flag
		}
	}
	if c != 0 {
		names = append(names, fmt.Sprintf("0x%08x", uint32(c)))
	}
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}

// Capabilities describes a device as reported by the driver.
type Capabilities struct {
	// Driver is the identifier of the V4L2 driver providing this device,
	// for example "uvcvideo" or "v4l2 loopback".
	Driver string
	// Card is the card or device name.
	Card string
	// BusInfo describes where on the system the device is attached,
	// for example "usb-0000:0a:00.3-2.1".
	BusInfo string
	// Version is the kernel version encoded as in KERNEL_VERSION().
	Version uint32
	// Capabilities are all capabilities of the underlying hardware,
	// some of which may only be reachable through other device nodes.
	Capabilities CapFlags
	// DeviceCaps are the capabilities exposed through this node. Only
	// valid when Capabilities has CapDeviceCaps set.
	DeviceCaps CapFlags
}

// DeviceCapabilities returns the capabilities available through the
// opened device node.
func (c Capabilities) DeviceCapabilities() CapFlags {
	if c.Capabilities.Has(CapDeviceCaps) {
		return c.DeviceCaps
	}
	return c.Capabilities
}

// BufFlag is a set of per-buffer state bits reported by the driver.
type BufFlag uint32

// Buffer flags.
const (
	BufFlagMapped   BufFlag = 0x00000001
	BufFlagQueued   BufFlag = 0x00000002
	BufFlagDone     BufFlag = 0x00000004
	BufFlagKeyframe BufFlag = 0x00000008
	BufFlagPFrame   BufFlag = 0x00000010
	BufFlagBFrame   BufFlag = 0x00000020
	BufFlagError    BufFlag = 0x00000040
	BufFlagTimecode BufFlag = 0x00000100
	BufFlagPrepared BufFlag = 0x00000400
	BufFlagLast     BufFlag = 0x00100000
)

// Field selects the interlacing mode of a video format.
type Field uint32

// Field values.
const (
	FieldAny        Field = 0
	FieldNone       Field = 1
	FieldTop        Field = 2
	FieldBottom     Field = 3
	FieldInterlaced Field = 4
)

// Colorspace identifies the color encoding of a video format.
type Colorspace uint32

// Colorspaces.
const (
	ColorspaceDefault   Colorspace = 0
	ColorspaceSMPTE170M Colorspace = 1
	ColorspaceREC709    Colorspace = 3
	ColorspaceJPEG      Colorspace = 7
	ColorspaceSRGB      Colorspace = 8
	ColorspaceRaw       Colorspace = 11
)

// Fract is a fraction, used for frame intervals and pixel aspect ratios.
type Fract struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the frames per second a frame interval corresponds to.
func (f Fract) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

func (f Fract) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// DeviceInfo describes a discovered V4L2 device node.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       CapFlags
}

// FormatDesc describes one supported pixel format of a stream.
type FormatDesc struct {
	PixelFormat PixelFormat
	Description string
	// Emulated is set when the format is converted in software rather
	// than delivered by the hardware.
	Emulated bool
	// Compressed is set for compressed formats such as MJPG or H264.
	Compressed bool
}

// Resolution is a supported frame size.
type Resolution struct {
	Width  uint32
	Height uint32
}

// InputType identifies the kind of a device input.
type InputType uint32

// Input types.
const (
	InputTypeTuner  InputType = 1
	InputTypeCamera InputType = 2
	InputTypeTouch  InputType = 3
)

// Input describes a device input connector.
type Input struct {
	Index        uint32
	Name         string
	Type         InputType
	AudioSet     uint32
	Tuner        uint32
	Std          uint64
	Status       uint32
	Capabilities uint32
}

// OutputType identifies the kind of a device output.
type OutputType uint32

// Output types.
const (
	OutputTypeModulator        OutputType = 1
	OutputTypeAnalog           OutputType = 2
	OutputTypeAnalogVGAOverlay OutputType = 3
)

// Output describes a device output connector.
type Output struct {
	Index        uint32
	Name         string
	Type         OutputType
	AudioSet     uint32
	Modulator    uint32
	Std          uint64
	Capabilities uint32
}
