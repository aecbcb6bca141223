//go:build linux

package v4l2

import "unsafe"

// Raw kernel structures shared between 32- and 64-bit architectures.
// Layouts must match include/uapi/linux/videodev2.h exactly, including
// field order and padding. Structures whose size or field offsets differ
// between architectures live in videodev2_64bit.go and videodev2_arm.go.

// Compile-time struct size assertions.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2Capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(v4l2Fmtdesc{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2RequestBuffers{})]byte{}
	_ [16]byte  = [unsafe.Sizeof(v4l2Timecode{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2Fract{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2FrmsizeDiscrete{})]byte{}
	_ [24]byte  = [unsafe.Sizeof(v4l2FrmsizeStepwise{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2Frmsizeenum{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(v4l2Frmivalenum{})]byte{}
	_ [48]byte  = [unsafe.Sizeof(v4l2PixFormat{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2MetaFormat{})]byte{}
	_ [40]byte  = [unsafe.Sizeof(v4l2CaptureParm{})]byte{}
	_ [204]byte = [unsafe.Sizeof(v4l2StreamParm{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(v4l2Queryctrl{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2Querymenu{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2Control{})]byte{}
	_ [80]byte  = [unsafe.Sizeof(v4l2Input{})]byte{}
	_ [72]byte  = [unsafe.Sizeof(v4l2Output{})]byte{}
	_ [16]byte  = [unsafe.Sizeof(v4l2Rect{})]byte{}
	_ [32]byte  = [unsafe.Sizeof(v4l2EventSubscription{})]byte{}
	_ [124]byte = [unsafe.Sizeof(v4l2BTTimings{})]byte{}
	_ [132]byte = [unsafe.Sizeof(v4l2DVTimings{})]byte{}
)

// IOCTL constants whose payload size is identical on all supported
// architectures.
const (
	vidiocQuerycap           = 0x80685600
	vidiocEnumFmt            = 0xc0405602
	vidiocReqbufs            = 0xc0145608
	vidiocStreamon           = 0x40045612
	vidiocStreamoff          = 0x40045613
	vidiocGParm              = 0xc0cc5615
	vidiocSParm              = 0xc0cc5616
	vidiocEnuminput          = 0xc050561a
	vidiocGCtrl              = 0xc008561b
	vidiocSCtrl              = 0xc008561c
	vidiocEnumoutput         = 0xc048561e
	vidiocQueryctrl          = 0xc0445624
	vidiocQuerymenu          = 0xc02c5625
	vidiocEnumFramesizes     = 0xc02c564a
	vidiocEnumFrameintervals = 0xc034564b
	vidiocGDVTimings         = 0xc0845658
	vidiocQueryDVTimings     = 0x80845663
	vidiocSubscribeEvent     = 0x4020565a
	vidiocUnsubscribeEvent   = 0x4020565b
)

// Control flags and event types.
const (
	v4l2CtrlFlagNextCtrl = 0x80000000
	v4l2CtrlFlagDisabled = 0x00000001

	v4l2EventSourceChange = 5
)

// Format description flags.
const (
	v4l2FmtFlagCompressed = 0x0001
	v4l2FmtFlagEmulated   = 0x0002
)

// v4l2Capability has size 104 bytes.
type v4l2Capability struct {
	driver       [16]byte  // offset 0
	card         [32]byte  // offset 16
	busInfo      [32]byte  // offset 48
	version      uint32    // offset 80
	capabilities uint32    // offset 84
	deviceCaps   uint32    // offset 88
	reserved     [3]uint32 // offset 92
}

// v4l2Fmtdesc has size 64 bytes.
type v4l2Fmtdesc struct {
	index       uint32    // offset 0
	typ         uint32    // offset 4
	flags       uint32    // offset 8
	description [32]byte  // offset 12
	pixelformat uint32    // offset 44
	mbusCode    uint32    // offset 48
	reserved    [3]uint32 // offset 52
}

// v4l2RequestBuffers has size 20 bytes.
type v4l2RequestBuffers struct {
	count        uint32  // offset 0
	typ          uint32  // offset 4
	memory       uint32  // offset 8
	capabilities uint32  // offset 12
	flags        uint8   // offset 16
	reserved     [3]byte // offset 17
}

// v4l2Timecode has size 16 bytes.
type v4l2Timecode struct {
	typ      uint32  // offset 0
	flags    uint32  // offset 4
	frames   uint8   // offset 8
	seconds  uint8   // offset 9
	minutes  uint8   // offset 10
	hours    uint8   // offset 11
	userbits [4]byte // offset 12
}

// v4l2Fract has size 8 bytes.
type v4l2Fract struct {
	numerator   uint32
	denominator uint32
}

// v4l2FrmsizeDiscrete has size 8 bytes.
type v4l2FrmsizeDiscrete struct {
	width  uint32
	height uint32
}

// v4l2FrmsizeStepwise has size 24 bytes.
type v4l2FrmsizeStepwise struct {
	minWidth   uint32
	maxWidth   uint32
	stepWidth  uint32
	minHeight  uint32
	maxHeight  uint32
	stepHeight uint32
}

// v4l2Frmsizeenum has size 44 bytes.
type v4l2Frmsizeenum struct {
	index       uint32              // offset 0
	pixelFormat uint32              // offset 4
	typ         uint32              // offset 8
	discrete    v4l2FrmsizeDiscrete // offset 12 (union with stepwise)
	_           [16]byte            // padding for stepwise
	reserved    [2]uint32           // offset 36
}

// stepwise returns the stepwise view of the size union.
func (f *v4l2Frmsizeenum) stepwise() *v4l2FrmsizeStepwise {
	return (*v4l2FrmsizeStepwise)(unsafe.Pointer(&f.discrete))
}

// v4l2Frmivalenum has size 52 bytes.
type v4l2Frmivalenum struct {
	index       uint32    // offset 0
	pixelFormat uint32    // offset 4
	width       uint32    // offset 8
	height      uint32    // offset 12
	typ         uint32    // offset 16
	discrete    v4l2Fract // offset 20 (union with stepwise)
	_           [16]byte  // padding for stepwise
	reserved    [2]uint32 // offset 44
}

// v4l2PixFormat has size 48 bytes. Part of the v4l2Format union.
type v4l2PixFormat struct {
	width        uint32 // offset 0
	height       uint32 // offset 4
	pixelformat  uint32 // offset 8
	field        uint32 // offset 12
	bytesperline uint32 // offset 16
	sizeimage    uint32 // offset 20
	colorspace   uint32 // offset 24
	priv         uint32 // offset 28
	flags        uint32 // offset 32
	ycbcrEnc     uint32 // offset 36 (union with hsv_enc)
	quantization uint32 // offset 40
	xferFunc     uint32 // offset 44
}

// v4l2MetaFormat has size 8 bytes. Part of the v4l2Format union.
type v4l2MetaFormat struct {
	dataformat uint32 // offset 0
	buffersize uint32 // offset 4
}

// v4l2Rect has size 16 bytes.
type v4l2Rect struct {
	left   int32
	top    int32
	width  uint32
	height uint32
}

// v4l2CaptureParm has size 40 bytes.
type v4l2CaptureParm struct {
	capability   uint32    // offset 0
	capturemode  uint32    // offset 4
	timeperframe v4l2Fract // offset 8
	extendedmode uint32    // offset 16
	readbuffers  uint32    // offset 20
	reserved     [4]uint32 // offset 24
}

// v4l2StreamParm has size 204 bytes on all supported architectures; the
// union is 200 bytes of 4-byte-aligned data.
type v4l2StreamParm struct {
	typ     uint32          // offset 0
	capture v4l2CaptureParm // offset 4 (union with output parm)
	_       [160]byte       // padding to union size 200
}

// v4l2Queryctrl has size 68 bytes.
type v4l2Queryctrl struct {
	id           uint32    // offset 0
	typ          uint32    // offset 4
	name         [32]byte  // offset 8
	minimum      int32     // offset 40
	maximum      int32     // offset 44
	step         int32     // offset 48
	defaultValue int32     // offset 52
	flags        uint32    // offset 56
	reserved     [2]uint32 // offset 60
}

// v4l2Querymenu has size 44 bytes (the kernel declares it packed; all
// fields are naturally 4-byte aligned here).
type v4l2Querymenu struct {
	id       uint32   // offset 0
	index    uint32   // offset 4
	name     [32]byte // offset 8 (union with 64-bit value)
	reserved uint32   // offset 40
}

// value returns the integer-menu view of the name union.
func (m *v4l2Querymenu) value() int64 {
	return int64(uint64(m.name[0]) | uint64(m.name[1])<<8 | uint64(m.name[2])<<16 |
		uint64(m.name[3])<<24 | uint64(m.name[4])<<32 | uint64(m.name[5])<<40 |
		uint64(m.name[6])<<48 | uint64(m.name[7])<<56)
}

// v4l2Control has size 8 bytes.
type v4l2Control struct {
	id    uint32
	value int32
}

// v4l2Input has size 80 bytes.
type v4l2Input struct {
	index        uint32    // offset 0
	name         [32]byte  // offset 4
	typ          uint32    // offset 36
	audioset     uint32    // offset 40
	tuner        uint32    // offset 44
	std          uint64    // offset 48
	status       uint32    // offset 56
	capabilities uint32    // offset 60
	reserved     [3]uint32 // offset 64
	_            [4]byte   // padding to 80
}

// v4l2Output has size 72 bytes.
type v4l2Output struct {
	index        uint32    // offset 0
	name         [32]byte  // offset 4
	typ          uint32    // offset 36
	audioset     uint32    // offset 40
	modulator    uint32    // offset 44
	std          uint64    // offset 48
	capabilities uint32    // offset 56
	reserved     [3]uint32 // offset 60
}

// v4l2EventSubscription has size 32 bytes.
type v4l2EventSubscription struct {
	typ      uint32    // offset 0
	id       uint32    // offset 4
	flags    uint32    // offset 8
	reserved [5]uint32 // offset 12
}

// v4l2BTTimings has size 124 bytes. The kernel declares the structure
// packed; the 64-bit pixelclock is split into two words so the Go layout
// stays 4-byte aligned on every architecture.
type v4l2BTTimings struct {
	width         uint32    // offset 0
	height        uint32    // offset 4
	interlaced    uint32    // offset 8
	polarities    uint32    // offset 12
	pixelclockLo  uint32    // offset 16
	pixelclockHi  uint32    // offset 20
	hfrontporch   uint32    // offset 24
	hsync         uint32    // offset 28
	hbackporch    uint32    // offset 32
	vfrontporch   uint32    // offset 36
	vsync         uint32    // offset 40
	vbackporch    uint32    // offset 44
	ilVfrontporch uint32    // offset 48
	ilVsync       uint32    // offset 52
	ilVbackporch  uint32    // offset 56
	standards     uint32    // offset 60
	flags         uint32    // offset 64
	pictureAspect v4l2Fract // offset 68
	cea861Vic     uint8     // offset 76
	hdmiVic       uint8     // offset 77
	reserved      [46]byte  // offset 78
}

// pixelclock assembles the split 64-bit pixel clock in Hz.
func (bt *v4l2BTTimings) pixelclock() uint64 {
	return uint64(bt.pixelclockLo) | uint64(bt.pixelclockHi)<<32
}

// v4l2DVTimings has size 132 bytes (packed in the kernel; the union's
// reserved view is 128 bytes, larger than the BT.656/1120 view).
type v4l2DVTimings struct {
	typ uint32        // offset 0
	bt  v4l2BTTimings // offset 4 (union, 128 bytes)
	_   [4]byte       // padding to union size
}
