//go:build linux

package v4l2

import (
	"fmt"
	"time"
)

// PixFormat describes a single-planar video format.
type PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  PixelFormat
	Field        Field
	BytesPerLine uint32
	SizeImage    uint32
	Colorspace   Colorspace
}

// NewPixFormat returns a PixFormat with the given dimensions and pixel
// format. The remaining fields are left for the driver to fill in
// during negotiation.
func NewPixFormat(width, height uint32, pixelFormat PixelFormat) PixFormat {
	return PixFormat{Width: width, Height: height, PixelFormat: pixelFormat, Field: FieldNone}
}

func (f PixFormat) String() string {
	return fmt.Sprintf("%dx%d %s (stride %d, %d bytes)", f.Width, f.Height, f.PixelFormat, f.BytesPerLine, f.SizeImage)
}

// MetaFormat describes a metadata capture or output format.
type MetaFormat struct {
	DataFormat PixelFormat
	BufferSize uint32
}

// NewMetaFormat returns a MetaFormat with the given data format. The
// buffer size is chosen by the driver during negotiation.
func NewMetaFormat(dataFormat PixelFormat) MetaFormat {
	return MetaFormat{DataFormat: dataFormat}
}

func (f MetaFormat) String() string {
	return fmt.Sprintf("%s (%d bytes)", f.DataFormat, f.BufferSize)
}

// Window describes an overlay window format.
type Window struct {
	Left      int32
	Top       int32
	Width     uint32
	Height    uint32
	Field     Field
	ChromaKey uint32
}

// Format is a stream format, tagged by buffer type. Exactly one of the
// variant fields is meaningful, selected by Type: Pix for video capture
// and output streams, Meta for metadata streams, Win for overlays.
type Format struct {
	Type BufType
	Pix  PixFormat
	Meta MetaFormat
	Win  Window
}

// encodeFormat writes f into the raw format structure. The buffer-type
// tag is always written consistent with f.Type. Variants this package
// cannot express (such as multi-planar formats) report ErrUnsupported.
func encodeFormat(f Format, raw *v4l2Format) error {
	*raw = v4l2Format{typ: uint32(f.Type)}
	switch f.Type {
	case BufTypeVideoCapture, BufTypeVideoOutput:
		*raw.pix() = v4l2PixFormat{
			width:        f.Pix.Width,
			height:       f.Pix.Height,
			pixelformat:  uint32(f.Pix.PixelFormat),
			field:        uint32(f.Pix.Field),
			bytesperline: f.Pix.BytesPerLine,
			sizeimage:    f.Pix.SizeImage,
			colorspace:   uint32(f.Pix.Colorspace),
		}
	case BufTypeMetaCapture, BufTypeMetaOutput:
		*raw.meta() = v4l2MetaFormat{
			dataformat: uint32(f.Meta.DataFormat),
			buffersize: f.Meta.BufferSize,
		}
	case BufTypeVideoOverlay, BufTypeVideoOutputOverlay:
		win := raw.win()
		*win = v4l2Window{}
		win.w = v4l2Rect{left: f.Win.Left, top: f.Win.Top, width: f.Win.Width, height: f.Win.Height}
		win.field = uint32(f.Win.Field)
		win.chromakey = f.Win.ChromaKey
	default:
		return fmt.Errorf("%w: buffer type %s", ErrUnsupported, f.Type)
	}
	return nil
}

// decodeFormat reads the raw format structure back into a Format. The
// driver must echo the requested buffer type; any other tag, or a tag
// outside the known set, is a protocol violation and reported as
// ErrMalformedResponse rather than guessed at.
func decodeFormat(raw *v4l2Format, want BufType) (Format, error) {
	got := BufType(raw.typ)
	if got < BufTypeVideoCapture || got > BufTypeMetaOutput {
		return Format{}, fmt.Errorf("%w: unknown buffer type discriminant %d", ErrMalformedResponse, raw.typ)
	}
	if got != want {
		return Format{}, fmt.Errorf("%w: requested buffer type %s, driver returned %s", ErrMalformedResponse, want, got)
	}

	f := Format{Type: got}
	switch got {
	case BufTypeVideoCapture, BufTypeVideoOutput:
		pix := raw.pix()
		f.Pix = PixFormat{
			Width:        pix.width,
			Height:       pix.height,
			PixelFormat:  PixelFormat(pix.pixelformat),
			Field:        Field(pix.field),
			BytesPerLine: pix.bytesperline,
			SizeImage:    pix.sizeimage,
			Colorspace:   Colorspace(pix.colorspace),
		}
	case BufTypeMetaCapture, BufTypeMetaOutput:
		meta := raw.meta()
		f.Meta = MetaFormat{
			DataFormat: PixelFormat(meta.dataformat),
			BufferSize: meta.buffersize,
		}
	case BufTypeVideoOverlay, BufTypeVideoOutputOverlay:
		win := raw.win()
		f.Win = Window{
			Left:      win.w.left,
			Top:       win.w.top,
			Width:     win.w.width,
			Height:    win.w.height,
			Field:     Field(win.field),
			ChromaKey: win.chromakey,
		}
	default:
		return Format{}, fmt.Errorf("%w: buffer type %s", ErrUnsupported, got)
	}
	return f, nil
}

// decodeCapability converts the raw capability record. Missing NUL
// terminators in the fixed-width strings indicate a layout mismatch and
// surface as ErrMalformedResponse.
func decodeCapability(raw *v4l2Capability) (Capabilities, error) {
	driver, err := cstr(raw.driver[:])
	if err != nil {
		return Capabilities{}, fmt.Errorf("decoding driver name: %w", err)
	}
	card, err := cstr(raw.card[:])
	if err != nil {
		return Capabilities{}, fmt.Errorf("decoding card name: %w", err)
	}
	busInfo, err := cstr(raw.busInfo[:])
	if err != nil {
		return Capabilities{}, fmt.Errorf("decoding bus info: %w", err)
	}
	return Capabilities{
		Driver:       driver,
		Card:         card,
		BusInfo:      busInfo,
		Version:      raw.version,
		Capabilities: CapFlags(raw.capabilities),
		DeviceCaps:   CapFlags(raw.deviceCaps),
	}, nil
}

// BufferInfo is the decoded buffer descriptor returned by the driver
// from query and dequeue requests.
type BufferInfo struct {
	Index     uint32
	Type      BufType
	Memory    Memory
	BytesUsed uint32
	Flags     BufFlag
	Field     Field
	Sequence  uint32
	// Timestamp is the driver-reported capture time, usually measured
	// against the monotonic clock.
	Timestamp time.Duration
	// Offset and Length describe the byte range to map over the device
	// handle for this buffer.
	Offset uint32
	Length uint32
}

// encodeBuffer writes a buffer descriptor for queue/query requests.
func encodeBuffer(info BufferInfo, raw *v4l2Buffer) {
	*raw = v4l2Buffer{
		index:     info.Index,
		typ:       uint32(info.Type),
		bytesused: info.BytesUsed,
		memory:    uint32(info.Memory),
	}
}

// decodeBuffer reads the driver's view of a buffer back out.
func decodeBuffer(raw *v4l2Buffer) BufferInfo {
	return BufferInfo{
		Index:     raw.index,
		Type:      BufType(raw.typ),
		Memory:    Memory(raw.memory),
		BytesUsed: raw.bytesused,
		Flags:     BufFlag(raw.flags),
		Field:     Field(raw.field),
		Sequence:  raw.sequence,
		Timestamp: time.Duration(raw.tvSec)*time.Second + time.Duration(raw.tvUsec)*time.Microsecond,
		Offset:    raw.mOffset,
		Length:    raw.length,
	}
}
