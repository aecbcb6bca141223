//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// Formats enumerates the supported formats of a stream.
//
// bufType must be one of the capture or output buffer types supported by
// the device, for example BufTypeVideoCapture or BufTypeMetaCapture.
func (d *Device) Formats(bufType BufType) ([]FormatDesc, error) {
	var formats []FormatDesc

	for i := uint32(0); ; i++ {
		desc := v4l2Fmtdesc{
			index: i,
			typ:   uint32(bufType),
		}

		if err := d.sys.ioctl(d.fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break // End of enumeration
			}
			return nil, fmt.Errorf("failed to enumerate format %d: %w", i, err)
		}

		name, err := cstr(desc.description[:])
		if err != nil {
			return nil, fmt.Errorf("decoding format description: %w", err)
		}

		formats = append(formats, FormatDesc{
			PixelFormat: PixelFormat(desc.pixelformat),
			Description: name,
			Emulated:    desc.flags&v4l2FmtFlagEmulated != 0,
			Compressed:  desc.flags&v4l2FmtFlagCompressed != 0,
		})
	}

	return formats, nil
}

// FrameSizes returns the supported frame sizes for a given pixel format.
//
// Drivers that support arbitrary sizes report a stepwise or continuous
// range; for those, common resolutions within the range are returned.
func (d *Device) FrameSizes(pixelFormat PixelFormat) ([]Resolution, error) {
	var resolutions []Resolution

	for i := uint32(0); ; i++ {
		frmsize := v4l2Frmsizeenum{
			index:       i,
			pixelFormat: uint32(pixelFormat),
		}

		if err := d.sys.ioctl(d.fd, vidiocEnumFramesizes, unsafe.Pointer(&frmsize)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break // End of enumeration
			}
			// ENOTTY means the device doesn't describe video data for
			// this format (metadata formats, for example).
			if errors.Is(err, syscall.ENOTTY) {
				return []Resolution{}, nil
			}
			return nil, fmt.Errorf("failed to enumerate frame size %d: %w", i, err)
		}

		switch frmsize.typ {
		case v4l2FrmsizeTypeDiscrete:
			resolutions = append(resolutions, Resolution{
				Width:  frmsize.discrete.width,
				Height: frmsize.discrete.height,
			})
		case v4l2FrmsizeTypeContinuous, v4l2FrmsizeTypeStepwise:
			resolutions = append(resolutions, stepwiseResolutions(frmsize.stepwise())...)
			return resolutions, nil // Only one stepwise entry
		}
	}

	return resolutions, nil
}

// FrameIntervals returns the supported frame intervals for a pixel
// format at a given resolution.
func (d *Device) FrameIntervals(pixelFormat PixelFormat, width, height uint32) ([]Fract, error) {
	var intervals []Fract

	for i := uint32(0); ; i++ {
		frmival := v4l2Frmivalenum{
			index:       i,
			pixelFormat: uint32(pixelFormat),
			width:       width,
			height:      height,
		}

		if err := d.sys.ioctl(d.fd, vidiocEnumFrameintervals, unsafe.Pointer(&frmival)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break // End of enumeration
			}
			return nil, fmt.Errorf("failed to enumerate frame interval %d: %w", i, err)
		}

		switch frmival.typ {
		case v4l2FrmivalTypeDiscrete:
			intervals = append(intervals, Fract{
				Numerator:   frmival.discrete.numerator,
				Denominator: frmival.discrete.denominator,
			})
		case v4l2FrmivalTypeContinuous, v4l2FrmivalTypeStepwise:
			intervals = append(intervals, commonFrameIntervals()...)
			return intervals, nil
		}
	}

	return intervals, nil
}

// Frame size and interval types.
const (
	v4l2FrmsizeTypeDiscrete   = 1
	v4l2FrmsizeTypeContinuous = 2
	v4l2FrmsizeTypeStepwise   = 3

	v4l2FrmivalTypeDiscrete   = 1
	v4l2FrmivalTypeContinuous = 2
	v4l2FrmivalTypeStepwise   = 3
)

// stepwiseResolutions returns common resolutions within a stepwise range.
func stepwiseResolutions(stepwise *v4l2FrmsizeStepwise) []Resolution {
	commonResolutions := [][2]uint32{
		{320, 240},   // QVGA
		{640, 480},   // VGA
		{800, 600},   // SVGA
		{1024, 768},  // XGA
		{1280, 720},  // HD
		{1280, 1024}, // SXGA
		{1920, 1080}, // Full HD
		{2560, 1440}, // QHD
		{3840, 2160}, // 4K UHD
	}

	var resolutions []Resolution
	for _, res := range commonResolutions {
		w, h := res[0], res[1]
		if w >= stepwise.minWidth && w <= stepwise.maxWidth &&
			h >= stepwise.minHeight && h <= stepwise.maxHeight {
			resolutions = append(resolutions, Resolution{Width: w, Height: h})
		}
	}

	return resolutions
}

// commonFrameIntervals returns a list of common frame intervals.
func commonFrameIntervals() []Fract {
	return []Fract{
		{1, 60},
		{1, 50},
		{1, 30},
		{1, 25},
		{1, 15},
		{1, 10},
		{1, 5},
	}
}

// Inputs enumerates the device's input connectors.
func (d *Device) Inputs() ([]Input, error) {
	var inputs []Input

	for i := uint32(0); ; i++ {
		raw := v4l2Input{index: i}
		if err := d.sys.ioctl(d.fd, vidiocEnuminput, unsafe.Pointer(&raw)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate input %d: %w", i, err)
		}

		name, err := cstr(raw.name[:])
		if err != nil {
			return nil, fmt.Errorf("decoding input name: %w", err)
		}

		inputs = append(inputs, Input{
			Index:        raw.index,
			Name:         name,
			Type:         InputType(raw.typ),
			AudioSet:     raw.audioset,
			Tuner:        raw.tuner,
			Std:          raw.std,
			Status:       raw.status,
			Capabilities: raw.capabilities,
		})
	}

	return inputs, nil
}

// Outputs enumerates the device's output connectors.
func (d *Device) Outputs() ([]Output, error) {
	var outputs []Output

	for i := uint32(0); ; i++ {
		raw := v4l2Output{index: i}
		if err := d.sys.ioctl(d.fd, vidiocEnumoutput, unsafe.Pointer(&raw)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate output %d: %w", i, err)
		}

		name, err := cstr(raw.name[:])
		if err != nil {
			return nil, fmt.Errorf("decoding output name: %w", err)
		}

		outputs = append(outputs, Output{
			Index:        raw.index,
			Name:         name,
			Type:         OutputType(raw.typ),
			AudioSet:     raw.audioset,
			Modulator:    raw.modulator,
			Std:          raw.std,
			Capabilities: raw.capabilities,
		})
	}

	return outputs, nil
}

// GetFormat reads the format currently in use by a stream. The returned
// Format carries the same buffer-type tag as requested.
func (d *Device) GetFormat(bufType BufType) (Format, error) {
	raw := v4l2Format{typ: uint32(bufType)}
	if err := d.sys.ioctl(d.fd, vidiocGFmt, unsafe.Pointer(&raw)); err != nil {
		return Format{}, fmt.Errorf("failed to get format: %w", errnoErr(err))
	}
	return decodeFormat(&raw, bufType)
}

// SetFormat negotiates a stream's format. The driver adjusts the fields
// of f to the closest values it supports (the buffer-type tag is never
// changed) and the adjusted format is returned.
func (d *Device) SetFormat(f Format) (Format, error) {
	return d.setFormat(vidiocSFmt, f)
}

// TryFormat negotiates like SetFormat but without changing device state.
func (d *Device) TryFormat(f Format) (Format, error) {
	return d.setFormat(vidiocTryFmt, f)
}

func (d *Device) setFormat(req uint, f Format) (Format, error) {
	raw := v4l2Format{}
	if err := encodeFormat(f, &raw); err != nil {
		return Format{}, err
	}
	if err := d.sys.ioctl(d.fd, req, unsafe.Pointer(&raw)); err != nil {
		return Format{}, fmt.Errorf("failed to negotiate format: %w", errnoErr(err))
	}
	return decodeFormat(&raw, f.Type)
}

// VideoCapture puts the device into video capture mode and negotiates a
// pixel format.
//
// The driver is generally allowed to change most properties of the
// requested format, including the dimensions and the pixel format, if
// the provided values are not supported. It may instead report
// ErrUnsupported; v4l2loopback is one driver that does.
func (d *Device) VideoCapture(pix PixFormat) (*VideoCapture, error) {
	f, err := d.SetFormat(Format{Type: BufTypeVideoCapture, Pix: pix})
	if err != nil {
		return nil, err
	}
	return &VideoCapture{dev: d, format: f.Pix}, nil
}

// VideoOutput puts the device into video output mode and negotiates a
// pixel format.
func (d *Device) VideoOutput(pix PixFormat) (*VideoOutput, error) {
	f, err := d.SetFormat(Format{Type: BufTypeVideoOutput, Pix: pix})
	if err != nil {
		return nil, err
	}
	return &VideoOutput{dev: d, format: f.Pix}, nil
}

// MetaCapture puts the device into metadata capture mode and negotiates
// a data format.
func (d *Device) MetaCapture(meta MetaFormat) (*MetaCapture, error) {
	f, err := d.SetFormat(Format{Type: BufTypeMetaCapture, Meta: meta})
	if err != nil {
		return nil, err
	}
	return &MetaCapture{dev: d, format: f.Meta}, nil
}

// VideoCapture is a device configured for video capture.
type VideoCapture struct {
	dev    *Device
	format PixFormat
}

// Format returns the pixel format the driver chose for capturing. This
// may (and usually will) differ from the format that was requested.
func (c *VideoCapture) Format() PixFormat { return c.format }

// Device returns the underlying device handle.
func (c *VideoCapture) Device() *Device { return c.dev }

// SetFrameInterval requests a change to the frame interval and returns
// the interval actually chosen by the driver.
//
// Supported intervals depend on the pixel format and resolution and can
// be enumerated with Device.FrameIntervals.
func (c *VideoCapture) SetFrameInterval(interval Fract) (Fract, error) {
	return c.dev.setFrameInterval(BufTypeVideoCapture, interval)
}

// Read performs a direct read() from the video device.
//
// This only succeeds if the device advertises the CapReadWrite
// capability; otherwise the streaming API must be used.
func (c *VideoCapture) Read(p []byte) (int, error) {
	return c.dev.file.Read(p)
}

// Stream initializes streaming I/O mode with the given number of
// memory-mapped buffers.
//
// Note that some drivers may fail to allocate even low buffer counts;
// v4l2loopback for example seems to be limited to 2 buffers.
func (c *VideoCapture) Stream(bufferCount uint32) (*ReadStream, error) {
	return newReadStream(c.dev, BufTypeVideoCapture, MemoryMmap, bufferCount)
}

// VideoOutput is a device configured for video output.
type VideoOutput struct {
	dev    *Device
	format PixFormat
}

// Format returns the video format chosen by the driver.
func (o *VideoOutput) Format() PixFormat { return o.format }

// Device returns the underlying device handle.
func (o *VideoOutput) Device() *Device { return o.dev }

// Write performs a direct write() on the video device, writing one
// video frame to it.
//
// This only succeeds if the device advertises the CapReadWrite
// capability. Note that some applications do not pick up frames written
// this way to a v4l2loopback device; the streaming API is preferred.
func (o *VideoOutput) Write(p []byte) (int, error) {
	return o.dev.file.Write(p)
}

// Stream initializes streaming I/O mode with the given number of
// memory-mapped buffers.
func (o *VideoOutput) Stream(bufferCount uint32) (*WriteStream, error) {
	return newWriteStream(o.dev, BufTypeVideoOutput, MemoryMmap, bufferCount)
}

// MetaCapture is a device configured for metadata capture.
type MetaCapture struct {
	dev    *Device
	format MetaFormat
}

// Format returns the metadata format the driver chose.
func (m *MetaCapture) Format() MetaFormat { return m.format }

// Device returns the underlying device handle.
func (m *MetaCapture) Device() *Device { return m.dev }

// Stream initializes streaming I/O mode with the given number of
// memory-mapped buffers.
func (m *MetaCapture) Stream(bufferCount uint32) (*ReadStream, error) {
	return newReadStream(m.dev, BufTypeMetaCapture, MemoryMmap, bufferCount)
}

// setFrameInterval issues the stream-parameter request for bufType.
func (d *Device) setFrameInterval(bufType BufType, interval Fract) (Fract, error) {
	parm := v4l2StreamParm{
		typ: uint32(bufType),
		capture: v4l2CaptureParm{
			timeperframe: v4l2Fract{
				numerator:   interval.Numerator,
				denominator: interval.Denominator,
			},
		},
	}
	if err := d.sys.ioctl(d.fd, vidiocSParm, unsafe.Pointer(&parm)); err != nil {
		return Fract{}, fmt.Errorf("failed to set frame interval: %w", errnoErr(err))
	}
	return Fract{
		Numerator:   parm.capture.timeperframe.numerator,
		Denominator: parm.capture.timeperframe.denominator,
	}, nil
}
