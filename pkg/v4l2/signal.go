//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SignalState represents the state of a video signal.
type SignalState int

// Signal states, roughly ordered from worst to best.
const (
	SignalStateNoDevice     SignalState = -1
	SignalStateNoLink       SignalState = 0 // No cable connected
	SignalStateNoSignal     SignalState = 1 // Cable connected, no signal
	SignalStateUnstable     SignalState = 2 // Signal present but unstable
	SignalStateLocked       SignalState = 3 // Signal locked and stable
	SignalStateOutOfRange   SignalState = 4 // Signal out of supported range
	SignalStateNotSupported SignalState = 5 // Device doesn't support DV timings
)

func (s SignalState) String() string {
	switch s {
	case SignalStateNoDevice:
		return "no-device"
	case SignalStateNoLink:
		return "no-link"
	case SignalStateNoSignal:
		return "no-signal"
	case SignalStateUnstable:
		return "unstable"
	case SignalStateLocked:
		return "locked"
	case SignalStateOutOfRange:
		return "out-of-range"
	case SignalStateNotSupported:
		return "not-supported"
	default:
		return fmt.Sprintf("SignalState(%d)", int(s))
	}
}

// SignalStatus contains detailed signal information for capture devices
// with a digital video input, such as HDMI grabbers.
type SignalStatus struct {
	State      SignalState
	Width      uint32
	Height     uint32
	FPS        float64
	Interlaced bool
}

// SignalStatus queries the current DV timings and classifies the input
// signal. Devices without DV timings support (webcams, loopback
// devices) report SignalStateNotSupported.
func (d *Device) SignalStatus() SignalStatus {
	timings := v4l2DVTimings{}
	err := d.sys.ioctl(d.fd, vidiocGDVTimings, unsafe.Pointer(&timings))

	if err == nil {
		bt := &timings.bt
		if bt.width > 0 && bt.height > 0 && bt.pixelclock() > 0 {
			return SignalStatus{
				State:      SignalStateLocked,
				Width:      bt.width,
				Height:     bt.height,
				FPS:        calculateFPS(bt),
				Interlaced: bt.interlaced != 0,
			}
		}
		return SignalStatus{State: SignalStateNoSignal}
	}

	switch {
	case errors.Is(err, syscall.ENOLINK):
		return SignalStatus{State: SignalStateNoLink}
	case errors.Is(err, syscall.ENOLCK):
		return SignalStatus{State: SignalStateUnstable}
	case errors.Is(err, syscall.ERANGE):
		return SignalStatus{State: SignalStateOutOfRange}
	case errors.Is(err, syscall.ENOTTY), errors.Is(err, syscall.EINVAL):
		return SignalStatus{State: SignalStateNotSupported}
	default:
		return SignalStatus{State: SignalStateNoSignal}
	}
}

// QueryDVTimings asks the driver to detect the timings of the incoming
// signal and returns them without applying them.
func (d *Device) QueryDVTimings() (SignalStatus, error) {
	timings := v4l2DVTimings{}
	if err := d.sys.ioctl(d.fd, vidiocQueryDVTimings, unsafe.Pointer(&timings)); err != nil {
		return SignalStatus{}, fmt.Errorf("failed to query DV timings: %w", errnoErr(err))
	}
	bt := &timings.bt
	return SignalStatus{
		State:      SignalStateLocked,
		Width:      bt.width,
		Height:     bt.height,
		FPS:        calculateFPS(bt),
		Interlaced: bt.interlaced != 0,
	}, nil
}

// WaitForSourceChange blocks until the driver signals a source change
// event or the timeout elapses. It returns the change flags on success
// and 0 on timeout.
//
// Devices that do not support events return ErrUnsupported.
func (d *Device) WaitForSourceChange(timeoutMs int) (uint32, error) {
	sub := v4l2EventSubscription{
		typ: v4l2EventSourceChange,
	}

	if err := d.sys.ioctl(d.fd, vidiocSubscribeEvent, unsafe.Pointer(&sub)); err != nil {
		if errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) {
			return 0, fmt.Errorf("source change events: %w", ErrUnsupported)
		}
		return 0, err
	}
	defer func() {
		_ = d.sys.ioctl(d.fd, vidiocUnsubscribeEvent, unsafe.Pointer(&sub))
	}()

	// V4L2 events are signaled on the exception fd set.
	var exceptFds unix.FdSet
	exceptFds.Set(d.fd)

	var tv *unix.Timeval
	if timeoutMs > 0 {
		t := unix.NsecToTimeval(int64(timeoutMs) * 1e6)
		tv = &t
	}

	n, err := unix.Select(d.fd+1, nil, nil, &exceptFds, tv)
	if err != nil {
		return 0, fmt.Errorf("waiting for event: %w", err)
	}
	if n == 0 {
		return 0, nil // Timeout
	}

	event := v4l2Event{}
	if err := d.sys.ioctl(d.fd, vidiocDqevent, unsafe.Pointer(&event)); err != nil {
		return 0, fmt.Errorf("failed to dequeue event: %w", errnoErr(err))
	}

	return event.srcChangeChanges(), nil
}

// calculateFPS calculates the frame rate from DV timings.
func calculateFPS(bt *v4l2BTTimings) float64 {
	if bt.pixelclock() == 0 {
		return 0
	}

	totalWidth := uint64(bt.width + bt.hfrontporch + bt.hsync + bt.hbackporch)
	totalHeight := uint64(bt.height + bt.vfrontporch + bt.vsync + bt.vbackporch)

	if bt.interlaced != 0 {
		totalHeight /= 2
	}

	if totalWidth == 0 || totalHeight == 0 {
		return 0
	}

	return float64(bt.pixelclock()) / float64(totalWidth*totalHeight)
}
