//go:build linux

package v4l2

import (
	"errors"
	"syscall"
)

// Errors reported by this package. Driver-level failures that do not map
// to one of these are returned as wrapped syscall.Errno values and should
// be treated as fatal for the affected stream.
var (
	// ErrUnsupported indicates the driver does not implement the
	// requested operation, format, or buffer type.
	ErrUnsupported = errors.New("operation not supported by driver")

	// ErrBusy indicates the resource is already allocated or active,
	// for example buffers already requested on this handle.
	ErrBusy = errors.New("device busy")

	// ErrMalformedResponse indicates the driver returned data outside
	// the known schema, such as an unknown buffer-type discriminant or
	// a fixed-width string without a NUL terminator. This is a layout
	// mismatch with the running kernel and is never guessed at.
	ErrMalformedResponse = errors.New("malformed driver response")

	// ErrWouldBlock indicates a non-blocking operation found no data or
	// no free buffer. It is transient; the caller may retry.
	ErrWouldBlock = errors.New("operation would block")

	// ErrAlreadyActive indicates streaming was started twice.
	ErrAlreadyActive = errors.New("stream already active")

	// ErrNotActive indicates an operation that requires a primed or
	// active stream was called on one that is idle or closed.
	ErrNotActive = errors.New("stream not active")

	// ErrNothingQueued indicates a dequeue with no buffers owned by the
	// driver, which would otherwise block forever.
	ErrNothingQueued = errors.New("no buffers queued")
)

// errnoErr translates an errno from a buffer-protocol ioctl into the
// package error taxonomy. Errnos without a defined meaning pass through
// unchanged.
func errnoErr(err error) error {
	switch {
	case errors.Is(err, syscall.EINVAL), errors.Is(err, syscall.ENOTTY):
		return ErrUnsupported
	case errors.Is(err, syscall.EBUSY):
		return ErrBusy
	case errors.Is(err, syscall.EAGAIN):
		return ErrWouldBlock
	default:
		return err
	}
}
