//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// kernel abstracts the ioctl/mmap surface of the device driver so the
// request cycle can be driven against a fake driver in tests.
type kernel interface {
	ioctl(fd int, req uint, arg unsafe.Pointer) error
	mmap(fd int, offset int64, length int) ([]byte, error)
	munmap(b []byte) error
}

// hostKernel issues real syscalls against the running kernel.
type hostKernel struct{}

func (hostKernel) ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func (hostKernel) mmap(fd int, offset int64, length int) ([]byte, error) {
	return unix.Mmap(fd, offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

func (hostKernel) munmap(b []byte) error {
	return unix.Munmap(b)
}

func openFD(path string) (int, error) {
	return unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
}

func closeFD(fd int) error {
	return unix.Close(fd)
}

// cstr decodes a fixed-width, zero-padded byte array into a string.
// A missing NUL terminator indicates a struct layout mismatch with the
// running kernel and is reported as ErrMalformedResponse.
func cstr(b []byte) (string, error) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return "", fmt.Errorf("%w: fixed-width string without NUL terminator", ErrMalformedResponse)
	}
	return string(b[:i]), nil
}
