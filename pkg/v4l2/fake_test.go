//go:build linux

package v4l2

import (
	"io"
	"log/slog"
	"syscall"
	"unsafe"
)

// fakeDriver implements the kernel seam, interpreting the request codes
// the way a V4L2 driver would. Tests drive the full buffer protocol
// against it without a device node.
type fakeDriver struct {
	caps v4l2Capability

	// maxBuffers caps what a buffer request is granted. Zero grants
	// exactly what was asked for.
	maxBuffers uint32
	bufSize    uint32

	// completions are the frame payloads delivered on dequeue, in
	// order. An empty list means EAGAIN, like a non-blocking device
	// with no frame ready.
	completions [][]byte

	// echoFormatType overrides the buffer type echoed by format
	// requests. Zero echoes the requested type.
	echoFormatType uint32

	// formats are served by format enumeration, controls by control
	// enumeration.
	formats  []fakeFormat
	controls []v4l2Queryctrl

	// munmapErr injects an unmap failure.
	munmapErr error

	allocated uint32
	allocType uint32
	queued    []uint32
	streaming bool
	seq       uint32
	mappings  map[uint32][]byte

	streamonCalls  int
	streamoffCalls int
	mmapCalls      int
	munmapCalls    int
	freeCalls      int

	// written records the payload of each buffer queued on an output
	// stream, captured at queue time.
	written [][]byte
}

// fakeFormat is one enumerable format of the fake driver.
type fakeFormat struct {
	pixelFormat PixelFormat
	description string
	flags       uint32
}

func newFakeDriver(bufSize uint32) *fakeDriver {
	return &fakeDriver{
		bufSize:  bufSize,
		mappings: make(map[uint32][]byte),
	}
}

// complete appends a frame payload for a later dequeue to deliver.
func (f *fakeDriver) complete(payload []byte) {
	f.completions = append(f.completions, payload)
}

func (f *fakeDriver) ioctl(fd int, req uint, arg unsafe.Pointer) error {
	switch req {
	case vidiocQuerycap:
		*(*v4l2Capability)(arg) = f.caps
		return nil

	case vidiocReqbufs:
		r := (*v4l2RequestBuffers)(arg)
		if r.count == 0 {
			f.allocated = 0
			f.queued = nil
			f.freeCalls++
			return nil
		}
		granted := r.count
		if f.maxBuffers != 0 && granted > f.maxBuffers {
			granted = f.maxBuffers
		}
		r.count = granted
		f.allocated = granted
		f.allocType = r.typ
		f.queued = nil
		return nil

	case vidiocQuerybuf:
		b := (*v4l2Buffer)(arg)
		if b.index >= f.allocated {
			return syscall.EINVAL
		}
		b.length = f.bufSize
		b.mOffset = b.index * f.bufSize
		b.flags = uint32(BufFlagMapped)
		return nil

	case vidiocQbuf:
		b := (*v4l2Buffer)(arg)
		if b.index >= f.allocated {
			return syscall.EINVAL
		}
		if BufType(b.typ).isOutput() {
			payload := make([]byte, b.bytesused)
			copy(payload, f.mappings[b.index*f.bufSize])
			f.written = append(f.written, payload)
		}
		f.queued = append(f.queued, b.index)
		return nil

	case vidiocDqbuf:
		b := (*v4l2Buffer)(arg)
		if !f.streaming || len(f.queued) == 0 {
			return syscall.EINVAL
		}
		index := f.queued[0]
		if BufType(b.typ).isOutput() {
			f.queued = f.queued[1:]
			b.index = index
			b.bytesused = 0
			b.sequence = f.seq
			f.seq++
			return nil
		}
		if len(f.completions) == 0 {
			return syscall.EAGAIN
		}
		payload := f.completions[0]
		f.completions = f.completions[1:]
		f.queued = f.queued[1:]
		copy(f.mappings[index*f.bufSize], payload)
		b.index = index
		b.bytesused = uint32(len(payload))
		b.flags = uint32(BufFlagMapped | BufFlagDone)
		b.sequence = f.seq
		f.seq++
		return nil

	case vidiocStreamon:
		f.streaming = true
		f.streamonCalls++
		return nil

	case vidiocStreamoff:
		f.streaming = false
		f.streamoffCalls++
		f.queued = nil
		return nil

	case vidiocEnumFmt:
		desc := (*v4l2Fmtdesc)(arg)
		if int(desc.index) >= len(f.formats) {
			return syscall.EINVAL
		}
		ff := f.formats[desc.index]
		desc.flags = ff.flags
		desc.pixelformat = uint32(ff.pixelFormat)
		copy(desc.description[:], ff.description)
		return nil

	case vidiocQueryctrl:
		q := (*v4l2Queryctrl)(arg)
		id := q.id &^ uint32(v4l2CtrlFlagNextCtrl)
		next := q.id&uint32(v4l2CtrlFlagNextCtrl) != 0
		for _, c := range f.controls {
			if (next && c.id > id) || (!next && c.id == id) {
				*q = c
				return nil
			}
		}
		return syscall.EINVAL

	case vidiocGFmt, vidiocSFmt, vidiocTryFmt:
		raw := (*v4l2Format)(arg)
		if f.echoFormatType != 0 {
			raw.typ = f.echoFormatType
		}
		return nil

	default:
		return syscall.ENOTTY
	}
}

func (f *fakeDriver) mmap(fd int, offset int64, length int) ([]byte, error) {
	b := make([]byte, length)
	f.mappings[uint32(offset)] = b
	f.mmapCalls++
	return b, nil
}

func (f *fakeDriver) munmap(b []byte) error {
	f.munmapCalls++
	return f.munmapErr
}

// newTestDevice wires a Device to a fake driver without opening a node.
func newTestDevice(sys kernel) *Device {
	return &Device{
		fd:  3,
		sys: sys,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
