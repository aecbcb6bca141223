//go:build linux && (amd64 || arm64)

package v4l2

import "unsafe"

// Compile-time struct size assertions.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [208]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [56]byte  = [unsafe.Sizeof(v4l2Window{})]byte{}
	_ [88]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
	_ [136]byte = [unsafe.Sizeof(v4l2Event{})]byte{}
)

// IOCTL constants whose payload size differs between architectures,
// encoded for 64-bit kernels.
const (
	vidiocGFmt     = 0xc0d05604
	vidiocSFmt     = 0xc0d05605
	vidiocTryFmt   = 0xc0d05640
	vidiocQuerybuf = 0xc0585609
	vidiocQbuf     = 0xc058560f
	vidiocDqbuf    = 0xc0585611
	vidiocDqevent  = 0x80885659
)

// v4l2Format has size 208 bytes. The union is 200 bytes and 8-byte
// aligned because the overlay window variant contains pointers.
type v4l2Format struct {
	typ uint32    // offset 0
	_   [4]byte   // padding to union alignment
	fmt [200]byte // offset 8 - union of pix/win/meta/... formats
}

func (f *v4l2Format) pix() *v4l2PixFormat   { return (*v4l2PixFormat)(unsafe.Pointer(&f.fmt[0])) }
func (f *v4l2Format) win() *v4l2Window      { return (*v4l2Window)(unsafe.Pointer(&f.fmt[0])) }
func (f *v4l2Format) meta() *v4l2MetaFormat { return (*v4l2MetaFormat)(unsafe.Pointer(&f.fmt[0])) }

// v4l2Window has size 56 bytes on 64-bit kernels.
type v4l2Window struct {
	w           v4l2Rect // offset 0
	field       uint32   // offset 16
	chromakey   uint32   // offset 20
	clips       uint64   // offset 24 - userspace pointer, unused here
	clipcount   uint32   // offset 32
	_           [4]byte  // padding
	bitmap      uint64   // offset 40 - userspace pointer, unused here
	globalAlpha uint8    // offset 48
	_           [7]byte  // padding to 56
}

// v4l2Buffer has size 88 bytes on 64-bit kernels.
type v4l2Buffer struct {
	index     uint32        // offset 0
	typ       uint32        // offset 4
	bytesused uint32        // offset 8
	flags     uint32        // offset 12
	field     uint32        // offset 16
	_         [4]byte       // padding to timeval alignment
	tvSec     int64         // offset 24 - struct timeval
	tvUsec    int64         // offset 32
	timecode  v4l2Timecode  // offset 40
	sequence  uint32        // offset 56
	memory    uint32        // offset 60
	mOffset   uint32        // offset 64 - union m: mmap offset / userptr / fd
	_         [4]byte       // padding to union size
	length    uint32        // offset 72
	reserved2 uint32        // offset 76
	requestFD int32         // offset 80
	_         [4]byte       // padding to 88
}

// v4l2Event has size 136 bytes on 64-bit kernels.
type v4l2Event struct {
	typ       uint32    // offset 0
	_         [4]byte   // padding to union alignment
	u         [64]byte  // offset 8 - union containing src_change at offset 0
	pending   uint32    // offset 72
	sequence  uint32    // offset 76
	timestamp [16]byte  // offset 80 - struct timespec
	id        uint32    // offset 96
	reserved  [8]uint32 // offset 100
	_         [4]byte   // padding to 136
}

// srcChangeChanges extracts the changes field from the event union.
func (e *v4l2Event) srcChangeChanges() uint32 {
	return uint32(e.u[0]) | uint32(e.u[1])<<8 | uint32(e.u[2])<<16 | uint32(e.u[3])<<24
}
