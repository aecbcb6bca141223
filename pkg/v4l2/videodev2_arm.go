//go:build linux && arm

package v4l2

import "unsafe"

// Compile-time struct size assertions.
// These will cause build failures if struct sizes don't match kernel expectations.
var (
	_ [204]byte = [unsafe.Sizeof(v4l2Format{})]byte{}
	_ [40]byte  = [unsafe.Sizeof(v4l2Window{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(v4l2Buffer{})]byte{}
	_ [128]byte = [unsafe.Sizeof(v4l2Event{})]byte{}
)

// IOCTL constants whose payload size differs between architectures,
// encoded for 32-bit ARM kernels.
const (
	vidiocGFmt     = 0xc0cc5604
	vidiocSFmt     = 0xc0cc5605
	vidiocTryFmt   = 0xc0cc5640
	vidiocQuerybuf = 0xc0445609
	vidiocQbuf     = 0xc044560f
	vidiocDqbuf    = 0xc0445611
	vidiocDqevent  = 0x80805659
)

// v4l2Format has size 204 bytes on 32-bit ARM.
type v4l2Format struct {
	typ uint32    // offset 0
	fmt [200]byte // offset 4 - union of pix/win/meta/... formats
}

func (f *v4l2Format) pix() *v4l2PixFormat   { return (*v4l2PixFormat)(unsafe.Pointer(&f.fmt[0])) }
func (f *v4l2Format) win() *v4l2Window      { return (*v4l2Window)(unsafe.Pointer(&f.fmt[0])) }
func (f *v4l2Format) meta() *v4l2MetaFormat { return (*v4l2MetaFormat)(unsafe.Pointer(&f.fmt[0])) }

// v4l2Window has size 40 bytes on 32-bit ARM.
type v4l2Window struct {
	w           v4l2Rect // offset 0
	field       uint32   // offset 16
	chromakey   uint32   // offset 20
	clips       uint32   // offset 24 - userspace pointer, unused here
	clipcount   uint32   // offset 28
	bitmap      uint32   // offset 32 - userspace pointer, unused here
	globalAlpha uint8    // offset 36
	_           [3]byte  // padding to 40
}

// v4l2Buffer has size 68 bytes on 32-bit ARM.
type v4l2Buffer struct {
	index     uint32       // offset 0
	typ       uint32       // offset 4
	bytesused uint32       // offset 8
	flags     uint32       // offset 12
	field     uint32       // offset 16
	tvSec     int32        // offset 20 - struct timeval
	tvUsec    int32        // offset 24
	timecode  v4l2Timecode // offset 28
	sequence  uint32       // offset 44
	memory    uint32       // offset 48
	mOffset   uint32       // offset 52 - union m: mmap offset / userptr / fd
	length    uint32       // offset 56
	reserved2 uint32       // offset 60
	requestFD int32        // offset 64
}

// v4l2Event has size 128 bytes on 32-bit ARM (the 64-bit members of the
// event union force 8-byte alignment and trailing padding).
type v4l2Event struct {
	typ       uint32    // offset 0
	_         [4]byte   // padding to union alignment
	u         [64]byte  // offset 8 - union containing src_change at offset 0
	pending   uint32    // offset 72
	sequence  uint32    // offset 76
	timestamp [8]byte   // offset 80 - struct timespec
	id        uint32    // offset 88
	reserved  [8]uint32 // offset 92
	_         [4]byte   // padding to 128
}

// srcChangeChanges extracts the changes field from the event union.
func (e *v4l2Event) srcChangeChanges() uint32 {
	return uint32(e.u[0]) | uint32(e.u[1])<<8 | uint32(e.u[2])<<16 | uint32(e.u[3])<<24
}
