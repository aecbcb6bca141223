//go:build linux

package v4l2

// PixelFormat is a four character code (fourcc) identifying a pixel or
// metadata format. The code is stored little-endian, matching the
// kernel's pixelformat fields.
type PixelFormat uint32

// Common pixel formats.
const (
	// PixFmtYUYV is packed YUV 4:2:2: `yyyyyyyy uuuuuuuu YYYYYYYY vvvvvvvv`.
	PixFmtYUYV PixelFormat = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	// PixFmtUYVY is packed YUV 4:2:2 with swapped luma/chroma order.
	PixFmtUYVY PixelFormat = 'U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24
	// PixFmtMJPEG is Motion JPEG: JPEG images with omitted huffman tables.
	PixFmtMJPEG PixelFormat = 'M' | 'J'<<8 | 'P'<<16 | 'G'<<24
	// PixFmtJPEG is a sequence of regular JPEG still images, decodable
	// with any off-the-shelf JPEG decoder.
	PixFmtJPEG PixelFormat = 'J' | 'P'<<8 | 'E'<<16 | 'G'<<24
	// PixFmtH264 is an H.264 byte stream.
	PixFmtH264 PixelFormat = 'H' | '2'<<8 | '6'<<16 | '4'<<24
	// PixFmtHEVC is an H.265/HEVC byte stream.
	PixFmtHEVC PixelFormat = 'H' | 'E'<<8 | 'V'<<16 | 'C'<<24
	// PixFmtNV12 is planar YUV 4:2:0 with interleaved chroma.
	PixFmtNV12 PixelFormat = 'N' | 'V'<<8 | '1'<<16 | '2'<<24
	// PixFmtGrey is 8-bit greyscale.
	PixFmtGrey PixelFormat = 'G' | 'R'<<8 | 'E'<<16 | 'Y'<<24
	// PixFmtRGB32 is `aaaaaaaa rrrrrrrr gggggggg bbbbbbbb`.
	PixFmtRGB32 PixelFormat = 'R' | 'G'<<8 | 'B'<<16 | '4'<<24
	// PixFmtRGBA32 is `rrrrrrrr gggggggg bbbbbbbb aaaaaaaa`.
	PixFmtRGBA32 PixelFormat = 'A' | 'B'<<8 | '2'<<16 | '4'<<24
	// PixFmtUVC is UVC payload header metadata, delivered on metadata
	// capture streams of USB webcams.
	PixFmtUVC PixelFormat = 'U' | 'V'<<8 | 'C'<<16 | 'H'<<24
)

// FourCC builds a PixelFormat from a 4-character code such as "YUYV".
// Codes shorter than 4 characters are padded with spaces.
func FourCC(code string) PixelFormat {
	var b [4]byte
	copy(b[:], "    ")
	copy(b[:], code)
	return PixelFormat(b[0]) | PixelFormat(b[1])<<8 | PixelFormat(b[2])<<16 | PixelFormat(b[3])<<24
}

// String returns the four character code, for example "MJPG".
func (f PixelFormat) String() string {
	b := []byte{
		byte(f),
		byte(f >> 8),
		byte(f >> 16),
		byte(f >> 24),
	}
	for i, c := range b {
		if c < 0x20 || c > 0x7e {
			b[i] = '.'
		}
	}
	return string(b)
}
