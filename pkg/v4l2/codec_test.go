//go:build linux

package v4l2

import (
	"errors"
	"syscall"
	"testing"
)

func TestFormatRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		format Format
	}{
		{
			name: "video capture",
			format: Format{
				Type: BufTypeVideoCapture,
				Pix: PixFormat{
					Width:        1920,
					Height:       1080,
					PixelFormat:  PixFmtYUYV,
					Field:        FieldNone,
					BytesPerLine: 3840,
					SizeImage:    3840 * 1080,
					Colorspace:   ColorspaceSRGB,
				},
			},
		},
		{
			name: "video output",
			format: Format{
				Type: BufTypeVideoOutput,
				Pix:  NewPixFormat(640, 480, PixFmtMJPEG),
			},
		},
		{
			name: "meta capture",
			format: Format{
				Type: BufTypeMetaCapture,
				Meta: MetaFormat{DataFormat: PixFmtUVC, BufferSize: 256},
			},
		},
		{
			name: "overlay window",
			format: Format{
				Type: BufTypeVideoOverlay,
				Win:  Window{Left: 10, Top: 20, Width: 320, Height: 240, Field: FieldAny},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw v4l2Format
			if err := encodeFormat(tt.format, &raw); err != nil {
				t.Fatalf("encodeFormat: %v", err)
			}
			if BufType(raw.typ) != tt.format.Type {
				t.Errorf("encoded tag = %d, want %d", raw.typ, tt.format.Type)
			}

			got, err := decodeFormat(&raw, tt.format.Type)
			if err != nil {
				t.Fatalf("decodeFormat: %v", err)
			}
			if got != tt.format {
				t.Errorf("round trip = %+v, want %+v", got, tt.format)
			}
		})
	}
}

func TestDecodeFormatMalformed(t *testing.T) {
	tests := []struct {
		name    string
		typ     uint32
		want    BufType
		wantErr error
	}{
		{
			name:    "unknown discriminant zero",
			typ:     0,
			want:    BufTypeVideoCapture,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "unknown discriminant out of range",
			typ:     99,
			want:    BufTypeVideoCapture,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "driver changed the tag",
			typ:     uint32(BufTypeVideoOutput),
			want:    BufTypeVideoCapture,
			wantErr: ErrMalformedResponse,
		},
		{
			name:    "valid but unhandled variant",
			typ:     uint32(BufTypeVBICapture),
			want:    BufTypeVBICapture,
			wantErr: ErrUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := v4l2Format{typ: tt.typ}
			_, err := decodeFormat(&raw, tt.want)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("decodeFormat = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetFormatTagMismatch(t *testing.T) {
	f := newFakeDriver(4096)
	f.echoFormatType = 99
	dev := newTestDevice(f)

	_, err := dev.GetFormat(BufTypeVideoCapture)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("GetFormat with corrupted tag = %v, want ErrMalformedResponse", err)
	}
}

func TestEncodeFormatUnsupportedVariant(t *testing.T) {
	var raw v4l2Format
	err := encodeFormat(Format{Type: BufTypeSDRCapture}, &raw)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("encodeFormat for SDR = %v, want ErrUnsupported", err)
	}
}

func TestCstr(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    string
		wantErr bool
	}{
		{
			name: "terminated string",
			in:   []byte{'u', 'v', 'c', 0, 0, 0},
			want: "uvc",
		},
		{
			name: "empty string",
			in:   []byte{0, 0, 0},
			want: "",
		},
		{
			name:    "missing terminator",
			in:      []byte{'a', 'b', 'c'},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cstr(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Errorf("cstr = %v, want ErrMalformedResponse", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("cstr: %v", err)
			}
			if got != tt.want {
				t.Errorf("cstr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrnoTranslation(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{
			name: "EINVAL means unsupported",
			in:   syscall.EINVAL,
			want: ErrUnsupported,
		},
		{
			name: "ENOTTY means unsupported",
			in:   syscall.ENOTTY,
			want: ErrUnsupported,
		},
		{
			name: "EBUSY means busy",
			in:   syscall.EBUSY,
			want: ErrBusy,
		},
		{
			name: "EAGAIN means would block",
			in:   syscall.EAGAIN,
			want: ErrWouldBlock,
		},
		{
			name: "unknown errno passes through",
			in:   syscall.EIO,
			want: syscall.EIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errnoErr(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("errnoErr(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeCapability(t *testing.T) {
	raw := v4l2Capability{
		version:      0x00060b05,
		capabilities: uint32(CapVideoCapture | CapStreaming | CapDeviceCaps),
		deviceCaps:   uint32(CapVideoCapture | CapStreaming),
	}
	copy(raw.driver[:], "uvcvideo\x00")
	copy(raw.card[:], "HD Webcam\x00")
	copy(raw.busInfo[:], "usb-0000:00:14.0-3\x00")

	caps, err := decodeCapability(&raw)
	if err != nil {
		t.Fatalf("decodeCapability: %v", err)
	}
	if caps.Driver != "uvcvideo" {
		t.Errorf("Driver = %q, want %q", caps.Driver, "uvcvideo")
	}
	if caps.Card != "HD Webcam" {
		t.Errorf("Card = %q, want %q", caps.Card, "HD Webcam")
	}
	if !caps.DeviceCapabilities().Has(CapStreaming) {
		t.Error("DeviceCapabilities() missing CapStreaming")
	}
	if caps.DeviceCapabilities().Has(CapDeviceCaps) {
		t.Error("DeviceCapabilities() must return the per-node set")
	}
}

func TestDecodeCapabilityMissingNUL(t *testing.T) {
	raw := v4l2Capability{}
	for i := range raw.driver {
		raw.driver[i] = 'x'
	}
	_, err := decodeCapability(&raw)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("decodeCapability = %v, want ErrMalformedResponse", err)
	}
}
