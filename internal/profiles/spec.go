// Package profiles persists named capture configurations in a TOML
// file, for reuse across capture sessions.
package profiles

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SludgePhD/LiVid/pkg/v4l2"
)

// Profile is a single named capture configuration.
type Profile struct {
	// Name is the unique identifier for this profile.
	Name string `toml:"name" json:"name"`

	// Device is the device path or stable USB identifier.
	// Stable IDs ("usb-BUS-PORT") are resolved to /dev/videoX at
	// capture time.
	Device string `toml:"device" json:"device"`

	// PixelFormat is the fourcc to request, for example "YUYV".
	PixelFormat string `toml:"pixel_format" json:"pixel_format"`

	// Width and Height are the requested frame dimensions.
	Width  uint32 `toml:"width" json:"width"`
	Height uint32 `toml:"height" json:"height"`

	// Buffers is the number of driver buffers to request.
	// Zero means the capture default.
	Buffers uint32 `toml:"buffers,omitempty" json:"buffers,omitempty"`

	// FrameRate is the requested rate as "FPS" or "NUM/DENOM",
	// for example "30" or "30000/1001". Empty leaves the device rate.
	FrameRate string `toml:"frame_rate,omitempty" json:"frame_rate,omitempty"`

	// CreatedAt timestamp when the profile was first created
	CreatedAt time.Time `toml:"created_at" json:"created_at"`

	// UpdatedAt timestamp when the profile was last modified
	UpdatedAt time.Time `toml:"updated_at" json:"updated_at"`
}

// PixFormat converts the profile into a format request.
func (p Profile) PixFormat() v4l2.PixFormat {
	return v4l2.PixFormat{
		Width:       p.Width,
		Height:      p.Height,
		PixelFormat: v4l2.FourCC(p.PixelFormat),
	}
}

// FrameInterval converts the frame rate to a frame interval, the
// reciprocal representation the driver expects. A zero Fract is
// returned when no rate is set.
func (p Profile) FrameInterval() (v4l2.Fract, error) {
	if p.FrameRate == "" {
		return v4l2.Fract{}, nil
	}
	num, denom, ok := strings.Cut(p.FrameRate, "/")
	n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 32)
	if err != nil {
		return v4l2.Fract{}, fmt.Errorf("invalid frame rate %q: %w", p.FrameRate, err)
	}
	d := uint64(1)
	if ok {
		d, err = strconv.ParseUint(strings.TrimSpace(denom), 10, 32)
		if err != nil {
			return v4l2.Fract{}, fmt.Errorf("invalid frame rate %q: %w", p.FrameRate, err)
		}
	}
	if n == 0 || d == 0 {
		return v4l2.Fract{}, fmt.Errorf("invalid frame rate %q: zero term", p.FrameRate)
	}
	// Rate num/denom becomes interval denom/num.
	return v4l2.Fract{Numerator: uint32(d), Denominator: uint32(n)}, nil
}

// Validate checks that the profile can be turned into a capture
// request.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}
	if p.Device == "" {
		return fmt.Errorf("profile %q has no device", p.Name)
	}
	if len(p.PixelFormat) == 0 || len(p.PixelFormat) > 4 {
		return fmt.Errorf("profile %q: pixel format must be a fourcc, got %q", p.Name, p.PixelFormat)
	}
	if p.Width == 0 || p.Height == 0 {
		return fmt.Errorf("profile %q: resolution %dx%d is not valid", p.Name, p.Width, p.Height)
	}
	if _, err := p.FrameInterval(); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}
