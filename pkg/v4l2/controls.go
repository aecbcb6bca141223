//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// CtrlID identifies a device control.
type CtrlID uint32

// A few well-known user controls.
const (
	CtrlBrightness            CtrlID = 0x00980900
	CtrlContrast              CtrlID = 0x00980901
	CtrlSaturation            CtrlID = 0x00980902
	CtrlHue                   CtrlID = 0x00980903
	CtrlAutoWhiteBalance      CtrlID = 0x0098090c
	CtrlGamma                 CtrlID = 0x00980910
	CtrlGain                  CtrlID = 0x00980913
	CtrlHFlip                 CtrlID = 0x00980914
	CtrlVFlip                 CtrlID = 0x00980915
	CtrlPowerLineFrequency    CtrlID = 0x00980918
	CtrlSharpness             CtrlID = 0x0098091b
	CtrlBacklightCompensation CtrlID = 0x0098091c
)

// CtrlType is the data type of a control's value.
type CtrlType uint32

// Control types.
const (
	CtrlTypeInteger     CtrlType = 1
	CtrlTypeBoolean     CtrlType = 2
	CtrlTypeMenu        CtrlType = 3
	CtrlTypeButton      CtrlType = 4
	CtrlTypeInteger64   CtrlType = 5
	CtrlTypeCtrlClass   CtrlType = 6
	CtrlTypeString      CtrlType = 7
	CtrlTypeBitmask     CtrlType = 8
	CtrlTypeIntegerMenu CtrlType = 9
)

func (t CtrlType) String() string {
	switch t {
	case CtrlTypeInteger:
		return "INTEGER"
	case CtrlTypeBoolean:
		return "BOOLEAN"
	case CtrlTypeMenu:
		return "MENU"
	case CtrlTypeButton:
		return "BUTTON"
	case CtrlTypeInteger64:
		return "INTEGER64"
	case CtrlTypeCtrlClass:
		return "CTRL_CLASS"
	case CtrlTypeString:
		return "STRING"
	case CtrlTypeBitmask:
		return "BITMASK"
	case CtrlTypeIntegerMenu:
		return "INTEGER_MENU"
	default:
		return fmt.Sprintf("CtrlType(%d)", uint32(t))
	}
}

// ControlDesc describes a control exposed by a device.
type ControlDesc struct {
	ID      CtrlID
	Type    CtrlType
	Name    string
	Minimum int32
	Maximum int32
	Step    int32
	Default int32
	Flags   uint32
}

// MenuItem is one entry of a menu control.
type MenuItem struct {
	Index uint32
	// Name is the label of the entry. Empty for integer menus.
	Name string
	// Value is the entry's value for integer menus.
	Value int64
}

// Controls enumerates the controls the device exposes. Disabled
// controls and control class markers are skipped.
func (d *Device) Controls() ([]ControlDesc, error) {
	var controls []ControlDesc

	id := uint32(v4l2CtrlFlagNextCtrl)
	for {
		raw := v4l2Queryctrl{id: id}
		if err := d.sys.ioctl(d.fd, vidiocQueryctrl, unsafe.Pointer(&raw)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break // End of enumeration
			}
			return nil, fmt.Errorf("failed to query control 0x%08x: %w", id, err)
		}
		id = raw.id | v4l2CtrlFlagNextCtrl

		if raw.flags&v4l2CtrlFlagDisabled != 0 || CtrlType(raw.typ) == CtrlTypeCtrlClass {
			continue
		}

		name, err := cstr(raw.name[:])
		if err != nil {
			return nil, fmt.Errorf("decoding control name: %w", err)
		}

		controls = append(controls, ControlDesc{
			ID:      CtrlID(raw.id),
			Type:    CtrlType(raw.typ),
			Name:    name,
			Minimum: raw.minimum,
			Maximum: raw.maximum,
			Step:    raw.step,
			Default: raw.defaultValue,
			Flags:   raw.flags,
		})
	}

	return controls, nil
}

// MenuItems returns the entries of a menu or integer menu control.
// Indices the driver rejects are skipped; drivers do this for entries
// that are not applicable to the current configuration.
func (d *Device) MenuItems(desc ControlDesc) ([]MenuItem, error) {
	if desc.Type != CtrlTypeMenu && desc.Type != CtrlTypeIntegerMenu {
		return nil, fmt.Errorf("control %q is not a menu control: %w", desc.Name, ErrUnsupported)
	}

	var items []MenuItem
	for i := desc.Minimum; i <= desc.Maximum; i++ {
		raw := v4l2Querymenu{id: uint32(desc.ID), index: uint32(i)}
		if err := d.sys.ioctl(d.fd, vidiocQuerymenu, unsafe.Pointer(&raw)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				continue
			}
			return nil, fmt.Errorf("failed to query menu entry %d: %w", i, err)
		}

		item := MenuItem{Index: raw.index}
		if desc.Type == CtrlTypeIntegerMenu {
			item.Value = raw.value()
		} else {
			name, err := cstr(raw.name[:])
			if err != nil {
				return nil, fmt.Errorf("decoding menu entry name: %w", err)
			}
			item.Name = name
		}
		items = append(items, item)
	}

	return items, nil
}

// GetControl reads the current value of a control.
func (d *Device) GetControl(id CtrlID) (int32, error) {
	raw := v4l2Control{id: uint32(id)}
	if err := d.sys.ioctl(d.fd, vidiocGCtrl, unsafe.Pointer(&raw)); err != nil {
		return 0, fmt.Errorf("failed to get control 0x%08x: %w", uint32(id), errnoErr(err))
	}
	return raw.value, nil
}

// SetControl changes the value of a control.
func (d *Device) SetControl(id CtrlID, value int32) error {
	raw := v4l2Control{id: uint32(id), value: value}
	if err := d.sys.ioctl(d.fd, vidiocSCtrl, unsafe.Pointer(&raw)); err != nil {
		return fmt.Errorf("failed to set control 0x%08x: %w", uint32(id), errnoErr(err))
	}
	return nil
}
