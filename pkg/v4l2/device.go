//go:build linux

package v4l2

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Device is an open V4L2 device node.
//
// A freshly opened device can be queried for capabilities, formats, and
// controls. Before streaming it must be put into a specific mode with
// VideoCapture, VideoOutput, or MetaCapture, which negotiates a format.
type Device struct {
	file *os.File
	fd   int
	sys  kernel
	caps CapFlags
	log  *slog.Logger
}

// Open opens a V4L2 device file from the given path.
//
// The device is opened in blocking mode; dequeue operations on a stream
// will suspend the calling goroutine until the driver has data. Use
// SetNonblock to switch the handle to non-blocking operation.
//
// If the path does not refer to a V4L2 device node, an error is returned.
func Open(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}

	d := &Device{
		file: file,
		fd:   int(file.Fd()),
		sys:  hostKernel{},
		log:  slog.With("module", "v4l2"),
	}

	caps, err := d.Capabilities()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("not a V4L2 device: %w", err)
	}
	d.caps = caps.DeviceCapabilities()

	return d, nil
}

// Close closes the device handle. Streams created from this device must
// be closed first.
func (d *Device) Close() error {
	if d.file == nil {
		return nil
	}
	return d.file.Close()
}

// Path returns the device node path this handle refers to.
func (d *Device) Path() (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/self/fd/%d", d.fd))
}

// SetNonblock toggles non-blocking mode on the device handle. With
// non-blocking mode enabled, dequeue operations return ErrWouldBlock
// instead of suspending when the driver has no data.
func (d *Device) SetNonblock(nonblock bool) error {
	return unix.SetNonblock(d.fd, nonblock)
}

// Capabilities queries the device's capability record.
func (d *Device) Capabilities() (Capabilities, error) {
	raw := v4l2Capability{}
	if err := d.sys.ioctl(d.fd, vidiocQuerycap, unsafe.Pointer(&raw)); err != nil {
		return Capabilities{}, fmt.Errorf("failed to query device capabilities: %w", err)
	}
	return decodeCapability(&raw)
}

// FindDevices finds all V4L2 devices on the system.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir("/sys/class/video4linux")
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	log := slog.With("module", "v4l2")
	var devices []DeviceInfo

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		devicePath := "/dev/" + entry.Name()

		fd, err := openFD(devicePath)
		if err != nil {
			log.Debug("failed to open video device", "path", devicePath, "error", err)
			continue
		}

		raw := v4l2Capability{}
		err = hostKernel{}.ioctl(fd, vidiocQuerycap, unsafe.Pointer(&raw))
		closeFD(fd)
		if err != nil {
			log.Debug("failed to query device capabilities", "path", devicePath, "error", err)
			continue
		}

		caps, err := decodeCapability(&raw)
		if err != nil {
			log.Debug("failed to decode device capabilities", "path", devicePath, "error", err)
			continue
		}

		// Get device index from sysfs
		indexPath := filepath.Join("/sys/class/video4linux", entry.Name(), "index")
		indexValue := readSysfsInt(indexPath)

		// Find stable ID from /dev/v4l/by-id/
		stableID := findStableID(entry.Name(), indexValue)
		if stableID == "" {
			// Fallback: synthetic ID from bus_info + index
			if strings.HasPrefix(caps.BusInfo, "usb-") {
				stableID = fmt.Sprintf("%s-video-index%d", caps.BusInfo, indexValue)
			} else {
				stableID = fmt.Sprintf("platform-%s-video-index%d", caps.BusInfo, indexValue)
			}
		}

		devices = append(devices, DeviceInfo{
			DevicePath: devicePath,
			DeviceName: caps.Card,
			DeviceID:   stableID,
			Caps:       caps.DeviceCapabilities(),
		})
	}

	return devices, nil
}

// GetDevicePathByID finds the device path for a given stable device ID.
func GetDevicePathByID(deviceID string) (string, error) {
	devices, err := FindDevices()
	if err != nil {
		return "", fmt.Errorf("failed to find devices: %w", err)
	}

	for _, device := range devices {
		if device.DeviceID == deviceID {
			return device.DevicePath, nil
		}
	}

	return "", fmt.Errorf("device with ID %s not found", deviceID)
}

// findStableID looks for a stable ID symlink in /dev/v4l/by-id/
func findStableID(deviceName string, indexValue int) string {
	byIDDir := "/dev/v4l/by-id"
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	expectedSuffix := fmt.Sprintf("-video-index%d", indexValue)

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}

		linkPath := filepath.Join(byIDDir, entry.Name())
		target, err := os.Readlink(linkPath)
		if err != nil {
			continue
		}

		targetBase := filepath.Base(target)
		if targetBase == deviceName && strings.HasSuffix(entry.Name(), expectedSuffix) {
			return entry.Name()
		}
	}

	return ""
}

// readSysfsInt reads an integer value from a sysfs file.
func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}
