//go:build linux

package v4l2

import (
	"fmt"
	"log/slog"
	"unsafe"
)

// slotState tracks who owns a buffer slot. Every slot is in exactly one
// state at all times.
type slotState int

const (
	// slotFree: owned by the application, contents undefined.
	slotFree slotState = iota
	// slotQueued: handed to the driver, must not be touched.
	slotQueued
	// slotFilled: returned by the driver with valid data (capture) or
	// retained by a paused stream.
	slotFilled
)

func (s slotState) String() string {
	switch s {
	case slotFree:
		return "free"
	case slotQueued:
		return "queued"
	case slotFilled:
		return "filled"
	default:
		return fmt.Sprintf("slotState(%d)", int(s))
	}
}

// slot is one shared-memory buffer negotiated with the driver.
type slot struct {
	state  slotState
	mem    []byte
	length uint32
}

// bufferPool owns the shared-memory buffers of one stream. It is created
// by requestBuffers and torn down by release.
type bufferPool struct {
	dev      *Device
	typ      BufType
	memory   Memory
	slots    []slot
	released bool
	log      *slog.Logger
}

// requestBuffers negotiates a set of memory-mapped buffers with the
// driver and maps each one into the process.
//
// The driver may grant fewer buffers than requested; the pool holds the
// realized count. A driver that grants zero buffers despite advertising
// streaming support is rejected.
func requestBuffers(dev *Device, typ BufType, memory Memory, count uint32) (*bufferPool, error) {
	if count == 0 {
		return nil, fmt.Errorf("buffer count must be at least 1")
	}
	if memory != MemoryMmap {
		return nil, fmt.Errorf("%w: memory mode %d", ErrUnsupported, memory)
	}

	req := v4l2RequestBuffers{
		count:  count,
		typ:    uint32(typ),
		memory: uint32(memory),
	}
	if err := dev.sys.ioctl(dev.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("failed to request buffers: %w", errnoErr(err))
	}
	if req.count == 0 {
		return nil, fmt.Errorf("driver granted no buffers")
	}
	if req.count > count {
		// Drivers round the count up for alignment reasons; the extra
		// buffers are real and must be mapped like the rest.
		dev.log.Debug("driver granted more buffers than requested",
			"requested", count, "granted", req.count)
	}

	pool := &bufferPool{
		dev:    dev,
		typ:    typ,
		memory: memory,
		slots:  make([]slot, req.count),
		log:    dev.log,
	}

	if err := pool.mapAll(); err != nil {
		pool.release()
		return nil, err
	}

	return pool, nil
}

// mapAll queries each buffer's offset and maps it. On failure the
// already-mapped slots are left for release to unwind.
func (p *bufferPool) mapAll() error {
	for i := range p.slots {
		raw := v4l2Buffer{}
		encodeBuffer(BufferInfo{Index: uint32(i), Type: p.typ, Memory: p.memory}, &raw)
		if err := p.dev.sys.ioctl(p.dev.fd, vidiocQuerybuf, unsafe.Pointer(&raw)); err != nil {
			return fmt.Errorf("failed to query buffer %d: %w", i, errnoErr(err))
		}
		info := decodeBuffer(&raw)

		mem, err := p.dev.sys.mmap(p.dev.fd, int64(info.Offset), int(info.Length))
		if err != nil {
			return fmt.Errorf("failed to map buffer %d: %w", i, err)
		}

		p.slots[i].mem = mem
		p.slots[i].length = info.Length
	}
	return nil
}

// count returns the realized buffer count.
func (p *bufferPool) count() uint32 {
	return uint32(len(p.slots))
}

// enqueue hands slot index to the driver.
func (p *bufferPool) enqueue(index uint32, bytesUsed uint32) error {
	raw := v4l2Buffer{}
	encodeBuffer(BufferInfo{
		Index:     index,
		Type:      p.typ,
		Memory:    p.memory,
		BytesUsed: bytesUsed,
	}, &raw)
	if err := p.dev.sys.ioctl(p.dev.fd, vidiocQbuf, unsafe.Pointer(&raw)); err != nil {
		return fmt.Errorf("failed to queue buffer %d: %w", index, errnoErr(err))
	}
	p.slots[index].state = slotQueued
	return nil
}

// dequeue retrieves the next completed buffer from the driver and marks
// its slot filled.
func (p *bufferPool) dequeue() (BufferInfo, error) {
	raw := v4l2Buffer{}
	encodeBuffer(BufferInfo{Type: p.typ, Memory: p.memory}, &raw)
	if err := p.dev.sys.ioctl(p.dev.fd, vidiocDqbuf, unsafe.Pointer(&raw)); err != nil {
		return BufferInfo{}, fmt.Errorf("failed to dequeue buffer: %w", errnoErr(err))
	}
	info := decodeBuffer(&raw)
	if int(info.Index) >= len(p.slots) {
		return BufferInfo{}, fmt.Errorf("%w: driver returned buffer index %d of %d",
			ErrMalformedResponse, info.Index, len(p.slots))
	}
	p.slots[info.Index].state = slotFilled
	return info, nil
}

// queuedCount returns the number of slots currently owned by the driver.
func (p *bufferPool) queuedCount() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].state == slotQueued {
			n++
		}
	}
	return n
}

// bytes returns the mapped memory of a slot.
func (p *bufferPool) bytes(index uint32) []byte {
	return p.slots[index].mem
}

// release unmaps every buffer and frees the driver-side allocation.
// It never fails: unmap errors are logged and the remaining buffers are
// still unwound, since a partial teardown would leak the rest. Calling
// release more than once is a no-op.
func (p *bufferPool) release() {
	if p.released {
		return
	}
	p.released = true

	for i := range p.slots {
		if p.slots[i].mem == nil {
			continue
		}
		if err := p.dev.sys.munmap(p.slots[i].mem); err != nil {
			p.log.Warn("failed to unmap buffer", "index", i, "error", err)
		}
		p.slots[i].mem = nil
		p.slots[i].state = slotFree
	}

	// A zero-count request releases the driver-side buffers. Failure
	// here leaves them attached to the handle until it is closed.
	req := v4l2RequestBuffers{
		count:  0,
		typ:    uint32(p.typ),
		memory: uint32(p.memory),
	}
	if err := p.dev.sys.ioctl(p.dev.fd, vidiocReqbufs, unsafe.Pointer(&req)); err != nil {
		p.log.Warn("failed to free driver buffers", "error", err)
	}
}
