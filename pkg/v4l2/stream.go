//go:build linux

package v4l2

import (
	"fmt"
	"log/slog"
	"time"
	"unsafe"
)

// streamState is the lifecycle state of a stream.
type streamState int

const (
	// stateIdle: buffers allocated but none owned by the driver.
	stateIdle streamState = iota
	// statePrimed: all buffers queued, streaming not yet started.
	statePrimed
	// stateActive: the driver is producing or consuming buffers.
	stateActive
	// stateStopping: teardown in progress.
	stateStopping
	// stateClosed: buffers released, the stream is unusable.
	stateClosed
)

func (s streamState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePrimed:
		return "primed"
	case stateActive:
		return "active"
	case stateStopping:
		return "stopping"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("streamState(%d)", int(s))
	}
}

// Verdict tells ReadStream.Run whether to keep streaming.
type Verdict int

const (
	// Continue requeues the frame's buffer and dequeues the next one.
	Continue Verdict = iota
	// Stop ends the loop. The frame's buffer is not requeued.
	Stop
)

// Frame is one dequeued buffer. It is only valid inside the handler it
// is passed to; retaining it past the handler's return accesses memory
// the driver may be writing into.
type Frame struct {
	data []byte

	// Index is the buffer slot this frame occupies.
	Index uint32
	// Flags are the driver's buffer state bits. BufFlagError indicates
	// corrupted frame data.
	Flags BufFlag
	// Sequence counts frames since streaming started, as reported by
	// the driver. Gaps indicate dropped frames.
	Sequence uint32
	// Timestamp is the driver-reported capture time.
	Timestamp time.Duration
}

// Bytes returns the frame payload. The slice aliases driver-shared
// memory and must not be retained.
func (f *Frame) Bytes() []byte { return f.data }

// invalidate cuts the frame off from the mapped buffer once the handler
// returns, so a retained Frame cannot alias requeued memory.
func (f *Frame) invalidate() { f.data = nil }

// ReadStream captures frames from a device using memory-mapped
// streaming I/O.
//
// A ReadStream is not safe for concurrent use; all methods must be
// called from a single goroutine.
type ReadStream struct {
	dev   *Device
	typ   BufType
	pool  *bufferPool
	state streamState
	log   *slog.Logger
}

// newReadStream allocates buffers and primes them. Streaming itself
// starts implicitly on the first dequeue.
func newReadStream(dev *Device, typ BufType, memory Memory, bufferCount uint32) (*ReadStream, error) {
	pool, err := requestBuffers(dev, typ, memory, bufferCount)
	if err != nil {
		return nil, err
	}

	s := &ReadStream{
		dev:   dev,
		typ:   typ,
		pool:  pool,
		state: stateIdle,
		log:   dev.log.With("stream", typ.String()),
	}

	// Prime: hand every buffer to the driver so capture can start
	// without dropping the first frames.
	for i := uint32(0); i < pool.count(); i++ {
		if err := pool.enqueue(i, 0); err != nil {
			pool.release()
			s.state = stateClosed
			return nil, err
		}
	}
	s.state = statePrimed

	s.log.Debug("stream primed", "buffers", pool.count())
	return s, nil
}

// BufferCount returns the number of buffers the driver granted, which
// may differ from the requested count.
func (s *ReadStream) BufferCount() uint32 { return s.pool.count() }

// Start begins streaming explicitly. Calling Start on an active stream
// returns ErrAlreadyActive. Dequeue starts the stream automatically, so
// calling Start is only needed to control when capture begins.
func (s *ReadStream) Start() error {
	switch s.state {
	case stateActive:
		return ErrAlreadyActive
	case stateClosed, stateStopping:
		return ErrNotActive
	}
	return s.streamOn()
}

func (s *ReadStream) streamOn() error {
	typ := uint32(s.typ)
	if err := s.dev.sys.ioctl(s.dev.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("failed to start stream: %w", errnoErr(err))
	}
	s.state = stateActive
	return nil
}

// Stop halts streaming. The driver returns all queued buffers without
// data; their slots become free and must be requeued before streaming
// can start again. Stopping a stream that is not active returns
// ErrNotActive.
func (s *ReadStream) Stop() error {
	if s.state != stateActive {
		return ErrNotActive
	}
	typ := uint32(s.typ)
	if err := s.dev.sys.ioctl(s.dev.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("failed to stop stream: %w", errnoErr(err))
	}
	for i := range s.pool.slots {
		if s.pool.slots[i].state == slotQueued {
			s.pool.slots[i].state = slotFree
		}
	}
	s.state = stateIdle
	return nil
}

// Dequeue waits for the next frame and passes it to handler. The
// frame's buffer is requeued after the handler returns, whether or not
// it reports an error, and the handler's error is returned unchanged.
//
// The first call starts the stream. With the device in non-blocking
// mode, ErrWouldBlock is returned when no frame is ready. Dequeueing
// with no buffers owned by the driver would block forever and returns
// ErrNothingQueued instead.
func (s *ReadStream) Dequeue(handler func(*Frame) error) error {
	frame, err := s.dequeueFrame()
	if err != nil {
		return err
	}

	handlerErr := handler(frame)
	frame.invalidate()

	if err := s.pool.enqueue(frame.Index, 0); err != nil {
		if handlerErr != nil {
			return handlerErr
		}
		return err
	}
	return handlerErr
}

// Run dequeues frames in a loop until the handler returns Stop or an
// error occurs. After Stop, the last frame's buffer stays filled and is
// not returned to the driver; closing the stream reclaims it.
func (s *ReadStream) Run(handler func(*Frame) Verdict) error {
	for {
		frame, err := s.dequeueFrame()
		if err != nil {
			return err
		}

		verdict := handler(frame)
		frame.invalidate()

		if verdict == Stop {
			return nil
		}
		if err := s.pool.enqueue(frame.Index, 0); err != nil {
			return err
		}
	}
}

func (s *ReadStream) dequeueFrame() (*Frame, error) {
	switch s.state {
	case stateClosed, stateStopping, stateIdle:
		return nil, ErrNotActive
	case statePrimed:
		if err := s.streamOn(); err != nil {
			return nil, err
		}
	}

	if s.pool.queuedCount() == 0 {
		return nil, ErrNothingQueued
	}

	info, err := s.pool.dequeue()
	if err != nil {
		return nil, err
	}

	n := info.BytesUsed
	if n > info.Length {
		return nil, fmt.Errorf("%w: driver reports %d bytes used in a %d byte buffer",
			ErrMalformedResponse, n, info.Length)
	}

	return &Frame{
		data:      s.pool.bytes(info.Index)[:n],
		Index:     info.Index,
		Flags:     info.Flags,
		Sequence:  info.Sequence,
		Timestamp: info.Timestamp,
	}, nil
}

// Close stops the stream and releases all buffers. Buffers still owned
// by the driver are reclaimed by the driver-side release. Close never
// fails and may be called more than once; errors during teardown are
// logged and the teardown continues.
func (s *ReadStream) Close() error {
	if s.state == stateClosed {
		return nil
	}
	if s.state == stateActive {
		s.state = stateStopping
		typ := uint32(s.typ)
		if err := s.dev.sys.ioctl(s.dev.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
			s.log.Warn("failed to stop stream during close", "error", err)
		}
	}
	s.pool.release()
	s.state = stateClosed
	return nil
}

// WriteStream feeds frames to an output device using memory-mapped
// streaming I/O.
//
// Like ReadStream, a WriteStream must be confined to one goroutine.
type WriteStream struct {
	dev     *Device
	typ     BufType
	pool    *bufferPool
	state   streamState
	started bool
	log     *slog.Logger
}

func newWriteStream(dev *Device, typ BufType, memory Memory, bufferCount uint32) (*WriteStream, error) {
	pool, err := requestBuffers(dev, typ, memory, bufferCount)
	if err != nil {
		return nil, err
	}
	return &WriteStream{
		dev:   dev,
		typ:   typ,
		pool:  pool,
		state: stateIdle,
		log:   dev.log.With("stream", typ.String()),
	}, nil
}

// BufferCount returns the number of buffers the driver granted.
func (s *WriteStream) BufferCount() uint32 { return s.pool.count() }

// Enqueue fills a free buffer with the writer callback and hands it to
// the driver. The callback receives the full mapped buffer and returns
// the number of payload bytes it wrote.
//
// When every buffer is owned by the driver, a completed one is
// reclaimed first; with the device in non-blocking mode this returns
// ErrWouldBlock until the driver finishes one. Streaming starts when
// the first buffer is queued.
func (s *WriteStream) Enqueue(writer func(buf []byte) (int, error)) error {
	switch s.state {
	case stateClosed, stateStopping:
		return ErrNotActive
	}

	index, ok := s.freeSlot()
	if !ok {
		reclaimed, err := s.Reclaim()
		if err != nil {
			return err
		}
		index = reclaimed
	}

	buf := s.pool.bytes(index)
	n, err := writer(buf)
	if err != nil {
		return err
	}
	if n < 0 || n > len(buf) {
		return fmt.Errorf("writer reported %d bytes for a %d byte buffer", n, len(buf))
	}

	if err := s.pool.enqueue(index, uint32(n)); err != nil {
		return err
	}

	if !s.started {
		if err := s.streamOn(); err != nil {
			return err
		}
		s.started = true
	}
	return nil
}

// Reclaim dequeues one buffer the driver has finished displaying and
// returns its slot index. The slot is free for reuse afterwards.
// Reclaiming before anything was enqueued returns ErrNothingQueued;
// reclaiming on a closed stream returns ErrNotActive.
func (s *WriteStream) Reclaim() (uint32, error) {
	switch s.state {
	case stateClosed, stateStopping:
		return 0, ErrNotActive
	}
	if s.pool.queuedCount() == 0 {
		return 0, ErrNothingQueued
	}

	info, err := s.pool.dequeue()
	if err != nil {
		return 0, err
	}
	// Output buffers come back empty; the slot is immediately reusable.
	s.pool.slots[info.Index].state = slotFree
	return info.Index, nil
}

func (s *WriteStream) freeSlot() (uint32, bool) {
	for i := range s.pool.slots {
		if s.pool.slots[i].state == slotFree {
			return uint32(i), true
		}
	}
	return 0, false
}

func (s *WriteStream) streamOn() error {
	typ := uint32(s.typ)
	if err := s.dev.sys.ioctl(s.dev.fd, vidiocStreamon, unsafe.Pointer(&typ)); err != nil {
		return fmt.Errorf("failed to start stream: %w", errnoErr(err))
	}
	s.state = stateActive
	return nil
}

// Close stops the stream and releases all buffers. Frames the driver
// has not yet displayed are discarded. Close never fails and may be
// called more than once.
func (s *WriteStream) Close() error {
	if s.state == stateClosed {
		return nil
	}
	if s.state == stateActive {
		s.state = stateStopping
		typ := uint32(s.typ)
		if err := s.dev.sys.ioctl(s.dev.fd, vidiocStreamoff, unsafe.Pointer(&typ)); err != nil {
			s.log.Warn("failed to stop stream during close", "error", err)
		}
	}
	s.pool.release()
	s.state = stateClosed
	return nil
}
