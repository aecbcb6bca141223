//go:build linux

package v4l2

import (
	"bytes"
	"errors"
	"syscall"
	"testing"
	"unsafe"
)

func newTestReadStream(t *testing.T, f *fakeDriver, bufferCount uint32) *ReadStream {
	t.Helper()
	dev := newTestDevice(f)
	s, err := newReadStream(dev, BufTypeVideoCapture, MemoryMmap, bufferCount)
	if err != nil {
		t.Fatalf("newReadStream: %v", err)
	}
	return s
}

func TestRequestBuffersRealizedCount(t *testing.T) {
	tests := []struct {
		name       string
		requested  uint32
		maxBuffers uint32
		wantCount  uint32
		wantErr    bool
	}{
		{
			name:      "granted as requested",
			requested: 4,
			wantCount: 4,
		},
		{
			name:       "driver grants fewer",
			requested:  8,
			maxBuffers: 2,
			wantCount:  2,
		},
		{
			name:      "zero requested is rejected",
			requested: 0,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeDriver(4096)
			f.maxBuffers = tt.maxBuffers
			dev := newTestDevice(f)

			pool, err := requestBuffers(dev, BufTypeVideoCapture, MemoryMmap, tt.requested)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("requestBuffers: %v", err)
			}
			if got := pool.count(); got != tt.wantCount {
				t.Errorf("pool.count() = %d, want %d", got, tt.wantCount)
			}
			if f.mmapCalls != int(tt.wantCount) {
				t.Errorf("mmap called %d times, want %d", f.mmapCalls, tt.wantCount)
			}
		})
	}
}

func TestRequestBuffersNonMmapRejected(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	_, err := requestBuffers(dev, BufTypeVideoCapture, MemoryUserPtr, 2)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("requestBuffers with USERPTR = %v, want ErrUnsupported", err)
	}
}

func TestRequestBuffersBusy(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	// Simulate another stream holding the allocation.
	busy := &errnoDriver{fakeDriver: f, reqbufsErr: syscall.EBUSY}
	dev.sys = busy

	_, err := requestBuffers(dev, BufTypeVideoCapture, MemoryMmap, 2)
	if !errors.Is(err, ErrBusy) {
		t.Errorf("requestBuffers on busy device = %v, want ErrBusy", err)
	}
}

// errnoDriver injects an error on buffer requests.
type errnoDriver struct {
	*fakeDriver
	reqbufsErr error
}

func (d *errnoDriver) ioctl(fd int, req uint, arg unsafe.Pointer) error {
	if req == vidiocReqbufs && d.reqbufsErr != nil {
		return d.reqbufsErr
	}
	return d.fakeDriver.ioctl(fd, req, arg)
}

func TestCaptureScenario(t *testing.T) {
	f := newFakeDriver(4096)
	f.maxBuffers = 2
	f.complete([]byte("frame-0"))
	f.complete([]byte("frame-1"))
	f.complete([]byte("frame-2"))

	s := newTestReadStream(t, f, 4)
	if s.BufferCount() != 2 {
		t.Fatalf("BufferCount() = %d, want 2", s.BufferCount())
	}

	var payloads [][]byte
	var sequences []uint32
	err := s.Run(func(frame *Frame) Verdict {
		payloads = append(payloads, bytes.Clone(frame.Bytes()))
		sequences = append(sequences, frame.Sequence)
		if len(payloads) == 3 {
			return Stop
		}
		return Continue
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.streamonCalls != 1 {
		t.Errorf("stream started %d times, want 1", f.streamonCalls)
	}
	want := [][]byte{[]byte("frame-0"), []byte("frame-1"), []byte("frame-2")}
	for i := range want {
		if !bytes.Equal(payloads[i], want[i]) {
			t.Errorf("frame %d payload = %q, want %q", i, payloads[i], want[i])
		}
	}
	for i, seq := range sequences {
		if seq != uint32(i) {
			t.Errorf("frame %d sequence = %d, want %d", i, seq, i)
		}
	}

	// Stop left the last frame's buffer with the application.
	filled := 0
	for i := range s.pool.slots {
		if s.pool.slots[i].state == slotFilled {
			filled++
		}
	}
	if filled != 1 {
		t.Errorf("filled slots after Stop verdict = %d, want 1", filled)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if f.streamoffCalls != 1 {
		t.Errorf("stream stopped %d times, want 1", f.streamoffCalls)
	}
	if f.munmapCalls != 2 {
		t.Errorf("munmap called %d times, want 2", f.munmapCalls)
	}
	if f.freeCalls != 1 {
		t.Errorf("driver buffers freed %d times, want 1", f.freeCalls)
	}
}

func TestDequeueRequeuesAfterHandler(t *testing.T) {
	f := newFakeDriver(4096)
	f.complete([]byte("a"))
	f.complete([]byte("b"))

	s := newTestReadStream(t, f, 1)
	defer s.Close()

	// With a single buffer, the second dequeue only works if the first
	// one's buffer was requeued.
	for _, want := range []string{"a", "b"} {
		err := s.Dequeue(func(frame *Frame) error {
			if got := string(frame.Bytes()); got != want {
				t.Errorf("frame payload = %q, want %q", got, want)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
	}
}

func TestDequeueHandlerErrorPropagates(t *testing.T) {
	f := newFakeDriver(4096)
	f.complete([]byte("x"))

	s := newTestReadStream(t, f, 2)
	defer s.Close()

	handlerErr := errors.New("decode failed")
	err := s.Dequeue(func(*Frame) error { return handlerErr })
	if !errors.Is(err, handlerErr) {
		t.Errorf("Dequeue = %v, want handler error", err)
	}
	// The buffer must be back with the driver regardless.
	if got := s.pool.queuedCount(); got != 2 {
		t.Errorf("queued slots after failed handler = %d, want 2", got)
	}
}

func TestFrameInvalidAfterHandler(t *testing.T) {
	f := newFakeDriver(4096)
	f.complete([]byte("payload"))

	s := newTestReadStream(t, f, 1)
	defer s.Close()

	var escaped *Frame
	if err := s.Dequeue(func(frame *Frame) error {
		escaped = frame
		return nil
	}); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if escaped.Bytes() != nil {
		t.Error("frame still exposes buffer memory after handler returned")
	}
}

func TestDequeueWouldBlock(t *testing.T) {
	f := newFakeDriver(4096)
	// No completions: the driver has no frame ready.

	s := newTestReadStream(t, f, 2)
	defer s.Close()

	err := s.Dequeue(func(*Frame) error { return nil })
	if !errors.Is(err, ErrWouldBlock) {
		t.Errorf("Dequeue with no frame ready = %v, want ErrWouldBlock", err)
	}
}

func TestDequeueNothingQueued(t *testing.T) {
	f := newFakeDriver(4096)
	f.complete([]byte("only"))

	s := newTestReadStream(t, f, 1)
	defer s.Close()

	// Run's Stop verdict keeps the only buffer with the application, so
	// the driver owns nothing and a dequeue would block forever.
	if err := s.Run(func(*Frame) Verdict { return Stop }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	err := s.Dequeue(func(*Frame) error { return nil })
	if !errors.Is(err, ErrNothingQueued) {
		t.Errorf("Dequeue with all buffers dequeued = %v, want ErrNothingQueued", err)
	}
}

func TestStartStopOrdering(t *testing.T) {
	f := newFakeDriver(4096)
	s := newTestReadStream(t, f, 2)
	defer s.Close()

	if err := s.Stop(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Stop before start = %v, want ErrNotActive", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("second Start = %v, want ErrAlreadyActive", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Dequeue(func(*Frame) error { return nil }); !errors.Is(err, ErrNotActive) {
		t.Errorf("Dequeue after Stop = %v, want ErrNotActive", err)
	}
}

func TestCloseWithInFlightBuffers(t *testing.T) {
	f := newFakeDriver(4096)
	f.complete([]byte("one"))

	s := newTestReadStream(t, f, 3)

	// Dequeue once so the stream is active with buffers still queued.
	if err := s.Dequeue(func(*Frame) error { return nil }); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got := s.pool.queuedCount(); got != 3 {
		t.Fatalf("queued slots = %d, want 3", got)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close with in-flight buffers: %v", err)
	}
	if f.streamoffCalls != 1 {
		t.Errorf("stream stopped %d times, want 1", f.streamoffCalls)
	}
	if f.munmapCalls != 3 {
		t.Errorf("munmap called %d times, want 3", f.munmapCalls)
	}
}

func TestCloseIdempotent(t *testing.T) {
	f := newFakeDriver(4096)
	s := newTestReadStream(t, f, 2)

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if f.munmapCalls != 2 {
		t.Errorf("munmap called %d times, want 2", f.munmapCalls)
	}
	if f.freeCalls != 1 {
		t.Errorf("driver buffers freed %d times, want 1", f.freeCalls)
	}
}

func TestCloseContinuesPastUnmapFailure(t *testing.T) {
	f := newFakeDriver(4096)
	f.munmapErr = syscall.EINVAL

	s := newTestReadStream(t, f, 3)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Every buffer must still be unwound and the driver allocation
	// freed, in spite of the failing unmaps.
	if f.munmapCalls != 3 {
		t.Errorf("munmap attempted %d times, want 3", f.munmapCalls)
	}
	if f.freeCalls != 1 {
		t.Errorf("driver buffers freed %d times, want 1", f.freeCalls)
	}
}

func TestOutputSubmitReclaimReuse(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	s, err := newWriteStream(dev, BufTypeVideoOutput, MemoryMmap, 2)
	if err != nil {
		t.Fatalf("newWriteStream: %v", err)
	}
	defer s.Close()

	fill := func(payload string) func([]byte) (int, error) {
		return func(buf []byte) (int, error) {
			return copy(buf, payload), nil
		}
	}

	if err := s.Enqueue(fill("first")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if f.streamonCalls != 1 {
		t.Errorf("stream started %d times after first enqueue, want 1", f.streamonCalls)
	}
	if err := s.Enqueue(fill("second")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Both buffers are with the driver now; the third enqueue reclaims
	// the oldest slot and reuses it.
	if err := s.Enqueue(fill("third")); err != nil {
		t.Fatalf("Enqueue with full queue: %v", err)
	}

	want := []string{"first", "second", "third"}
	if len(f.written) != len(want) {
		t.Fatalf("driver saw %d frames, want %d", len(f.written), len(want))
	}
	for i, w := range want {
		if got := string(f.written[i]); got != w {
			t.Errorf("frame %d = %q, want %q", i, got, w)
		}
	}
}

func TestOutputReclaimNothingQueued(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	s, err := newWriteStream(dev, BufTypeVideoOutput, MemoryMmap, 2)
	if err != nil {
		t.Fatalf("newWriteStream: %v", err)
	}
	defer s.Close()

	if _, err := s.Reclaim(); !errors.Is(err, ErrNothingQueued) {
		t.Errorf("Reclaim before enqueue = %v, want ErrNothingQueued", err)
	}
}

func TestOutputClosedStream(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	s, err := newWriteStream(dev, BufTypeVideoOutput, MemoryMmap, 2)
	if err != nil {
		t.Fatalf("newWriteStream: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := s.Enqueue(func(buf []byte) (int, error) { return 0, nil }); !errors.Is(err, ErrNotActive) {
		t.Errorf("Enqueue after Close = %v, want ErrNotActive", err)
	}
	if _, err := s.Reclaim(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Reclaim after Close = %v, want ErrNotActive", err)
	}
}

func TestOutputWriterError(t *testing.T) {
	f := newFakeDriver(4096)
	dev := newTestDevice(f)

	s, err := newWriteStream(dev, BufTypeVideoOutput, MemoryMmap, 2)
	if err != nil {
		t.Fatalf("newWriteStream: %v", err)
	}
	defer s.Close()

	writerErr := errors.New("encode failed")
	if err := s.Enqueue(func([]byte) (int, error) { return 0, writerErr }); !errors.Is(err, writerErr) {
		t.Errorf("Enqueue = %v, want writer error", err)
	}
	// Nothing was handed to the driver and streaming did not start.
	if len(f.queued) != 0 {
		t.Errorf("driver owns %d buffers after failed writer, want 0", len(f.queued))
	}
	if f.streamonCalls != 0 {
		t.Errorf("stream started %d times after failed writer, want 0", f.streamonCalls)
	}
}
