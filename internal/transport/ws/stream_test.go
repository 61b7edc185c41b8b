package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// collectWriter records frames; an optional gate makes each write block
// until released, to exercise backpressure.
type collectWriter struct {
	mu     sync.Mutex
	frames []Frame
	gate   chan struct{}
	err    error
}

func (w *collectWriter) WriteFrame(f Frame) error {
	if w.gate != nil {
		<-w.gate
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, f)
	return nil
}

func (w *collectWriter) collected() []Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Frame, len(w.frames))
	copy(out, w.frames)
	return out
}

func TestStream_SequenceAndFinalFrame(t *testing.T) {
	t.Parallel()

	w := &collectWriter{}
	s := NewStream(w, 77, 1024)

	for _, chunk := range []string{"one", "two", "three"} {
		if _, err := s.Write([]byte(chunk)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	frames := w.collected()
	if len(frames) != 4 {
		t.Fatalf("frame count: got %d, want 4", len(frames))
	}
	for i, f := range frames {
		if f.RequestID != 77 {
			t.Errorf("frame %d request id: got %d", i, f.RequestID)
		}
		if f.Sequence != uint32(i+1) {
			t.Errorf("frame %d sequence: got %d, want %d", i, f.Sequence, i+1)
		}
	}
	last := frames[3]
	if !last.Final || len(last.Payload) != 0 {
		t.Errorf("final frame: got final=%v payload=%d bytes", last.Final, len(last.Payload))
	}
	if frames[0].Final || frames[1].Final || frames[2].Final {
		t.Error("non-last frame carries final flag")
	}
}

func TestStream_WriteAfterClose(t *testing.T) {
	t.Parallel()

	s := NewStream(&collectWriter{}, 1, 1024)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Write([]byte("late")); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("write after close: got %v, want ErrStreamClosed", err)
	}
}

func TestStream_WriteErrorIsSticky(t *testing.T) {
	t.Parallel()

	boom := errors.New("socket gone")
	w := &collectWriter{err: boom}
	s := NewStream(w, 1, 1024)

	// The first write may still be queued before the failure lands; keep
	// writing until the error surfaces.
	deadline := time.Now().Add(2 * time.Second)
	var err error
	for time.Now().Before(deadline) {
		if _, err = s.Write([]byte("data")); err != nil {
			break
		}
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected sticky write error, got %v", err)
	}
	if cerr := s.Close(); !errors.Is(cerr, boom) {
		t.Errorf("close: got %v, want original error", cerr)
	}
}

func TestStream_BackpressureBlocksProducer(t *testing.T) {
	t.Parallel()

	w := &collectWriter{gate: make(chan struct{})}
	s := NewStream(w, 1, 8) // stall above 8 in-flight bytes

	if _, err := s.Write(make([]byte, 16)); err != nil {
		t.Fatalf("first write: %v", err)
	}

	blocked := make(chan struct{})
	go func() {
		_, _ = s.Write(make([]byte, 16))
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatal("second write completed while the connection was stalled")
	case <-time.After(50 * time.Millisecond):
	}

	close(w.gate) // drain
	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("second write did not unblock after drain")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := len(w.collected()); got != 3 {
		t.Errorf("frame count: got %d, want 3", got)
	}
}
