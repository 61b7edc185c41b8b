package ws

import (
	"errors"
	"sync"
)

// ErrStreamClosed is returned by writes after Close.
var ErrStreamClosed = errors.New("stream is closed")

// FrameWriter is the underlying connection a stream emits frames on.
type FrameWriter interface {
	WriteFrame(f Frame) error
}

// Stream turns an arbitrary byte stream into a sequence of frames on one
// connection, so a response body of unknown size can be relayed without
// buffering it whole.
//
// Backpressure: the stream tracks payload bytes handed to the connection but
// not yet written out. Write blocks while that count is above the threshold,
// so a peer that reads slowly stalls the producer instead of growing an
// unbounded queue.
//
// A Stream is a single-producer object: Write and Close must not be called
// concurrently.
type Stream struct {
	w         FrameWriter
	requestID uint32
	threshold int

	mu       sync.Mutex
	cond     *sync.Cond
	inflight int
	err      error
	closed   bool

	seq   uint32
	jobs  chan Frame
	done  chan struct{}
}

// NewStream starts a stream for one request id. threshold is the in-flight
// byte count above which writes stall until the connection drains.
func NewStream(w FrameWriter, requestID uint32, threshold int) *Stream {
	if threshold <= 0 {
		threshold = 64 * 1024
	}
	s := &Stream{
		w:         w,
		requestID: requestID,
		threshold: threshold,
		jobs:      make(chan Frame, 16),
		done:      make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.writeLoop()
	return s
}

func (s *Stream) writeLoop() {
	defer close(s.done)
	for f := range s.jobs {
		err := s.w.WriteFrame(f)

		s.mu.Lock()
		s.inflight -= len(f.Payload)
		if err != nil && s.err == nil {
			s.err = err
		}
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// Write emits p as the next frame. It blocks while the in-flight byte count
// exceeds the threshold, and fails permanently once any frame write failed.
func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	for s.err == nil && !s.closed && s.inflight > s.threshold {
		s.cond.Wait()
	}
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return 0, err
	}
	if s.closed {
		s.mu.Unlock()
		return 0, ErrStreamClosed
	}
	s.seq++
	f := Frame{
		RequestID: s.requestID,
		Sequence:  s.seq,
		Payload:   append([]byte(nil), p...),
	}
	s.inflight += len(p)
	s.mu.Unlock()

	s.jobs <- f
	return len(p), nil
}

// Close emits the final frame (empty payload, final flag) and waits for all
// queued frames to reach the connection. No frames may follow for this
// request id.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		err := s.err
		s.mu.Unlock()
		return err
	}
	s.closed = true
	s.seq++
	final := Frame{RequestID: s.requestID, Sequence: s.seq, Final: true}
	s.mu.Unlock()

	s.jobs <- final
	close(s.jobs)
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
