package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// defaultSSEWriteDeadline bounds a write whose context carries no deadline.
const defaultSSEWriteDeadline = 10 * time.Second

// SSEStream writes frames to an http.ResponseWriter as Server-Sent Events.
type SSEStream struct {
	writer http.ResponseWriter
	rc     *http.ResponseController

	ctx    context.Context
	cancel context.CancelFunc

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ Stream = (*SSEStream)(nil)

// NewSSEStream prepares w for streaming. The stream is done when ctx (normally the
// request context) is cancelled or when the stream is closed.
func NewSSEStream(ctx context.Context, w http.ResponseWriter) *SSEStream {
	sctx, cancel := context.WithCancel(ctx)
	s := &SSEStream{
		writer: w,
		rc:     http.NewResponseController(w),
		ctx:    sctx,
		cancel: cancel,
	}
	s.setupSSEHeaders()
	return s
}

func (s *SSEStream) Type() string {
	return "sse"
}

// Send writes the frame and flushes it. The write runs on its own goroutine so a
// blocked peer cannot hold the caller past ctx, and it carries a connection write
// deadline taken from ctx so the goroutine itself cannot outlive it for long. A
// timed out stream is closed.
func (s *SSEStream) Send(ctx context.Context, frame *Frame) error {
	if s.IsClosed() {
		return ErrStreamClosed
	}

	payload, err := frame.SSE()
	if err != nil {
		return fmt.Errorf("failed to encode SSE frame: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultSSEWriteDeadline)
	}

	done := make(chan error, 1)
	go func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		if s.IsClosed() {
			done <- ErrStreamClosed
			return
		}
		if err := s.setWriteDeadline(deadline); err != nil {
			done <- err
			return
		}
		if _, err := s.writer.Write(payload); err != nil {
			done <- err
			return
		}
		if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			done <- err
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			s.Close()
			if errors.Is(err, os.ErrDeadlineExceeded) || ctx.Err() != nil {
				return fmt.Errorf("%w: %v", ErrSendTimeout, err)
			}
			return fmt.Errorf("sse write failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Close()
		return fmt.Errorf("%w: %v", ErrSendTimeout, ctx.Err())
	case <-s.ctx.Done():
		return ErrStreamClosed
	}
}

// Close marks the stream closed and releases Done. A write still in flight is cut
// short by moving the connection deadline to now.
func (s *SSEStream) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		_ = s.setWriteDeadline(time.Now())
	})
	return nil
}

func (s *SSEStream) IsClosed() bool {
	return s.closed.Load() || s.ctx.Err() != nil
}

func (s *SSEStream) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Drain blocks until no write is in flight, then clears the write deadline so the
// connection can be reused. The handler must call it after Close and before it
// returns; once it returns no further write reaches the writer. On writers without
// deadline support it waits for the write to complete on its own.
func (s *SSEStream) Drain() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.setWriteDeadline(time.Time{})
}

func (s *SSEStream) setWriteDeadline(t time.Time) error {
	if err := s.rc.SetWriteDeadline(t); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (s *SSEStream) setupSSEHeaders() {
	s.writer.Header().Set("Content-Type", "text/event-stream")
	s.writer.Header().Set("Cache-Control", "no-cache")
	s.writer.Header().Set("Connection", "keep-alive")
	s.writer.Header().Set("X-Accel-Buffering", "no") // For nginx
}
