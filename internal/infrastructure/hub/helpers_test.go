package hub

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-scoreboard-sse/internal/infrastructure/logger"
)

// Mock implementations for testing

type mockLogger struct{}

func (m *mockLogger) Debug(msg string)                              {}
func (m *mockLogger) Debugf(format string, args ...any)             {}
func (m *mockLogger) Info(msg string)                               {}
func (m *mockLogger) Infof(format string, args ...any)              {}
func (m *mockLogger) Warn(msg string)                               {}
func (m *mockLogger) Warnf(format string, args ...any)              {}
func (m *mockLogger) Error(msg string)                              {}
func (m *mockLogger) Errorf(format string, args ...any)             {}
func (m *mockLogger) Fatal(msg string)                              {}
func (m *mockLogger) Fatalf(format string, args ...any)             {}
func (m *mockLogger) WithField(key string, value any) logger.Logger { return m }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }
func (m *mockLogger) WithError(err error) logger.Logger             { return m }
func (m *mockLogger) WithContext(ctx context.Context) logger.Logger { return m }
func (m *mockLogger) SetLevel(level logger.Level)                   {}
func (m *mockLogger) SetOutput(output io.Writer)                    {}

var errBrokenPipe = errors.New("broken pipe")

// fakeStream records frames. It can be switched to fail or to block until the
// write deadline, and can simulate a transport abort. Unlike the real streams it
// leaves closing to the hub, so eviction reasons are deterministic.
type fakeStream struct {
	mu         sync.Mutex
	frames     []*Frame
	keepAlives int
	failWith   error
	blocking   bool
	closeErr   error
	closed     bool

	done      chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{done: make(chan struct{})}
}

func (s *fakeStream) Type() string { return "fake" }

func (s *fakeStream) Send(ctx context.Context, frame *Frame) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	if s.blocking {
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return ErrSendTimeout
		case <-s.done:
			return ErrStreamClosed
		}
	}
	if s.failWith != nil {
		err := s.failWith
		s.mu.Unlock()
		return err
	}
	defer s.mu.Unlock()
	if frame.IsKeepAlive() {
		s.keepAlives++
		return nil
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

func (s *fakeStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) Done() <-chan struct{} { return s.done }

// abort simulates the peer going away.
func (s *fakeStream) abort() { _ = s.Close() }

func (s *fakeStream) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *fakeStream) block() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocking = true
}

func (s *fakeStream) keepAliveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keepAlives
}

func (s *fakeStream) received() []*Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// newTestHub starts a hub whose monitors effectively never tick unless the
// options say otherwise.
func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = time.Hour
		opts.StaleAfter = 3 * time.Hour
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 100 * time.Millisecond
	}
	h := New(&mockLogger{}, opts)
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Stop(context.Background()) })
	return h
}

func admit(t *testing.T, h *Hub, id string) (*Client, *fakeStream) {
	t.Helper()
	s := newFakeStream()
	c, err := h.Admit(context.Background(), id, s)
	require.NoError(t, err)
	return c, s
}
