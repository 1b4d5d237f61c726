package hub

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/gin-contrib/sse"
)

var (
	// ErrStreamClosed is returned by Send once a stream has been closed or evicted.
	ErrStreamClosed = errors.New("stream is closed")
	// ErrSendTimeout is returned when a write does not complete before its deadline.
	ErrSendTimeout = errors.New("send timeout")
)

// Frame is one unit written to a client. A frame with nil Data is a keepalive.
// Frames are shared between recipients and must be passed by pointer.
type Frame struct {
	ID    string
	Event string
	Data  []byte

	sseOnce sync.Once
	sse     []byte
	sseErr  error
}

var sseKeepAlive = []byte(": keepalive\n\n")

// SSE returns the text/event-stream encoding of the frame, computed once per frame.
func (f *Frame) SSE() ([]byte, error) {
	if f.IsKeepAlive() {
		return sseKeepAlive, nil
	}
	f.sseOnce.Do(func() {
		var buf bytes.Buffer
		f.sseErr = sse.Encode(&buf, sse.Event{
			Id:    f.ID,
			Event: f.Event,
			Data:  string(f.Data),
		})
		f.sse = buf.Bytes()
	})
	return f.sse, f.sseErr
}

// IsKeepAlive reports whether the frame carries no payload.
func (f *Frame) IsKeepAlive() bool {
	return f.Data == nil
}

var keepAliveFrame = &Frame{}

// Stream is the exclusive write side of one client transport (SSE, WebSocket, ...).
//
// Implementations must serialize concurrent Send calls, honor the context deadline,
// and make Close idempotent. After Close, or after a failed or timed out Send, every
// further Send returns ErrStreamClosed.
type Stream interface {
	Type() string
	Send(ctx context.Context, frame *Frame) error
	Close() error
	IsClosed() bool
	// Done is closed when the stream is closed or the underlying transport aborts.
	Done() <-chan struct{}
}
