package hub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWebSocketWriteWait = 10 * time.Second
	closeFrameWait            = time.Second
)

// WebSocketStream writes frames to a gorilla WebSocket connection. Keepalives are
// sent as ping control frames.
type WebSocketStream struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

var _ Stream = (*WebSocketStream)(nil)

// NewWebSocketStream wraps an upgraded connection and starts its read pump. The read
// pump only discards client frames; a read error means the peer went away.
func NewWebSocketStream(conn *websocket.Conn) *WebSocketStream {
	s := &WebSocketStream{
		conn: conn,
		done: make(chan struct{}),
	}
	go s.readPump()
	return s
}

func (s *WebSocketStream) Type() string {
	return "websocket"
}

func (s *WebSocketStream) Send(ctx context.Context, frame *Frame) error {
	if s.IsClosed() {
		return ErrStreamClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.IsClosed() {
		return ErrStreamClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWebSocketWriteWait)
	}

	var err error
	if frame.IsKeepAlive() {
		err = s.conn.WriteControl(websocket.PingMessage, nil, deadline)
	} else {
		if err = s.conn.SetWriteDeadline(deadline); err == nil {
			err = s.conn.WriteMessage(websocket.TextMessage, frame.Data)
		}
	}
	if err != nil {
		s.closeLocked()
		return fmt.Errorf("websocket write failed: %w", err)
	}
	return nil
}

func (s *WebSocketStream) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.closeLocked()
}

// closeLocked must be called with writeMu held.
func (s *WebSocketStream) closeLocked() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)

		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeFrameWait),
		)
		err = s.conn.Close()
	})
	return err
}

func (s *WebSocketStream) IsClosed() bool {
	return s.closed.Load()
}

func (s *WebSocketStream) Done() <-chan struct{} {
	return s.done
}

func (s *WebSocketStream) readPump() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
	}
	s.abort()
}

// abort releases Done without waiting for an in-flight write; the write fails on
// its own once the connection is closed underneath it.
func (s *WebSocketStream) abort() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		_ = s.conn.Close()
	})
}
