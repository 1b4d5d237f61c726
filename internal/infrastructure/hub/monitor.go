package hub

import (
	"context"
	"sync"
)

// heartbeatTask is the single cancellable goroutine behind a client's monitor.
// stop may be called any number of times from any goroutine except the task's own.
type heartbeatTask struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func newHeartbeatTask() *heartbeatTask {
	ctx, cancel := context.WithCancel(context.Background())
	return &heartbeatTask{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// start runs fn once. It is a no-op after stop.
func (t *heartbeatTask) start(fn func(ctx context.Context)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.ctx.Err() != nil {
		return false
	}
	t.started = true
	go func() {
		defer close(t.done)
		defer t.cancel()
		fn(t.ctx)
	}()
	return true
}

// stop cancels the task and waits for a running tick to finish, so no tick can
// fire after stop returns.
func (t *heartbeatTask) stop() {
	t.mu.Lock()
	t.cancel()
	started := t.started
	t.mu.Unlock()

	if started {
		<-t.done
	}
}

// runMonitor is the body of a client's heartbeat task:
// Running -> (WriteFailed | Stale | Signaled) -> Stopped.
func (h *Hub) runMonitor(c *Client) func(ctx context.Context) {
	return func(ctx context.Context) {
		log := h.logger.WithField("client_id", c.id)
		ticker := h.clock.NewTicker(h.opts.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Debug("Heartbeat monitor signaled")
				return

			case <-c.stream.Done():
				if h.registry.removeClient(c) {
					h.metrics.evicted(ReasonAborted, h.registry.Size())
					log.Info("Transport aborted, client removed")
				}
				return

			case <-ticker.Chan():
				if !h.heartbeat(ctx, c) {
					return
				}
			}
		}
	}
}

// heartbeat runs one monitor tick. It returns false when the monitor must stop.
func (h *Hub) heartbeat(ctx context.Context, c *Client) bool {
	if cur, ok := h.registry.Get(c.id); !ok || cur != c {
		return false
	}

	wctx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
	err := c.stream.Send(wctx, keepAliveFrame)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if h.registry.removeClient(c) {
			h.metrics.evicted(ReasonKeepAliveFailed, h.registry.Size())
			h.logger.WithField("client_id", c.id).WithError(err).Warn("Keepalive failed, client evicted")
		}
		_ = c.stream.Close()
		return false
	}

	h.registry.touchClient(c)
	h.metrics.keepAlive()
	return true
}
