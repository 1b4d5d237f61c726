package hub

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// PublishResult is diagnostic only; callers must not depend on it.
type PublishResult struct {
	Delivered int `json:"delivered"`
	Pruned    int `json:"pruned"`
}

// Publish delivers event to every live client. The event is encoded once; writes
// run concurrently, each bounded by WriteTimeout and never under the registry lock.
// A recipient whose write fails is removed and closed. Cancellation of ctx does not
// abort delivery, so a request-scoped context is safe to pass.
func (h *Hub) Publish(ctx context.Context, event *Event) PublishResult {
	start := h.clock.Now()

	frame, err := event.Encode()
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode event, dropping it")
		return PublishResult{}
	}

	clients := h.registry.Snapshot()
	if len(clients) == 0 {
		return PublishResult{}
	}

	wctx := context.WithoutCancel(ctx)
	var delivered, pruned atomic.Int64

	var eg errgroup.Group
	eg.SetLimit(h.opts.PublishConcurrency)
	for _, c := range clients {
		c := c
		eg.Go(func() error {
			sctx, cancel := context.WithTimeout(wctx, h.opts.WriteTimeout)
			defer cancel()

			if err := c.stream.Send(sctx, frame); err != nil {
				if h.registry.removeClient(c) {
					pruned.Add(1)
					h.metrics.evicted(ReasonPublishFailed, h.registry.Size())
					h.logger.WithField("client_id", c.id).WithError(err).Warn("Broadcast write failed, client pruned")
				}
				h.retire(c)
				return nil
			}

			h.registry.touchClient(c)
			delivered.Add(1)
			return nil
		})
	}
	_ = eg.Wait()

	result := PublishResult{Delivered: int(delivered.Load()), Pruned: int(pruned.Load())}
	h.metrics.published(result, h.clock.Since(start))
	h.logger.Debugf("Broadcasted %s %s to %d clients, pruned %d", event.Kind, event.ID, result.Delivered, result.Pruned)
	return result
}

// PublishAsync runs Publish in the background. Stop waits for in-flight publishes.
func (h *Hub) PublishAsync(event *Event) {
	h.runningMu.RLock()
	if !h.running {
		h.runningMu.RUnlock()
		return
	}
	h.wg.Add(1)
	h.runningMu.RUnlock()

	go func() {
		defer h.wg.Done()
		h.Publish(context.Background(), event)
	}()
}

// Notify publishes a kind/payload pair asynchronously. It lets the hub serve as the
// application's event publisher.
func (h *Hub) Notify(kind string, payload any) {
	h.PublishAsync(NewEvent(EventKind(kind), payload))
}
