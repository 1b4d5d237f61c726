package hub

import "context"

// runSweeper is the one registry-wide staleness pass. It runs on the heartbeat
// interval, so a client is evicted at most StaleAfter+HeartbeatInterval after its
// last successful write.
func (h *Hub) runSweeper(ctx context.Context) {
	ticker := h.clock.NewTicker(h.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			h.Sweep()
		}
	}
}

// Sweep evicts every client whose last successful write is older than StaleAfter
// and returns how many were evicted.
func (h *Hub) Sweep() int {
	now := h.clock.Now()
	evicted := 0

	for _, c := range h.registry.Snapshot() {
		age := now.Sub(c.LastSuccessfulWrite())
		if age <= h.opts.StaleAfter {
			continue
		}
		if h.registry.removeClient(c) {
			evicted++
			h.metrics.evicted(ReasonStale, h.registry.Size())
			h.logger.WithFields(map[string]any{
				"client_id": c.id,
				"idle":      age.String(),
			}).Info("Stale client evicted")
		}
		h.retire(c)
	}

	h.registry.pruneRetired(h.opts.ResumeWindow)
	return evicted
}
