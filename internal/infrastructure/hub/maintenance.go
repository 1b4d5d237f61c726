package hub

import "time"

// Status is the registry health report of the maintenance API.
type Status struct {
	ClientCount      int        `json:"clientCount"`
	OldestConnection *time.Time `json:"oldestConnection"`
	NewestConnection *time.Time `json:"newestConnection"`
}

// ClearResult reports a force clear. CloseErrors are diagnostics only.
type ClearResult struct {
	Removed     int `json:"removed"`
	CloseErrors int `json:"closeErrors"`
}

// Status returns the client count and the oldest and newest admission times
func (h *Hub) Status() Status {
	clients := h.registry.Snapshot()
	status := Status{ClientCount: len(clients)}
	if len(clients) == 0 {
		return status
	}

	// Snapshot is ordered by admission time.
	oldest := clients[0].connectedAt
	newest := clients[len(clients)-1].connectedAt
	status.OldestConnection = &oldest
	status.NewestConnection = &newest
	return status
}

// ForceClear empties the registry and stops every monitor. Entries are always
// removed, even when closing their stream fails.
func (h *Hub) ForceClear() ClearResult {
	clients := h.registry.removeAll()
	result := ClearResult{Removed: len(clients)}

	for _, c := range clients {
		h.metrics.evicted(ReasonForceCleared, h.registry.Size())
		if err := h.retire(c); err != nil {
			result.CloseErrors++
			h.logger.WithField("client_id", c.id).WithError(err).Warn("Close failed during force clear")
		}
	}

	if result.Removed > 0 {
		h.logger.Warnf("Registry force cleared: %d removed, %d close errors", result.Removed, result.CloseErrors)
	}
	return result
}
