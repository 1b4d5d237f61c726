package hub

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Client is one registered push stream.
type Client struct {
	id          string
	stream      Stream
	connectedAt time.Time
	resumed     bool

	// lastWrite is unix nanos of the last successful write; only ever moves forward.
	lastWrite atomic.Int64

	heartbeat *heartbeatTask
}

// ID returns the client identifier.
func (c *Client) ID() string { return c.id }

// Stream returns the transport the client is pushed over.
func (c *Client) Stream() Stream { return c.stream }

// ConnectedAt returns the admission time.
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// Resumed reports whether the client was admitted as a resumption.
func (c *Client) Resumed() bool { return c.resumed }

// LastSuccessfulWrite returns the time of the last frame the client accepted.
func (c *Client) LastSuccessfulWrite() time.Time {
	return time.Unix(0, c.lastWrite.Load())
}

func (c *Client) advance(now time.Time) {
	ts := now.UnixNano()
	for {
		cur := c.lastWrite.Load()
		if ts <= cur || c.lastWrite.CompareAndSwap(cur, ts) {
			return
		}
	}
}

// Registry is the concurrency-safe set of live clients keyed by id. It only does
// bookkeeping: callers retire (stop and close) whatever it hands back. Outside the
// package it is read-only; every mutation goes through the Hub.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	// retired remembers when an id last left the registry, for resumption.
	retired map[string]time.Time
	clock   clockwork.Clock
}

// NewRegistry creates an empty registry.
func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		clients: make(map[string]*Client),
		retired: make(map[string]time.Time),
		clock:   clock,
	}
}

// insert stores a new client for id and returns it together with the entry it
// replaced, if any. The replaced client is no longer reachable through the registry
// and must be retired by the caller.
func (r *Registry) insert(id string, stream Stream, resumed bool) (*Client, *Client) {
	now := r.clock.Now()
	c := &Client{
		id:          id,
		stream:      stream,
		connectedAt: now,
		resumed:     resumed,
		heartbeat:   newHeartbeatTask(),
	}
	c.lastWrite.Store(now.UnixNano())

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.clients[id]
	r.clients[id] = c
	delete(r.retired, id)
	return c, prev
}

// Get returns the live client registered under id.
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Seen reports whether id is live or left the registry within the resume window.
func (r *Registry) Seen(id string, window time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.clients[id]; ok {
		return true
	}
	at, ok := r.retired[id]
	return ok && r.clock.Since(at) <= window
}

// touch records a successful write for id. Absent ids are ignored.
func (r *Registry) touch(id string) {
	if c, ok := r.Get(id); ok {
		c.advance(r.clock.Now())
	}
}

// touchClient is touch restricted to one generation of an id.
func (r *Registry) touchClient(c *Client) bool {
	r.mu.RLock()
	cur := r.clients[c.id]
	r.mu.RUnlock()
	if cur != c {
		return false
	}
	c.advance(r.clock.Now())
	return true
}

// remove deletes the entry for id. It is idempotent; the bool reports whether
// something was actually removed.
func (r *Registry) remove(id string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, false
	}
	r.deleteLocked(c)
	return c, true
}

// removeClient deletes c only if it is still the registered entry for its id, so a
// failing write on an old generation can never evict the client that resumed it.
func (r *Registry) removeClient(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[c.id] != c {
		return false
	}
	r.deleteLocked(c)
	return true
}

// removeAll empties the registry and returns everything that was in it.
func (r *Registry) removeAll() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	for _, c := range out {
		r.deleteLocked(c)
	}
	return out
}

func (r *Registry) deleteLocked(c *Client) {
	delete(r.clients, c.id)
	r.retired[c.id] = r.clock.Now()
}

// pruneRetired forgets retired ids older than the resume window.
func (r *Registry) pruneRetired(window time.Duration) int {
	cutoff := r.clock.Now().Add(-window)
	r.mu.Lock()
	defer r.mu.Unlock()
	pruned := 0
	for id, at := range r.retired {
		if at.Before(cutoff) {
			delete(r.retired, id)
			pruned++
		}
	}
	return pruned
}

// Snapshot returns a point-in-time copy ordered by admission time, safe to iterate
// while writing to the streams.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].connectedAt.Equal(out[j].connectedAt) {
			return out[i].id < out[j].id
		}
		return out[i].connectedAt.Before(out[j].connectedAt)
	})
	return out
}

// Size returns the number of live clients.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
