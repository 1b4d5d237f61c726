package hub

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/segmentio/ksuid"

	"go-scoreboard-sse/internal/infrastructure/logger"
)

var (
	ErrHubNotRunning     = errors.New("hub is not running")
	ErrHubAlreadyRunning = errors.New("hub is already running")
	ErrInvalidClientID   = errors.New("invalid client id")
	ErrAckFailed         = errors.New("failed to send connection acknowledgement")
)

// Client supplied ids are accepted as-is when they match this pattern; server issued
// ids are KSUIDs and always do.
var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ValidateClientID accepts an empty id (one will be issued) or one matching the
// client id pattern.
func ValidateClientID(id string) error {
	if id != "" && !clientIDPattern.MatchString(id) {
		return ErrInvalidClientID
	}
	return nil
}

// Options tune the hub. Zero values are replaced by DefaultOptions.
type Options struct {
	HeartbeatInterval  time.Duration
	StaleAfter         time.Duration
	WriteTimeout       time.Duration
	ResumeWindow       time.Duration
	PublishConcurrency int

	Clock   clockwork.Clock
	Metrics *Metrics
}

// DefaultOptions returns the production timing: 3s keepalives, 10s staleness
func DefaultOptions() Options {
	return Options{
		HeartbeatInterval:  3 * time.Second,
		StaleAfter:         10 * time.Second,
		WriteTimeout:       2 * time.Second,
		ResumeWindow:       10 * time.Second,
		PublishConcurrency: 64,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = d.HeartbeatInterval
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = d.StaleAfter
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.ResumeWindow <= 0 {
		o.ResumeWindow = o.StaleAfter
	}
	if o.PublishConcurrency <= 0 {
		o.PublishConcurrency = d.PublishConcurrency
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Hub owns the connection registry and everything that mutates it: admission,
// heartbeat monitors, the staleness sweeper, fan-out and maintenance.
type Hub struct {
	registry *Registry
	opts     Options
	clock    clockwork.Clock
	metrics  *Metrics
	logger   logger.Logger

	// admitting serializes admissions per client id.
	admitting   map[string]*admitLock
	admittingMu sync.Mutex

	running   bool
	runningMu sync.RWMutex

	// wg tracks the sweeper and async publishes.
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type admitLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a new Hub instance
func New(logger logger.Logger, opts Options) *Hub {
	opts = opts.withDefaults()
	return &Hub{
		registry:  NewRegistry(opts.Clock),
		opts:      opts,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
		logger:    logger.WithField("component", "hub"),
		admitting: make(map[string]*admitLock),
	}
}

// Start starts the staleness sweeper. Admissions are refused until Start.
func (h *Hub) Start(ctx context.Context) error {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if h.running {
		return ErrHubAlreadyRunning
	}

	h.ctx, h.cancel = context.WithCancel(ctx)
	h.running = true

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runSweeper(h.ctx)
	}()

	h.logger.Infof(
		"Hub started (heartbeat %s, stale after %s, write timeout %s)",
		h.opts.HeartbeatInterval, h.opts.StaleAfter, h.opts.WriteTimeout,
	)
	return nil
}

// Stop refuses new work, retires every client and waits for the sweeper and
// in-flight async publishes, bounded by ctx.
func (h *Hub) Stop(ctx context.Context) error {
	h.runningMu.Lock()
	if !h.running {
		h.runningMu.Unlock()
		return nil
	}
	h.running = false
	h.cancel()
	h.runningMu.Unlock()

	cleared := h.ForceClear()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Infof("Hub stopped, %d clients disconnected", cleared.Removed)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("hub stop: %w", ctx.Err())
	}
}

// IsRunning returns true if the hub is currently running
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}

// Registry exposes the live client set for read access. Its mutators are
// unexported so that every removal also retires the client.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ConnectionCount returns the number of live clients
func (h *Hub) ConnectionCount() int {
	return h.registry.Size()
}

// Admit runs the admission protocol for a freshly opened stream.
//
// requestedID empty: a new id is issued. requestedID live or recently retired: the
// client resumes it, retiring any live entry first. Otherwise the unknown id is
// adopted as a fresh entry. The acknowledgement is written before the client
// becomes visible to broadcasts, so it is always the first frame on the stream.
// A live entry is only replaced once the new stream has accepted its
// acknowledgement; a failed admission leaves it untouched.
func (h *Hub) Admit(ctx context.Context, requestedID string, stream Stream) (*Client, error) {
	// Held for the whole admission so Stop cannot clear the registry underneath it.
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	if !h.running {
		return nil, ErrHubNotRunning
	}

	if err := ValidateClientID(requestedID); err != nil {
		return nil, err
	}
	id := requestedID
	mode := AdmissionNew
	if id == "" {
		id = ksuid.New().String()
	}

	unlock := h.lockID(id)
	defer unlock()

	resumed := false
	if requestedID != "" {
		resumed = h.registry.Seen(id, h.opts.ResumeWindow)
		mode = AdmissionFreshID
		if resumed {
			mode = AdmissionResumed
		}
	}

	log := h.logger.WithField("client_id", id)

	actx, cancel := context.WithTimeout(ctx, h.opts.WriteTimeout)
	err := stream.Send(actx, connectedFrame(id))
	cancel()
	if err != nil {
		_ = stream.Close()
		log.WithError(err).Warn("Acknowledgement failed, admission rejected")
		return nil, fmt.Errorf("%w: %v", ErrAckFailed, err)
	}

	// The previous entry may vanish between Get and removeClient; that is fine.
	if prev, ok := h.registry.Get(id); ok {
		if h.registry.removeClient(prev) {
			h.metrics.evicted(ReasonReplaced, h.registry.Size())
		}
		h.retire(prev)
	}

	c, replaced := h.registry.insert(id, stream, resumed)
	if replaced != nil {
		h.retire(replaced)
	}
	c.heartbeat.start(h.runMonitor(c))

	h.metrics.admitted(mode, h.registry.Size())
	log.WithFields(map[string]any{
		"transport": stream.Type(),
		"mode":      mode,
	}).Info("Client admitted")
	return c, nil
}

// Abort is the transport-level disconnect hook: it stops the client's monitor and
// removes its entry synchronously.
func (h *Hub) Abort(c *Client) {
	if h.registry.removeClient(c) {
		h.metrics.evicted(ReasonAborted, h.registry.Size())
		h.logger.WithField("client_id", c.id).Info("Client stream aborted")
	}
	h.retire(c)
}

// Disconnect is the client-initiated release of id. It is idempotent and reports
// whether the id was live, plus the number of remaining clients.
func (h *Hub) Disconnect(id string) (bool, int) {
	c, ok := h.registry.remove(id)
	remaining := h.registry.Size()
	if !ok {
		return false, remaining
	}

	h.metrics.evicted(ReasonDisconnected, remaining)
	h.retire(c)
	h.logger.WithField("client_id", id).Info("Client disconnected")
	return true, remaining
}

// retire closes the client's stream and stops its monitor. Closing first releases a
// monitor blocked in a write. Safe to call repeatedly; must not be called from the
// client's own monitor goroutine.
func (h *Hub) retire(c *Client) error {
	err := c.stream.Close()
	c.heartbeat.stop()
	return err
}

func (h *Hub) lockID(id string) func() {
	h.admittingMu.Lock()
	l, ok := h.admitting[id]
	if !ok {
		l = &admitLock{}
		h.admitting[id] = l
	}
	l.refs++
	h.admittingMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		h.admittingMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.admitting, id)
		}
		h.admittingMu.Unlock()
	}
}
