package hub

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scoreboard"

// Eviction reasons, used as the "reason" metric label.
const (
	ReasonStale           = "stale"
	ReasonKeepAliveFailed = "keepalive_failed"
	ReasonPublishFailed   = "publish_failed"
	ReasonAborted         = "aborted"
	ReasonDisconnected    = "disconnected"
	ReasonReplaced        = "replaced"
	ReasonForceCleared    = "force_cleared"
)

// Admission modes, used as the "mode" metric label.
const (
	AdmissionNew     = "new"
	AdmissionFreshID = "fresh_id"
	AdmissionResumed = "resumed"
)

// Metrics holds the Prometheus instruments of the hub. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ConnectedClients prometheus.Gauge
	Admissions       *prometheus.CounterVec
	Evictions        *prometheus.CounterVec
	KeepAlives       prometheus.Counter
	Deliveries       prometheus.Counter
	PublishDuration  prometheus.Histogram
}

// NewMetrics creates and registers the hub metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "connected_clients",
			Help:      "Number of live push connections.",
		}),
		Admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "admissions_total",
			Help:      "Stream admissions by mode (new, fresh_id, resumed).",
		}, []string{"mode"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "evictions_total",
			Help:      "Clients removed from the registry by reason.",
		}, []string{"reason"}),
		KeepAlives: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "keepalives_total",
			Help:      "Successful keepalive writes.",
		}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "deliveries_total",
			Help:      "Successful event deliveries to clients.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "publish_duration_seconds",
			Help:      "Wall time of one fan-out.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5},
		}),
	}

	reg.MustRegister(
		m.ConnectedClients,
		m.Admissions,
		m.Evictions,
		m.KeepAlives,
		m.Deliveries,
		m.PublishDuration,
	)
	return m
}

func (m *Metrics) admitted(mode string, size int) {
	if m == nil {
		return
	}
	m.Admissions.WithLabelValues(mode).Inc()
	m.ConnectedClients.Set(float64(size))
}

func (m *Metrics) evicted(reason string, size int) {
	if m == nil {
		return
	}
	m.Evictions.WithLabelValues(reason).Inc()
	m.ConnectedClients.Set(float64(size))
}

func (m *Metrics) keepAlive() {
	if m == nil {
		return
	}
	m.KeepAlives.Inc()
}

func (m *Metrics) published(r PublishResult, took time.Duration) {
	if m == nil {
		return
	}
	m.Deliveries.Add(float64(r.Delivered))
	m.PublishDuration.Observe(took.Seconds())
}
