package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks coordinator activity on a dedicated prometheus registry.
//
// Design decision: Every method is nil-safe so code paths that run without
// metrics (unit tests, library use) can pass a nil *Metrics instead of
// threading conditionals through the call sites.
type Metrics struct {
	registry *prometheus.Registry

	resultsReceived prometheus.Counter
	queueDepth      prometheus.Gauge
	queueEvictions  prometheus.Counter
	sessionsExpired prometheus.Counter
	scrapeWait      prometheus.Histogram
	verdicts        *prometheus.CounterVec
}

// NewMetrics creates coordinator metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resultsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partsync_results_received_total",
			Help: "Scrape results accepted from the extension.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "partsync_queue_depth",
			Help: "Current number of buffered scrape results.",
		}),
		queueEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partsync_queue_evictions_total",
			Help: "Results dropped because the queue was full.",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partsync_sessions_expired_total",
			Help: "Sessions that hit their TTL without closing.",
		}),
		scrapeWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "partsync_scrape_wait_seconds",
			Help:    "Time spent waiting for a session's scrape result.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "partsync_verdicts_total",
			Help: "Validation verdicts by category.",
		}, []string{"verdict"}),
	}

	m.registry.MustRegister(
		m.resultsReceived,
		m.queueDepth,
		m.queueEvictions,
		m.sessionsExpired,
		m.scrapeWait,
		m.verdicts,
	)
	return m
}

// Registry returns the underlying prometheus registry for the /metrics
// handler. Returns nil on a nil receiver.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ResultReceived counts an accepted scrape result.
func (m *Metrics) ResultReceived() {
	if m == nil {
		return
	}
	m.resultsReceived.Inc()
}

// SetQueueDepth records the current queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// QueueEviction counts a dropped result.
func (m *Metrics) QueueEviction() {
	if m == nil {
		return
	}
	m.queueEvictions.Inc()
}

// SessionExpired counts a TTL expiry.
func (m *Metrics) SessionExpired() {
	if m == nil {
		return
	}
	m.sessionsExpired.Inc()
}

// ObserveScrapeWait records how long a consumer waited for a result.
func (m *Metrics) ObserveScrapeWait(seconds float64) {
	if m == nil {
		return
	}
	m.scrapeWait.Observe(seconds)
}

// Verdict counts a validation verdict by its category name.
func (m *Metrics) Verdict(category string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(category).Inc()
}
