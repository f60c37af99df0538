// Package performance provides performance tracking backed by prometheus
// collectors, exposed on the gateway's /metrics endpoint.
package performance

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ussd"

// Tracker owns the gateway's collectors and hands out operation markers
type Tracker struct {
	registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	requests          *prometheus.CounterVec
	sessionsSwept     prometheus.Counter
	notifications     *prometheus.CounterVec
	rateLimited       prometheus.Counter
}

// NewTracker creates a tracker with its own registry, so tests can build as many as they like.
func NewTracker() *Tracker {
	t := &Tracker{
		registry: prometheus.NewRegistry(),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of tracked gateway operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "success"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "USSD requests by menu and outcome (continue, end, error).",
		}, []string{"menu", "outcome"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_swept_total",
			Help:      "Sessions removed by the expiry sweep.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by status (sent, failed, dropped).",
		}, []string{"status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-phone rate limiter.",
		}),
	}

	t.registry.MustRegister(
		t.operationDuration,
		t.requests,
		t.sessionsSwept,
		t.notifications,
		t.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return t
}

// StartOperation creates a marker whose completion is observed by the tracker
func (t *Tracker) StartOperation(operation string) *Marker {
	return &Marker{
		Operation: operation,
		StartTime: time.Now(),
		Success:   true, // Assume success until proven otherwise
		tracker:   t,
	}
}

func (t *Tracker) observe(m *Marker) {
	success := "true"
	if !m.Success {
		success = "false"
	}
	t.operationDuration.WithLabelValues(m.Operation, success).Observe(m.Duration.Seconds())
}

// RecordRequest counts one answered USSD request
func (t *Tracker) RecordRequest(menu, outcome string) {
	t.requests.WithLabelValues(menu, outcome).Inc()
}

// RecordSwept counts sessions removed by a sweep
func (t *Tracker) RecordSwept(n int) {
	if n > 0 {
		t.sessionsSwept.Add(float64(n))
	}
}

// RecordNotification counts one notification outcome
func (t *Tracker) RecordNotification(status string) {
	t.notifications.WithLabelValues(status).Inc()
}

// RecordRateLimited counts one rejected request
func (t *Tracker) RecordRateLimited() {
	t.rateLimited.Inc()
}

// RegisterGaugeFunc exposes a value computed at scrape time
func (t *Tracker) RegisterGaugeFunc(name, help string, fn func() float64) {
	t.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Registry exposes the underlying registry, mainly for tests
func (t *Tracker) Registry() *prometheus.Registry {
	return t.registry
}

// Handler serves the registry in the prometheus exposition format
func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{Registry: t.registry})
}
