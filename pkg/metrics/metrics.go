// Package metrics holds the Prometheus collectors for NOAI.
//
// Collectors are created once by Init and shared process-wide. Every Record
// function is a no-op until Init has run, so packages can record
// unconditionally and tests that never call Init pay nothing.
//
// Metrics collected (namespace "noai" by default):
//   - optimistic_transitions_total{action,outcome}
//   - optimistic_effect_duration_seconds{action}
//   - notifications_fetch_total{status}
//   - notifications_new_signals_total
//   - backend_calls_total{op,status}
//   - active_sessions
//   - push_frames_total{type}
//   - websocket_errors_total{type}
//   - http_requests_total{method,route,status}
//   - http_request_duration_seconds{method,route}
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Optimistic transition outcomes.
const (
	OutcomeApplied    = "applied"
	OutcomeConfirmed  = "confirmed"
	OutcomeRolledBack = "rolled_back"
	OutcomeDropped    = "dropped"
	OutcomeDiscarded  = "discarded"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "noai").
	Namespace string

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures Init.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		if namespace != "" {
			c.Namespace = namespace
		}
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "noai",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type collectors struct {
	transitions    *prometheus.CounterVec
	effectDuration *prometheus.HistogramVec
	fetches        *prometheus.CounterVec
	newSignals     prometheus.Counter
	backendCalls   *prometheus.CounterVec
	activeSessions prometheus.Gauge
	pushFrames     *prometheus.CounterVec
	wsErrors       *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var (
	global   *collectors
	globalMu sync.RWMutex
)

// Init creates and registers the collectors. Calls after the first are
// no-ops.
func Init(opts ...Option) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if global != nil {
		return
	}
	global = newCollectors(cfg)
}

// Enabled reports whether Init has run.
func Enabled() bool {
	return get() != nil
}

func get() *collectors {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

func newCollectors(cfg Config) *collectors {
	factory := promauto.With(cfg.Registry)
	ns := cfg.Namespace

	return &collectors{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "optimistic_transitions_total",
			Help:      "Optimistic transitions by action and outcome",
		}, []string{"action", "outcome"}),

		effectDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "optimistic_effect_duration_seconds",
			Help:      "Duration of confirming effects in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"action"}),

		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "notifications_fetch_total",
			Help:      "Notification list fetches by status",
		}, []string{"status"}),

		newSignals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "notifications_new_signals_total",
			Help:      "Times the background poll raised the new-notification flag",
		}),

		backendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "backend_calls_total",
			Help:      "Mock backend calls by operation and status",
		}, []string{"op", "status"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "active_sessions",
			Help:      "Number of open client sessions",
		}),

		pushFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "push_frames_total",
			Help:      "Frames pushed to clients over WebSocket by type",
		}, []string{"type"}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "websocket_errors_total",
			Help:      "Total WebSocket errors by type",
		}, []string{"type"}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"method", "route"}),
	}
}

// =============================================================================
// Recording Functions
// =============================================================================

// RecordTransition counts one optimistic transition outcome.
func RecordTransition(action, outcome string) {
	if m := get(); m != nil {
		m.transitions.WithLabelValues(action, outcome).Inc()
	}
}

// ObserveEffect records how long a confirming effect took.
func ObserveEffect(action string, d time.Duration) {
	if m := get(); m != nil {
		m.effectDuration.WithLabelValues(action).Observe(d.Seconds())
	}
}

// RecordFetch counts a notification fetch ("success", "error" or "stale").
func RecordFetch(status string) {
	if m := get(); m != nil {
		m.fetches.WithLabelValues(status).Inc()
	}
}

// RecordNewSignal counts the poll raising the new-notification flag.
func RecordNewSignal() {
	if m := get(); m != nil {
		m.newSignals.Inc()
	}
}

// RecordBackendCall counts a mock backend call.
func RecordBackendCall(op string, err error) {
	if m := get(); m != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.backendCalls.WithLabelValues(op, status).Inc()
	}
}

// RecordSessionOpen records a new session.
func RecordSessionOpen() {
	if m := get(); m != nil {
		m.activeSessions.Inc()
	}
}

// RecordSessionClose records a closed session.
func RecordSessionClose() {
	if m := get(); m != nil {
		m.activeSessions.Dec()
	}
}

// RecordPush counts a frame pushed to a client.
func RecordPush(frameType string) {
	if m := get(); m != nil {
		m.pushFrames.WithLabelValues(frameType).Inc()
	}
}

// RecordWebSocketError records a WebSocket error.
func RecordWebSocketError(errorType string) {
	if m := get(); m != nil {
		m.wsErrors.WithLabelValues(errorType).Inc()
	}
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if m := get(); m != nil {
		m.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

// statusClass keeps label cardinality bounded ("2xx", "4xx", ...).
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

// Reset drops the collectors so Init can run again with a fresh registry.
// Intended for tests in other packages.
func Reset() {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()
}
