// Package observability wires logging, metrics and tracing.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cosmos-backend/domain/events"
)

// Collector holds the Prometheus metrics of one server. Each collector owns
// its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	queries         *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec

	storageRetries *prometheus.CounterVec
	lockWait       *prometheus.HistogramVec
	packages       *prometheus.CounterVec
	peerFailures   *prometheus.CounterVec
}

// NewCollector creates and registers the metrics under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched by type and outcome",
		}, []string{"type", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries dispatched by type and outcome",
		}, []string{"type", "outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		storageRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_retries_total",
			Help:      "Transient storage faults that were retried",
		}, []string{"operation"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "world_lock_wait_seconds",
			Help:      "Time spent waiting for a world lock",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"mode"}),
		packages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_total",
			Help:      "Share packages by lifecycle event",
		}, []string{"event"}),
		peerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_fetch_failures_total",
			Help:      "Network peers that could not be read",
		}, []string{"peer"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequests, c.httpDuration,
		c.commands, c.commandDuration,
		c.queries, c.queryDuration,
		c.storageRetries, c.lockWait,
		c.packages, c.peerFailures,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) ObserveCommand(name string, duration time.Duration, err error) {
	c.commands.WithLabelValues(name, outcome(err)).Inc()
	c.commandDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func (c *Collector) ObserveQuery(name string, duration time.Duration, err error) {
	c.queries.WithLabelValues(name, outcome(err)).Inc()
	c.queryDuration.WithLabelValues(name).Observe(duration.Seconds())
}

func (c *Collector) ObserveStorageRetry(operation string) {
	c.storageRetries.WithLabelValues(operation).Inc()
}

func (c *Collector) ObserveLockWait(mode string, wait time.Duration) {
	c.lockWait.WithLabelValues(mode).Observe(wait.Seconds())
}

func (c *Collector) PeerFetchFailed(peer string) {
	c.peerFailures.WithLabelValues(peer).Inc()
}

// EventHandler counts package lifecycle events from the event bus.
func (c *Collector) EventHandler() *PackageEventCounter {
	return &PackageEventCounter{packages: c.packages}
}

// PackageEventCounter is an event bus subscriber feeding packages_total.
type PackageEventCounter struct {
	packages *prometheus.CounterVec
}

// EventTypes lists the events the counter subscribes to.
func (h *PackageEventCounter) EventTypes() []string {
	return []string{events.TypePackagePublished, events.TypePackageImported, events.TypePackageRevoked}
}

func (h *PackageEventCounter) CanHandle(eventType string) bool {
	switch eventType {
	case events.TypePackagePublished, events.TypePackageImported, events.TypePackageRevoked:
		return true
	}
	return false
}

func (h *PackageEventCounter) Handle(_ context.Context, event events.DomainEvent) error {
	if h.CanHandle(event.GetEventType()) {
		h.packages.WithLabelValues(event.GetEventType()).Inc()
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
