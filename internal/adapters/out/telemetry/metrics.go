// Package telemetry exposes registry metrics in the Prometheus format.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bnema/hangar/internal/boundaries/out"
)

const namespace = "hangar"

var _ out.RegistryMetrics = (*Metrics)(nil)

// Metrics holds the hangar Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Registry
	blobsCommitted  *prometheus.CounterVec
	blobBytes       *prometheus.CounterVec
	uploadsFinished *prometheus.CounterVec
	manifestsPushed *prometheus.CounterVec

	// HTTP
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers every hangar collector, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		blobsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "blobs_committed_total",
			Help:      "Blobs committed to storage, by repository.",
		}, []string{"repository"}),
		blobBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "blob_bytes_committed_total",
			Help:      "Bytes of blob content committed to storage, by repository.",
		}, []string{"repository"}),
		uploadsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "uploads_finished_total",
			Help:      "Blob uploads that left the in-progress state, by outcome.",
		}, []string{"outcome"}),
		manifestsPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "manifests_pushed_total",
			Help:      "Manifests pushed, by repository and media type.",
		}, []string{"repository", "media_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route, method and status code.",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests in seconds, by route and method.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.blobsCommitted,
		m.blobBytes,
		m.uploadsFinished,
		m.manifestsPushed,
		m.requests,
		m.requestDuration,
	)

	return m
}

// BlobCommitted implements out.RegistryMetrics.
func (m *Metrics) BlobCommitted(repository string, size int64) {
	m.blobsCommitted.WithLabelValues(repository).Inc()
	m.blobBytes.WithLabelValues(repository).Add(float64(size))
}

// UploadFinished implements out.RegistryMetrics.
func (m *Metrics) UploadFinished(outcome string) {
	m.uploadsFinished.WithLabelValues(outcome).Inc()
}

// ManifestPushed implements out.RegistryMetrics.
func (m *Metrics) ManifestPushed(repository, mediaType string) {
	m.manifestsPushed.WithLabelValues(repository, mediaType).Inc()
}

// ObserveRequest records one served HTTP request. Route is the matched route
// name, never the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
