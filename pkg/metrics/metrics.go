// Package metrics defines the Prometheus collectors used across the site and
// exposes an HTTP handler for scraping. Every recording method is safe to
// call on a nil *Metrics so components work without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the site.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	PreviewRendersTotal   *prometheus.CounterVec
	PreviewRenderDuration *prometheus.HistogramVec
	MetadataFetchesTotal  *prometheus.CounterVec
	SitemapEntries        *prometheus.GaugeVec
	SitemapRequestsTotal  *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
	EventsDroppedTotal    prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. Passing nil uses
// a fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		PreviewRendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "preview_renders_total",
				Help: "Preview image responses by kind and outcome (themed, fallback, error).",
			},
			[]string{"kind", "outcome"},
		),
		PreviewRenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "preview_render_duration_seconds",
				Help:    "End-to-end preview rendering latency in seconds.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),
		MetadataFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metadata_fetches_total",
				Help: "Metadata lookups made by the preview renderer by source and result.",
			},
			[]string{"source", "result"},
		),
		SitemapEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sitemap_entries",
				Help: "Number of entries in the most recently built sitemap per kind.",
			},
			[]string{"kind"},
		),
		SitemapRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemap_requests_total",
				Help: "Sitemap responses by kind and negotiated format.",
			},
			[]string{"kind", "format"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		EventsDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "artifact_events_dropped_total",
				Help: "Artifact events dropped because the publish buffer was full.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PreviewRendersTotal,
		m.PreviewRenderDuration,
		m.MetadataFetchesTotal,
		m.SitemapEntries,
		m.SitemapRequestsTotal,
		m.CircuitBreakerState,
		m.EventsDroppedTotal,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObservePreview records one preview response.
func (m *Metrics) ObservePreview(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PreviewRendersTotal.WithLabelValues(kind, outcome).Inc()
	m.PreviewRenderDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveMetadataFetch records one metadata lookup.
func (m *Metrics) ObserveMetadataFetch(source, result string) {
	if m == nil {
		return
	}
	m.MetadataFetchesTotal.WithLabelValues(source, result).Inc()
}

// ObserveSitemap records the size and negotiated format of one sitemap.
func (m *Metrics) ObserveSitemap(kind, format string, entries int) {
	if m == nil {
		return
	}
	m.SitemapEntries.WithLabelValues(kind).Set(float64(entries))
	m.SitemapRequestsTotal.WithLabelValues(kind, format).Inc()
}

// SetBreakerState exports a circuit breaker state as a gauge value.
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// EventDropped counts an artifact event lost to back-pressure.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.EventsDroppedTotal.Inc()
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
