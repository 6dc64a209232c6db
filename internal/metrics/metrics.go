// Package metrics defines the Prometheus instruments exported by alertscope.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "alertscope"

// Metrics holds every collector registered by the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	ScrollPages     prometheus.Counter
	ScrollDocuments prometheus.Counter
	ScrollFailures  prometheus.Counter
}

// New registers the service collectors, plus the Go and process collectors,
// on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served, by route and status code.",
			},
			[]string{"route", "code"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Time spent serving HTTP requests, by route.",
				// Full scans can run for many minutes.
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 16),
			},
			[]string{"route"},
		),
		ScrollPages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scroll_pages_total",
			Help:      "Search pages fetched through scroll cursors.",
		}),
		ScrollDocuments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scroll_documents_total",
			Help:      "Alert documents fetched through scroll cursors.",
		}),
		ScrollFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scroll_failures_total",
			Help:      "Scroll sessions interrupted by a failed page fetch.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePage records one fetched scroll page.
func (m *Metrics) ObservePage(documents int) {
	if m == nil {
		return
	}
	m.ScrollPages.Inc()
	m.ScrollDocuments.Add(float64(documents))
}

// ObserveScrollFailure records an interrupted scroll.
func (m *Metrics) ObserveScrollFailure() {
	if m == nil {
		return
	}
	m.ScrollFailures.Inc()
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
