// Package telemetry exposes service counters in Prometheus format.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/influmetrics-core/internal/core/ports/driven"
)

// Ensure Prometheus implements Telemetry
var _ driven.Telemetry = (*Prometheus)(nil)

const namespace = "influmetrics"

// Prometheus records counters on a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	logins        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	graphRequests *prometheus.CounterVec
	graphDuration *prometheus.HistogramVec
}

// New creates the collectors, including Go runtime and process metrics.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instagram_logins_total",
			Help:      "Completed Instagram logins by outcome or failing stage.",
		}, []string{"outcome"}),
		invalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instagram_token_invalidations_total",
			Help:      "Token bundles cleared after the provider rejected the token.",
		}, []string{"source"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instagram_token_refreshes_total",
			Help:      "Long-lived token refreshes by outcome.",
		}, []string{"outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		graphRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_requests_total",
			Help:      "Outgoing Graph API requests by method and status code.",
		}, []string{"method", "code"}),
		graphDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graph_request_duration_seconds",
			Help:      "Outgoing Graph API latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "code"}),
	}
}

func (p *Prometheus) LoginCompleted(outcome string) {
	p.logins.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) TokenInvalidated(source string) {
	p.invalidations.WithLabelValues(source).Inc()
}

func (p *Prometheus) TokenRefreshed(outcome string) {
	p.refreshes.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (p *Prometheus) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// InstrumentTransport wraps an outgoing transport with request counters.
// A nil transport wraps http.DefaultTransport.
func (p *Prometheus) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(p.graphRequests,
		promhttp.InstrumentRoundTripperDuration(p.graphDuration, next))
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
