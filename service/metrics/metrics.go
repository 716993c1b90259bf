package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Upstream provider metrics
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	transactionsFetched     prometheus.Histogram

	// Scan pipeline metrics
	scansTotal            *prometheus.CounterVec
	tokenEnrichmentsTotal *prometheus.CounterVec
	profileScore          prometheus.Histogram

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		upstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Total number of upstream provider requests by provider and status class",
			},
			[]string{"provider", "status"},
		),
		upstreamRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Duration of upstream provider requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"provider"},
		),
		transactionsFetched: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "transactions_fetched_per_scan",
				Help:    "Number of transaction records returned per wallet fetch",
				Buckets: []float64{0, 1, 10, 25, 50, 80, 100},
			},
		),

		scansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_scans_total",
				Help: "Total number of completed wallet scans by assembly path",
			},
			[]string{"path", "premium"},
		),
		tokenEnrichmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_enrichments_total",
				Help: "Total number of per-mint market data lookups by result",
			},
			[]string{"result"},
		),
		profileScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wallet_profile_score",
				Help:    "Distribution of computed wallet profile scores",
				Buckets: prometheus.LinearBuckets(10, 10, 9),
			},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"status"},
		),
	}
}

// Upstream metric helpers

// RecordUpstreamRequest records a call to an upstream provider.
// A statusCode of 0 means the request never produced a response.
func (m *Metrics) RecordUpstreamRequest(provider string, statusCode int, duration float64) {
	status := "error"
	if statusCode != 0 {
		status = statusCodeToString(statusCode)
	}
	m.upstreamRequestsTotal.WithLabelValues(provider, status).Inc()
	m.upstreamRequestDuration.WithLabelValues(provider).Observe(duration)
}

// RecordTransactionsFetched records how many records one wallet fetch returned.
func (m *Metrics) RecordTransactionsFetched(count int) {
	m.transactionsFetched.Observe(float64(count))
}

// Scan metric helpers

// RecordScan records a completed scan. path is "empty" or "normal".
func (m *Metrics) RecordScan(path string, premium bool) {
	p := "false"
	if premium {
		p = "true"
	}
	m.scansTotal.WithLabelValues(path, p).Inc()
}

// RecordTokenEnrichment records a per-mint lookup result ("ok" or "degraded").
func (m *Metrics) RecordTokenEnrichment(result string) {
	m.tokenEnrichmentsTotal.WithLabelValues(result).Inc()
}

// RecordProfileScore records a computed profile score.
func (m *Metrics) RecordProfileScore(score int) {
	m.profileScore.Observe(float64(score))
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish attempt.
func (m *Metrics) RecordNATSPublish(status string) {
	m.natsMessagesPublished.WithLabelValues(status).Inc()
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
