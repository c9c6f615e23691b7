package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Components receive it explicitly; a nil *Metrics means metrics are off.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Auth Metrics
	signInsTotal *prometheus.CounterVec

	// Blink Metrics
	blinksCreatedTotal *prometheus.CounterVec
	amountsPerBlink    prometheus.Histogram

	// Action Metrics
	actionRequestsTotal *prometheus.CounterVec
	donationLamports    prometheus.Histogram

	// Database Metrics
	dbQueryDuration   *prometheus.HistogramVec
	dbOperationsTotal *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		signInsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_signins_total",
				Help: "Total number of wallet sign-in attempts by outcome",
			},
			[]string{"status"},
		),

		blinksCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blinks_created_total",
				Help: "Total number of blinks created",
			},
			[]string{"custom_input"},
		),
		amountsPerBlink: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "blink_amounts_per_blink",
				Help:    "Number of preset amounts per created blink",
				Buckets: []float64{1, 2, 3, 4, 5, 8, 10},
			},
		),

		actionRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "action_requests_total",
				Help: "Total number of Solana Action requests by kind and outcome",
			},
			[]string{"kind", "status"},
		),
		donationLamports: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "action_donation_lamports",
				Help:    "Donation amounts of assembled transactions in lamports",
				Buckets: prometheus.ExponentialBuckets(1e8, 4, 8),
			},
		),

		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"operation", "table"},
		),
		dbOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_operations_total",
				Help: "Total number of database operations by type and status",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by handler, method, and status",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of messages published to NATS",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordSignIn records the outcome of a sign-in attempt.
// status is "success" or an error code.
func (m *Metrics) RecordSignIn(status string) {
	m.signInsTotal.WithLabelValues(status).Inc()
}

// RecordBlinkCreated records a stored blink.
func (m *Metrics) RecordBlinkCreated(customInput bool, amounts int) {
	label := "false"
	if customInput {
		label = "true"
	}
	m.blinksCreatedTotal.WithLabelValues(label).Inc()
	m.amountsPerBlink.Observe(float64(amounts))
}

// RecordActionRequest records a metadata or transaction request.
func (m *Metrics) RecordActionRequest(kind, status string) {
	m.actionRequestsTotal.WithLabelValues(kind, status).Inc()
}

// RecordDonation records the donation portion of an assembled transaction.
func (m *Metrics) RecordDonation(lamports uint64) {
	m.donationLamports.Observe(float64(lamports))
}

// Database metric helpers

// RecordDBQuery records a database query with duration.
func (m *Metrics) RecordDBQuery(operation, table string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration)
	m.dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
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
