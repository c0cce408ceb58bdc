package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsInFlight tracks the number of requests currently being processed.
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// RequestsTotal counts total HTTP requests by method and status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration tracks request latency in seconds, from receipt to
	// the completion of the response (including upstream dispatch).
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// BytesReceived counts bytes received in request bodies.
	BytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_request_bytes_total",
			Help: "Total bytes received in HTTP request bodies",
		},
	)

	// BytesSent counts bytes sent in response bodies.
	BytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_response_bytes_total",
			Help: "Total bytes sent in HTTP response bodies",
		},
	)

	// AuthFailuresTotal counts verification failures by reason, without
	// that reason ever being disclosed in the HTTP response itself.
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Total number of signature verification failures",
		},
		[]string{"reason"},
	)

	// UpstreamErrorsTotal counts transport failures while dispatching to
	// the proxy URL.
	UpstreamErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_upstream_errors_total",
			Help: "Total number of upstream dispatch failures",
		},
	)

	// UpstreamDuration tracks time spent waiting on the upstream response,
	// a subset of RequestDuration.
	UpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_upstream_duration_seconds",
			Help:    "Upstream dispatch duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	// SecretStoreReloadsTotal counts FileStore reload attempts by outcome.
	SecretStoreReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_secretstore_reloads_total",
			Help: "Total number of secret store reload attempts",
		},
		[]string{"outcome"},
	)
)

// Auth failure reasons, matching gateway.authFailureReason's labels.
const (
	AuthReasonMalformedEnvelope = "malformed_envelope"
	AuthReasonBadSignature      = "bad_signature"
	AuthReasonUnknownPrincipal  = "unknown_principal"
	AuthReasonBadBody           = "bad_body"
	AuthReasonBadProxyURL       = "bad_proxy_url"
	AuthReasonOther             = "other"
)
