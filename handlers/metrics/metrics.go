// Package metrics is a handler that exports Prometheus metrics
// about TLS handshakes.
package metrics

import (
	"github.com/ooni/sslprotocols/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handler is a handler that updates metrics.
type Handler struct {
	// handshakes counts the TLS handshakes by outcome and version.
	handshakes *prometheus.CounterVec

	// duration observes how long TLS handshakes take (in seconds).
	duration *prometheus.HistogramVec
}

// NewHandler creates a new Handler registering its metrics with reg.
func NewHandler(reg prometheus.Registerer) *Handler {
	factory := promauto.With(reg)
	return &Handler{
		handshakes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sslprotocols_tls_handshakes_total",
			Help: "Total number of TLS handshakes by outcome and negotiated version",
		}, []string{"outcome", "version"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sslprotocols_tls_handshake_duration_seconds",
			Help:    "Time to complete the TLS handshake (in seconds)",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"outcome"}),
	}
}

// OnMeasurement updates the metrics using m.
func (h *Handler) OnMeasurement(m model.Measurement) {
	if m.TLSHandshakeDone == nil {
		return
	}
	ev := m.TLSHandshakeDone
	version := "none"
	if ev.ConnectionState.Version != 0 {
		version = ev.ConnectionState.Version.String()
	}
	h.handshakes.WithLabelValues(ev.Outcome, version).Inc()
	h.duration.WithLabelValues(ev.Outcome).Observe(ev.Duration.Seconds())
}
