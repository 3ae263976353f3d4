// Package metrics exposes the Prometheus collectors of the payout service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "batch_payout"

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	transfers         *prometheus.CounterVec
	stageDuration     *prometheus.HistogramVec
	walletSubmissions *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Batch transfers by token and outcome.",
		}, []string{"token", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_stage_duration_seconds",
			Help:      "Time spent in each transfer stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		walletSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_submissions_total",
			Help:      "Transactions submitted through the wallet service.",
		}, []string{"kind", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
	}
	reg.MustRegister(m.transfers, m.stageDuration, m.walletSubmissions, m.httpRequests)
	return m
}

// ObserveTransfer counts a finished transfer.
func (m *Metrics) ObserveTransfer(token, outcome string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(token, outcome).Inc()
}

// ObserveStage records how long a transfer stage took.
func (m *Metrics) ObserveStage(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveSubmission counts a wallet service submission; kind is "approve" or "execute".
func (m *Metrics) ObserveSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.walletSubmissions.WithLabelValues(kind, outcome).Inc()
}

// ObserveHTTPRequest counts a served request.
func (m *Metrics) ObserveHTTPRequest(route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, status).Inc()
}
