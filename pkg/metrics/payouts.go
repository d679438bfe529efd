package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PayoutMetrics records payout lifecycle and provider call outcomes.
type PayoutMetrics struct {
	transitions      *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	providerFailures *prometheus.CounterVec
}

// NewPayoutMetrics registers the payout metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_transitions_total",
		Help: "Payout status transitions, labeled by action and resulting status.",
	}, []string{"action", "status"})
	providerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_call_duration_seconds",
		Help:    "Duration of payment provider calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	providerFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_call_failures_total",
		Help: "Failed payment provider calls.",
	}, []string{"operation"})
	reg.MustRegister(transitions, providerDuration, providerFailures)
	return &PayoutMetrics{
		transitions:      transitions,
		providerDuration: providerDuration,
		providerFailures: providerFailures,
	}
}

// IncTransition counts one status transition for the given action.
func (p *PayoutMetrics) IncTransition(action, status string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(status)).Inc()
}

// ObserveProviderCall records the duration for the named provider operation.
func (p *PayoutMetrics) ObserveProviderCall(operation string, duration time.Duration) {
	if p == nil || p.providerDuration == nil {
		return
	}
	p.providerDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncProviderFailure counts one failed provider call.
func (p *PayoutMetrics) IncProviderFailure(operation string) {
	if p == nil || p.providerFailures == nil {
		return
	}
	p.providerFailures.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
