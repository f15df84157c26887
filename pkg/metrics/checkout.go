package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts order placement attempts by payment method and outcome.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
}

// Checkout outcomes.
const (
	OutcomePlaced    = "placed"
	OutcomeFailed    = "failed"
	OutcomeDismissed = "dismissed"
)

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_attempts",
		Help: "Order placement attempts by payment method and outcome.",
	}, []string{"method", "outcome"})
	reg.MustRegister(attempts)
	return &CheckoutMetrics{attempts: attempts}
}

// Observe counts one checkout attempt.
func (m *CheckoutMetrics) Observe(method, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(method), normalizeLabel(outcome)).Inc()
}
