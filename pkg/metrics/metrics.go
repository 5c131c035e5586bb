package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics records order transition and stock mutation counters.
type FulfillmentMetrics struct {
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	stockAdjustments   *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the engine metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order state machine transitions by action and outcome.",
	}, []string{"action", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_transition_duration_seconds",
		Help:    "Duration of order transitions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Stock ledger adjustments by change type.",
	}, []string{"type"})
	reg.MustRegister(transitions, duration, adjustments)
	return &FulfillmentMetrics{
		transitions:        transitions,
		transitionDuration: duration,
		stockAdjustments:   adjustments,
	}
}

// IncTransition increments the transition counter for the action/outcome pair.
func (m *FulfillmentMetrics) IncTransition(action, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// ObserveTransition records the duration for the named transition action.
func (m *FulfillmentMetrics) ObserveTransition(action string, duration time.Duration) {
	if m == nil || m.transitionDuration == nil {
		return
	}
	m.transitionDuration.WithLabelValues(normalizeLabel(action)).Observe(duration.Seconds())
}

// IncStockAdjustment increments the stock adjustment counter for the change type.
func (m *FulfillmentMetrics) IncStockAdjustment(changeType string) {
	if m == nil || m.stockAdjustments == nil {
		return
	}
	m.stockAdjustments.WithLabelValues(normalizeLabel(changeType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
