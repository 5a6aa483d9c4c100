package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics instruments the order workflow. A nil receiver is a no-op so
// services can run without a registry.
type OrderMetrics struct {
	placed      prometheus.Counter
	failed      *prometheus.CounterVec
	duration    prometheus.Histogram
	transitions *prometheus.CounterVec
	txRetries   *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on reg.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		placed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders created from carts.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_placement_failures_total",
			Help: "Rejected order placements by reason.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_placement_duration_seconds",
			Help:    "Wall time of order placement including retries.",
			Buckets: prometheus.DefBuckets,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status changes by target status and actor role.",
		}, []string{"status", "role"}),
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_tx_retries_total",
			Help: "Transactions replayed after serialization failures or deadlocks.",
		}, []string{"operation"}),
	}
	reg.MustRegister(m.placed, m.failed, m.duration, m.transitions, m.txRetries)
	return m
}

func (m *OrderMetrics) IncPlaced() {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.Inc()
}

func (m *OrderMetrics) IncPlacementFailure(reason string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OrderMetrics) ObservePlacement(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

func (m *OrderMetrics) IncTransition(status, role string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(role)).Inc()
}

func (m *OrderMetrics) IncTxRetry(operation string) {
	if m == nil || m.txRetries == nil {
		return
	}
	m.txRetries.WithLabelValues(normalizeLabel(operation)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
