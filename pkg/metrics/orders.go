package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts committed order transitions and settlements.
type OrderMetrics struct {
	transitions     *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	settlements     prometheus.Counter
	settledAmount   prometheus.Counter
	albumDeliveries prometheus.Counter
}

// NewOrderMetrics registers the order collectors. A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	m := &OrderMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Committed order status transitions.",
		}, []string{"from", "to", "role"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_rejected_total",
			Help:      "Order transitions refused by the state machine.",
		}, []string{"reason"}),
		settlements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_settlements_total",
			Help:      "Orders paid out to photographers.",
		}),
		settledAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_settled_amount_vnd_total",
			Help:      "Sum of photographer payouts in VND.",
		}),
		albumDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "album_deliveries_total",
			Help:      "Albums finalized with edited photos.",
		}),
	}
	reg.MustRegister(m.transitions, m.rejected, m.settlements, m.settledAmount, m.albumDeliveries)
	return m
}

func (m *OrderMetrics) ObserveTransition(from, to, role string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(from, to, role).Inc()
}

// ObserveRejection records why a transition was refused (invalid_transition, forbidden, conflict).
func (m *OrderMetrics) ObserveRejection(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OrderMetrics) ObserveSettlement(amount int64) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.Inc()
	if amount > 0 {
		m.settledAmount.Add(float64(amount))
	}
}

func (m *OrderMetrics) ObserveAlbumDelivery() {
	if m == nil || m.albumDeliveries == nil {
		return
	}
	m.albumDeliveries.Inc()
}
