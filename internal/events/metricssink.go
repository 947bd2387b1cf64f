package events

import (
	"github.com/prometheus/client_golang/prometheus"

	"matchcore/internal/core"
)

// MetricsSink records order and trade activity as Prometheus series.
// Grounded in the examples pack's cypherlabdev-order-book-service go.mod,
// which reaches for prometheus/client_golang for exactly this concern.
type MetricsSink struct {
	ordersByStatus  *prometheus.CounterVec
	rejectsByReason *prometheus.CounterVec
	tradeSize       prometheus.Histogram
}

// NewMetricsSink builds a sink and registers its series with reg. Passing a
// dedicated registry (rather than the global default) lets tests and
// multiple engine instances avoid duplicate-registration panics.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		ordersByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchcore",
			Subsystem: "orders",
			Name:      "events_total",
			Help:      "Order events emitted by the matching engine, by status.",
		}, []string{"status"}),
		rejectsByReason: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchcore",
			Subsystem: "orders",
			Name:      "rejects_total",
			Help:      "Rejected order events, by reject reason.",
		}, []string{"reason"}),
		tradeSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchcore",
			Subsystem: "trades",
			Name:      "size",
			Help:      "Size of each executed trade.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(s.ordersByStatus, s.rejectsByReason, s.tradeSize)
	return s
}

func (s *MetricsSink) OnOrderEvent(e core.OrderEvent) {
	s.ordersByStatus.WithLabelValues(e.Status.String()).Inc()
	if e.Status == core.Rejected {
		s.rejectsByReason.WithLabelValues(e.RejectReason.String()).Inc()
	}
}

func (s *MetricsSink) OnTradeEvent(e core.TradeEvent) {
	s.tradeSize.Observe(float64(e.Size))
}
