// Package telemetry holds Prometheus metrics for business-level
// observability of the checkout funnel.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds business metrics. A Registerer is injected so tests can use
// an isolated registry.
type Metrics struct {
	// Checkout funnel
	CheckoutStarted   prometheus.Counter
	CheckoutCompleted prometheus.Counter
	CheckoutRejected  *prometheus.CounterVec // reason: empty_cart, insufficient_stock
	CheckoutFailed    prometheus.Counter

	// Orders
	OrdersCreated  prometheus.Counter
	OrderValue     prometheus.Histogram
	OrderItemCount prometheus.Histogram

	// Cart
	CartUpdated *prometheus.CounterVec // action: add, set_quantity, remove, clear
}

// NewMetrics creates and registers all business metrics.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "vanir"
	}
	factory := promauto.With(reg)
	subsystem := "business"

	return &Metrics{
		CheckoutStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_started_total",
			Help:      "Total checkout attempts",
		}),
		CheckoutCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_completed_total",
			Help:      "Total successful checkouts",
		}),
		CheckoutRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_rejected_total",
			Help:      "Total checkouts rejected by business rules",
		}, []string{"reason"}),
		CheckoutFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checkout_failed_total",
			Help:      "Total checkouts aborted by system faults",
		}),
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_created_total",
			Help:      "Total orders created",
		}),
		OrderValue: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_value_cents",
			Help:      "Order value distribution in cents",
			Buckets:   []float64{1000, 2500, 5000, 7500, 10000, 15000, 25000, 50000, 100000},
		}),
		OrderItemCount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_item_count",
			Help:      "Number of items per order",
			Buckets:   []float64{1, 2, 3, 5, 10, 15, 20},
		}),
		CartUpdated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cart_updated_total",
			Help:      "Total cart mutation operations",
		}, []string{"action"}),
	}
}
