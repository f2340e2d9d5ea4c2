package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders successfully placed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected or failed order attempts",
	}, []string{"reason"})

	OrderPlacementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_placement_latency_seconds",
		Help:    "Latency of the order placement transaction",
		Buckets: prometheus.DefBuckets,
	})

	FraudVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fraud_verdicts_total",
		Help: "Total number of fraud verdicts by risk band",
	}, []string{"risk"})

	StockDecrementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_decrements_total",
		Help: "Total number of committed stock decrements",
	})

	StockAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjustments_total",
		Help: "Total number of admin stock adjustments",
	}, []string{"type"})

	InsufficientStockTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "insufficient_stock_total",
		Help: "Total number of order attempts rejected for insufficient stock",
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of products that crossed their reorder threshold",
	})

	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Total number of cart mutations",
	}, []string{"action"})

	BroadcastsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "broadcasts_sent_total",
		Help: "Total number of events delivered to connected sessions",
	}, []string{"event_type"})

	BroadcastsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadcasts_dropped_total",
		Help: "Total number of events dropped for slow or closed sessions",
	})

	SessionsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sessions_connected",
		Help: "Number of currently connected broadcast sessions",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
