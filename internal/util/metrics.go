package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_reservations_total",
		Help: "Reserve, release and commit calls by operation and result",
	}, []string{"op", "result"})

	PortionsProducedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_portions_produced_total",
		Help: "Total number of dish portions produced from raw stock",
	})

	ProductionRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_production_rejected_total",
		Help: "Total number of rejected production requests",
	}, []string{"reason"})

	OrdersCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_orders_completed_total",
		Help: "Total number of completed orders",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_orders_rejected_total",
		Help: "Total number of order completions that were refused",
	}, []string{"reason"})

	LedgerOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_latency_seconds",
		Help:    "Latency of transactional ledger operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	ProductAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_product_available",
		Help: "Last observed available quantity per product, in product units",
	}, []string{"product_id"})

	LowStockAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_low_stock_alerts_total",
		Help: "Total number of low stock alerts raised",
	}, []string{"product_id"})

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
