// Package metrics holds the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "engine_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// PaymentsCreated counts payment intents by provider and initial status
	PaymentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_payments_created_total",
			Help: "Payment intents created, by provider and resulting status",
		},
		[]string{"provider", "status"},
	)

	// PaymentTransitions counts payment intent status changes
	PaymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_payment_transitions_total",
			Help: "Payment intent status transitions",
		},
		[]string{"provider", "to", "source"},
	)

	// WebhookOutcomes counts webhook deliveries by provider and outcome
	WebhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_webhook_outcomes_total",
			Help: "Webhook deliveries by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// OrderTransitions counts order status changes
	OrderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_order_transitions_total",
			Help: "Order status transitions",
		},
		[]string{"to"},
	)

	// StockDecrementFailures counts checkout lines whose stock could not be decremented
	StockDecrementFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_stock_decrement_failures_total",
			Help: "Checkout lines whose stock decrement failed",
		},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "engine_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"provider"},
	)

	// NotificationsPublished counts outbox deliveries by result
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_notifications_total",
			Help: "Outbox notifications by delivery result",
		},
		[]string{"result"},
	)

	// CartCacheLookups counts cart cache hits and misses
	CartCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_cart_cache_lookups_total",
			Help: "Cart cache lookups by result",
		},
		[]string{"result"},
	)
)
