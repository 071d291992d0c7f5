package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders committed by checkout",
	}, []string{"payment_method"})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of order status transitions",
	}, []string{"to_status"})

	CheckoutStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_steps_total",
		Help: "Total number of checkout steps by phase and outcome",
	}, []string{"phase", "outcome"})

	VerificationsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verifications_submitted_total",
		Help: "Total number of payment verification requests submitted",
	}, []string{"type"})

	VerificationsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verifications_resolved_total",
		Help: "Total number of verification requests resolved",
	}, []string{"type", "status"})

	VerificationsConflictTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "verifications_conflict_total",
		Help: "Total number of resolve attempts on already resolved requests",
	})

	ScreenshotUploadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "screenshot_upload_latency_seconds",
		Help:    "Latency of payment screenshot uploads",
		Buckets: prometheus.DefBuckets,
	})

	ScreenshotUploadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenshot_uploads_failed_total",
		Help: "Total number of failed screenshot uploads",
	})

	NotificationsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Total number of notification delivery attempts",
	}, []string{"kind", "outcome"})

	NotificationCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_circuit_state",
		Help: "Notification gateway circuit breaker state (0=closed, 1=open, 2=half-open)",
	})

	TicketsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickets_created_total",
		Help: "Total number of support tickets opened",
	}, []string{"category"})

	AccountsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accounts_deleted_total",
		Help: "Total number of account deletions",
	})

	FeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "admin_feed_clients",
		Help: "Number of connected admin live feed clients",
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
