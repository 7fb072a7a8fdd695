package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_orders_created_total",
		Help: "Total number of orders created",
	}, []string{"payment_method"})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_orders_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	OrdersSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_orders_settled_total",
		Help: "Total number of orders settled (paid and item sold)",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	ItemsListedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_items_listed_total",
		Help: "Total number of listings submitted",
	})

	ItemsApprovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_items_approved_total",
		Help: "Total number of listings approved",
	})

	ItemsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_items_rejected_total",
		Help: "Total number of listings rejected",
	})

	ItemsFlaggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_items_flagged_total",
		Help: "Total number of listings auto-flagged",
	})

	ReservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_reservations_total",
		Help: "Total number of checkout reservations taken",
	})

	ReservationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_reservations_failed_total",
		Help: "Total number of failed reservation attempts",
	}, []string{"reason"})

	ReservationsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_reservations_expired_total",
		Help: "Total number of reservations released by the sweeper",
	})

	PaymentAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_payment_attempts_total",
		Help: "Total number of payment attempts",
	}, []string{"method"})

	PaymentFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_payment_failed_total",
		Help: "Total number of failed payments",
	}, []string{"method"})

	PointsCreditedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rewear_points_credited_total",
		Help: "Total points credited, by transaction type",
	}, []string{"type"})

	PointsDebitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rewear_points_debited_total",
		Help: "Total points debited",
	})

	SettlementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rewear_settlement_latency_seconds",
		Help:    "Latency of order settlement",
		Buckets: prometheus.DefBuckets,
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
