package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsLoadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_loaded_total",
		Help: "Total number of listings loaded from the remote catalog",
	})

	ListingsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listings_closed_total",
		Help: "Total number of listings closed",
	})

	PriceUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_updates_total",
		Help: "Total number of successful price updates",
	})

	RelistsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relists_completed_total",
		Help: "Total number of completed relist operations",
	})

	RelistsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relists_failed_total",
		Help: "Total number of failed relist operations",
	}, []string{"reason"})

	QuotaReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quota_reloads_total",
		Help: "Total number of promotion-pack quota reloads",
	})

	GatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_gateway_requests_total",
		Help: "Total number of remote catalog requests",
	}, []string{"method", "status"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_gateway_request_duration_seconds",
		Help:    "Latency of remote catalog requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

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
