// Package metrics provides Prometheus metrics for the license server.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ValidationsTotal counts license validation attempts by outcome.
	ValidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "license_server",
		Name:      "validations_total",
		Help:      "License validation attempts by outcome.",
	}, []string{"outcome"})

	// LoginsTotal counts customer login attempts by outcome.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "license_server",
		Name:      "logins_total",
		Help:      "Customer login attempts by outcome.",
	}, []string{"outcome"})

	// HTTPRequestDuration observes request latency by method, route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "license_server",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Validation outcome label values.
const (
	OutcomeValid               = "valid"
	OutcomeNotFound            = "not_found"
	OutcomeInactive            = "inactive"
	OutcomeExpired             = "expired"
	OutcomeFingerprintMismatch = "fingerprint_mismatch"
	OutcomeError               = "error"
)

// Handler returns the Prometheus scrape handler as a gin handler.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request duration for every handled request.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
