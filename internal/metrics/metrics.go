// Package metrics exposes Prometheus collectors for HTTP traffic and
// authentication outcomes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth operations and outcomes used as label values.
const (
	OpSignup  = "signup"
	OpSignin  = "signin"
	OpSignout = "signout"

	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeRateLimited = "rate_limited"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Authentication attempts by operation and outcome.",
	}, []string{"operation", "outcome"})

	guardDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_guard_denials_total",
		Help: "Requests rejected by access guards.",
	}, []string{"guard"})
)

// Middleware records request count and latency. Unmatched routes share one
// label value so arbitrary paths cannot blow up cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordAuth counts an authentication attempt.
func RecordAuth(operation, outcome string) {
	authAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordGuardDenial counts a request rejected by the named guard.
func RecordGuardDenial(guard string) {
	guardDenials.WithLabelValues(guard).Inc()
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
