package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litebans_records_fetched_total",
		Help: "Record listings served, by category.",
	}, []string{"category"})

	PlayerLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litebans_player_lookups_total",
		Help: "Player identity resolutions, by outcome (cache_hit, fetched, fallback, failed).",
	}, []string{"outcome"})

	RoleChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litebans_role_checks_total",
		Help: "Authorization checks, by source (memory, redis, remote, demo) and result.",
	}, []string{"source", "result"})

	SharesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "litebans_shares_created_total",
		Help: "Share links created.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litebans_http_requests_total",
		Help: "HTTP requests, by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "litebans_http_request_duration_seconds",
		Help:    "HTTP request latency, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
