package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CRUDOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manifest_crud_operations_total",
			Help: "CRUD operations per resource, operation and outcome",
		},
		[]string{"resource", "operation", "outcome"},
	)

	Redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manifest_ticket_redemptions_total",
			Help: "Ticket redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manifest_festival_notifications_total",
			Help: "Festival notifications by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	ReportCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manifest_report_cache_total",
			Help: "Business report cache lookups",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "manifest_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeOK         = "ok"
	OutcomeInvalid    = "invalid"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"
	OutcomeDropped    = "dropped"
	OutcomeCacheHit   = "hit"
	OutcomeCacheMiss  = "miss"
	OutcomeCacheError = "error"
)

// Middleware records request latency by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
