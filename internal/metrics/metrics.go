package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultSoldOut = "sold_out"
	ResultError   = "error"

	GateHit     = "hit"
	GateMiss    = "miss"
	GateSoldOut = "sold_out"
	GateError   = "error"
)

var (
	purchases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstage_purchases_total",
			Help: "Ticket purchase attempts by result",
		},
		[]string{"result"},
	)

	ticketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventstage_tickets_sold_total",
			Help: "Tickets sold across all tiers",
		},
	)

	purchaseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventstage_purchase_duration_seconds",
			Help:    "Latency of the reserve and ledger write",
			Buckets: prometheus.DefBuckets,
		},
	)

	gateLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstage_inventory_gate_total",
			Help: "Sold-out gate lookups by outcome",
		},
		[]string{"outcome"},
	)

	passIndexLag = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventstage_pass_index_lag_total",
			Help: "Purchases committed whose buyer pass index write failed",
		},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstage_notifications_total",
			Help: "Notification pipeline operations",
		},
		[]string{"stage", "type", "status"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstage_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventstage_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func TrackPurchase(result string, quantity int, elapsed time.Duration) {
	purchases.WithLabelValues(result).Inc()
	purchaseDuration.Observe(elapsed.Seconds())
	if result == ResultSuccess {
		ticketsSold.Add(float64(quantity))
	}
}

func TrackGate(outcome string) {
	gateLookups.WithLabelValues(outcome).Inc()
}

func TrackPassIndexLag() {
	passIndexLag.Inc()
}

// TrackNotification records a pipeline step: stage is publish or dispatch.
func TrackNotification(stage, notificationType, status string) {
	notifications.WithLabelValues(stage, notificationType, status).Inc()
}

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
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
