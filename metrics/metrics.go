package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "farmtable"

var (
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Orders committed, by payment method.",
	}, []string{"payment_method"})

	OrderPlacementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_placement_failures_total",
		Help:      "Rejected order placements, by error kind.",
	}, []string{"reason"})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_cancelled_total",
		Help:      "Orders cancelled with their stock released.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status changes, by target status.",
	}, []string{"status"})

	StockUnitsReserved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_units_reserved_total",
		Help:      "Units taken out of inventory by committed orders.",
	})

	StockUnitsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_units_released_total",
		Help:      "Units returned to inventory by cancellations and restocks.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Middleware records request latency labelled by the matched route pattern,
// so ids in paths do not blow up label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
