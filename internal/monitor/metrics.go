package monitor

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector holds the engine's Prometheus collectors.
type MetricsCollector struct {
	registry *prometheus.Registry

	ticketJoinTotal    *prometheus.CounterVec
	ticketOutcomeTotal *prometheus.CounterVec
	queueDepth         *prometheus.GaugeVec
	stockRemaining     *prometheus.GaugeVec

	orderTotal      *prometheus.CounterVec
	confirmDuration prometheus.Histogram

	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewMetricsCollector creates a collector with its own registry.
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsCollector{
		registry: registry,

		ticketJoinTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashsale_ticket_join_total",
				Help: "Total number of ticket join attempts",
			},
			[]string{"product_id", "result"},
		),
		ticketOutcomeTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashsale_ticket_outcome_total",
				Help: "Terminal ticket outcomes",
			},
			[]string{"product_id", "outcome"},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flashsale_queue_depth",
				Help: "Tickets waiting per product",
			},
			[]string{"product_id"},
		),
		stockRemaining: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "flashsale_stock_remaining",
				Help: "Unreserved stock per product",
			},
			[]string{"product_id"},
		),
		orderTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashsale_order_total",
				Help: "Orders by path and status",
			},
			[]string{"path", "status"},
		),
		confirmDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flashsale_confirm_duration_seconds",
				Help:    "Order confirmation latency",
				Buckets: prometheus.DefBuckets,
			},
		),
		httpRequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_request_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordJoin counts a join attempt.
func (mc *MetricsCollector) RecordJoin(productID uint64, result string) {
	if mc == nil {
		return
	}
	mc.ticketJoinTotal.WithLabelValues(formatID(productID), result).Inc()
}

// RecordOutcome counts a terminal ticket outcome.
func (mc *MetricsCollector) RecordOutcome(productID uint64, outcome string) {
	if mc == nil {
		return
	}
	mc.ticketOutcomeTotal.WithLabelValues(formatID(productID), outcome).Inc()
}

// SetQueueDepth sets the waiting count gauge.
func (mc *MetricsCollector) SetQueueDepth(productID uint64, depth int) {
	if mc == nil {
		return
	}
	mc.queueDepth.WithLabelValues(formatID(productID)).Set(float64(depth))
}

// SetStockRemaining sets the unreserved stock gauge.
func (mc *MetricsCollector) SetStockRemaining(productID uint64, remaining int64) {
	if mc == nil {
		return
	}
	mc.stockRemaining.WithLabelValues(formatID(productID)).Set(float64(remaining))
}

// RecordOrder counts an order by path ("flashsale" or "direct").
func (mc *MetricsCollector) RecordOrder(path, status string) {
	if mc == nil {
		return
	}
	mc.orderTotal.WithLabelValues(path, status).Inc()
}

// ObserveConfirm records one confirmation latency sample.
func (mc *MetricsCollector) ObserveConfirm(d time.Duration) {
	if mc == nil {
		return
	}
	mc.confirmDuration.Observe(d.Seconds())
}

// Handler exposes the registry for scraping.
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware records request counts and latency per route.
func (mc *MetricsCollector) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// FullPath keeps label cardinality bounded; raw URLs with ids
		// would blow the registry up.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		mc.httpRequestTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		mc.httpRequestDuration.WithLabelValues(
			c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
