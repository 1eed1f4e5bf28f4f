// Package metrics exposes Prometheus collectors for invoice activity and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "invoicely"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	invoicesCreated *prometheus.CounterVec
	recalculations  *prometheus.CounterVec
	createRollbacks prometheus.Counter
	statusChanges   *prometheus.CounterVec
	dashboardCache  *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoices_created_total",
			Help:      "Invoice create attempts by outcome.",
		}, []string{"result"}),
		recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_recalculations_total",
			Help:      "Invoice financial snapshot recomputations by trigger.",
		}, []string{"trigger"}),
		createRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_create_rollbacks_total",
			Help:      "Invoice creations rolled back after an item write failed.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_status_changes_total",
			Help:      "Invoice status transitions by target status.",
		}, []string{"status"}),
		dashboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_requests_total",
			Help:      "Dashboard cache lookups by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.invoicesCreated,
		m.recalculations,
		m.createRollbacks,
		m.statusChanges,
		m.dashboardCache,
		m.httpDuration,
	)
	return m
}

// InvoiceCreated records a create outcome: "success", "invalid" or "error".
func (m *Metrics) InvoiceCreated(result string) {
	if m != nil {
		m.invoicesCreated.WithLabelValues(result).Inc()
	}
}

// Recalculated records a snapshot recomputation: "items", "terms" or "create".
func (m *Metrics) Recalculated(trigger string) {
	if m != nil {
		m.recalculations.WithLabelValues(trigger).Inc()
	}
}

func (m *Metrics) CreateRolledBack() {
	if m != nil {
		m.createRollbacks.Inc()
	}
}

func (m *Metrics) StatusChanged(status string) {
	if m != nil {
		m.statusChanges.WithLabelValues(status).Inc()
	}
}

// DashboardCache records "hit", "miss" or "error".
func (m *Metrics) DashboardCache(result string) {
	if m != nil {
		m.dashboardCache.WithLabelValues(result).Inc()
	}
}

// GinMiddleware observes request latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
