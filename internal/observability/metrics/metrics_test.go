package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.InvoiceCreated("success")
	m.InvoiceCreated("success")
	m.InvoiceCreated("invalid")
	m.CreateRolledBack()
	m.Recalculated("items")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.invoicesCreated.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.invoicesCreated.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.createRollbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recalculations.WithLabelValues("items")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.InvoiceCreated("success")
		m.CreateRolledBack()
		m.DashboardCache("hit")
	})
}

func TestGinMiddlewareObservesRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := New(reg)

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/invoices/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invoices/42", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(m.httpDuration, "invoicely_http_request_duration_seconds"))
}
