package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/food/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", Handler())

	for _, path := range []string{"/api/food/1", "/api/food/2", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpDuration), 2)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `route="/api/food/:id"`)
	assert.Contains(t, body, `route="unmatched"`)
	assert.NotContains(t, body, `route="/api/food/1"`)
}

func TestOrderCounters(t *testing.T) {
	before := testutil.ToFloat64(OrdersPlaced.WithLabelValues("cod"))
	OrdersPlaced.WithLabelValues("cod").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(OrdersPlaced.WithLabelValues("cod")))

	before = testutil.ToFloat64(StockUnitsReserved)
	StockUnitsReserved.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(StockUnitsReserved))
}
