package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func securityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/order/userorders", ok)
	r.GET("/images/carrot.png", ok)
	return r
}

func TestSecurityHeadersForAPI(t *testing.T) {
	w := httptest.NewRecorder()
	securityRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order/userorders", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "same-origin", w.Header().Get("Cross-Origin-Resource-Policy"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "no HSTS over plain http")
}

func TestSecurityHeadersForImages(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/images/carrot.png", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	securityRouter().ServeHTTP(w, req)

	assert.Equal(t, "cross-origin", w.Header().Get("Cross-Origin-Resource-Policy"))
	assert.Empty(t, w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=")
}
