package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets response headers for the JSON API and the image
// directory. Images are embedded by the storefront on another origin, so only
// they are shareable cross-origin; API responses carry orders and profiles and
// must not be cached by intermediaries.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/images/") {
			h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		} else {
			h.Set("Cross-Origin-Resource-Policy", "same-origin")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}
		if strings.HasPrefix(path, "/api/") {
			h.Set("Cache-Control", "no-store")
		}

		// HSTS hanya berarti lewat HTTPS (langsung atau di belakang proxy)
		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
