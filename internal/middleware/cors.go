package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS handles cross-origin requests from the community web clients.
// allowedOrigins is "*" (or empty) to allow any origin, or a comma-separated
// allowlist; allowed origins are echoed back with Vary so caches keep
// per-origin responses apart.
func CORS(allowedOrigins string) gin.HandlerFunc {
	allowAll, origins := parseAllowedOrigins(allowedOrigins)
	return func(c *gin.Context) {
		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
			setCORSHeaders(c)
		} else if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := origins[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				setCORSHeaders(c)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Max-Age", "86400")
}

func parseAllowedOrigins(s string) (bool, map[string]struct{}) {
	origins := make(map[string]struct{})
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			return true, nil
		}
		if o != "" {
			origins[o] = struct{}{}
		}
	}
	return len(origins) == 0, origins
}
