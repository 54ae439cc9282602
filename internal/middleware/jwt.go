package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nexus-community/backend/internal/auth"
	"github.com/nexus-community/backend/pkg/response"
)

const (
	// ContextIdentity is the key for the verified caller identity in gin context.
	ContextIdentity = "identity"
)

// JWT returns a middleware that validates the bearer token and stores the
// caller identity in the request context. Missing or invalid credentials
// yield 401.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		identity, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextIdentity, identity)
		c.Next()
	}
}

// Identity returns the verified caller identity set by the JWT middleware.
// Panics if called on a route without it; protected routes always have one.
func Identity(c *gin.Context) *auth.Identity {
	return c.MustGet(ContextIdentity).(*auth.Identity)
}
