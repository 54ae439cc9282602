package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/auth"
)

// Logger returns a zap-based request logging middleware. Each request gets a
// request id (from X-Request-ID or freshly generated) echoed in the response.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		userID := "anonymous"
		if v, ok := c.Get(ContextIdentity); ok {
			if identity, ok := v.(*auth.Identity); ok {
				userID = identity.UserID.String()
			}
		}

		logger.Info("request",
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.String("user_id", userID),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
