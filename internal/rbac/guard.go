package rbac

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nexus-community/backend/internal/middleware"
	"github.com/nexus-community/backend/pkg/response"
)

// Require returns a middleware that authorizes the caller against the
// community addressed by the ":id" path param. Routes without a community
// param are checked against the identity's declared permission claims.
// Denials abort with 403 before the handler runs, so a denied mutation never
// has side effects.
func Require(resolver *Resolver, mode Mode, required ...Permission) gin.HandlerFunc {
	return RequireParam(resolver, "id", mode, required...)
}

// RequireParam is Require with an explicit community path param name, for
// routes that address the community as something other than ":id".
func RequireParam(resolver *Resolver, param string, mode Mode, required ...Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := middleware.Identity(c)

		var err error
		if communityID := c.Param(param); communityID != "" {
			err = resolver.Authorize(c.Request.Context(), identity, communityID, required, mode)
		} else {
			err = resolver.AuthorizeDeclared(identity, required, mode)
		}
		if err == nil {
			c.Next()
			return
		}

		var forbidden *ForbiddenError
		if errors.As(err, &forbidden) {
			missing := make([]string, 0, len(forbidden.Missing))
			for _, p := range forbidden.Missing {
				missing = append(missing, string(p))
			}
			response.ForbiddenMissing(c, forbidden.Error(), missing)
		} else {
			response.Internal(c, "authorization check failed")
		}
		c.Abort()
	}
}
