package analytics

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/pkg/response"
)

// Handler handles GET /communities/:id/analytics.
type Handler struct {
	service *Service
}

// NewHandler creates an analytics handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CommunityOverview returns the aggregate snapshot for a community.
func (h *Handler) CommunityOverview(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	snapshot, err := h.service.CommunityOverview(c.Request.Context(), communityID)
	switch {
	case errors.Is(err, ErrCommunityNotFound):
		response.NotFound(c, "community not found")
	case err != nil:
		response.Internal(c, "failed to build analytics snapshot")
	default:
		response.OK(c, snapshot)
	}
}
