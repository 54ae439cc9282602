package channels

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/pkg/response"
)

// Handler exposes channel endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a channels handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /communities/:id/channels.
func (h *Handler) List(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	list, err := h.service.List(c.Request.Context(), communityID)
	if err != nil {
		response.Internal(c, "failed to list channels")
		return
	}
	response.OK(c, list)
}

// CreateRequest is the body of POST /communities/:id/channels.
type CreateRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=100"`
	Description *string         `json:"description"`
	ChannelType string          `json:"channel_type"`
	Position    int             `json:"position"`
	Settings    json.RawMessage `json:"settings"`
}

// Create handles POST /communities/:id/channels.
func (h *Handler) Create(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.ChannelType != "" && !validChannelType(req.ChannelType) {
		response.BadRequest(c, "invalid channel type")
		return
	}
	channel, err := h.service.Create(c.Request.Context(), communityID, CreateInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ChannelType: req.ChannelType,
		Position:    req.Position,
		Settings:    req.Settings,
	})
	switch {
	case errors.Is(err, ErrNameTaken):
		response.Conflict(c, "a channel with this name already exists")
	case err != nil:
		response.Internal(c, "failed to create channel")
	default:
		response.Created(c, channel)
	}
}

// UpdateRequest is the body of PATCH /communities/:id/channels/:channelID.
type UpdateRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Position    *int            `json:"position"`
	Settings    json.RawMessage `json:"settings"`
}

// Update handles PATCH /communities/:id/channels/:channelID.
func (h *Handler) Update(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	channelID, err := uuid.Parse(c.Param("channelID"))
	if err != nil {
		response.BadRequest(c, "invalid channel id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	channel, err := h.service.Update(c.Request.Context(), communityID, channelID, UpdateInput(req))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "channel not found")
	case errors.Is(err, ErrNameTaken):
		response.Conflict(c, "a channel with this name already exists")
	case err != nil:
		response.Internal(c, "failed to update channel")
	default:
		response.OK(c, channel)
	}
}

// Delete handles DELETE /communities/:id/channels/:channelID.
func (h *Handler) Delete(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	channelID, err := uuid.Parse(c.Param("channelID"))
	if err != nil {
		response.BadRequest(c, "invalid channel id")
		return
	}
	err = h.service.Delete(c.Request.Context(), communityID, channelID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "channel not found")
	case errors.Is(err, ErrDefaultChannel):
		response.Forbidden(c, "the default channel cannot be deleted")
	case err != nil:
		response.Internal(c, "failed to delete channel")
	default:
		response.OK(c, gin.H{"deleted": true})
	}
}

func validChannelType(t string) bool {
	switch t {
	case "text", "announcement", "media", "forum":
		return true
	}
	return false
}
