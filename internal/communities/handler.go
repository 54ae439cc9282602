package communities

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/internal/middleware"
	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/response"
)

// Slug must be lowercase alphanumeric and hyphens only when provided by the
// caller; empty slugs are generated from the name.
var validTypes = map[string]bool{
	models.CommunityTypePublic:     true,
	models.CommunityTypePrivate:    true,
	models.CommunityTypeRestricted: true,
}

// Handler handles community HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a communities handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateRequest is the body for POST /communities.
type CreateRequest struct {
	Name          string          `json:"name" binding:"required,min=1,max=255"`
	Slug          string          `json:"slug"`
	Description   *string         `json:"description"`
	CommunityType string          `json:"community_type"`
	AvatarURL     *string         `json:"avatar_url"`
	BannerURL     *string         `json:"banner_url"`
	Settings      json.RawMessage `json:"settings"`
}

// UpdateRequest is the body for PUT /communities/:id. Absent fields are
// unchanged.
type UpdateRequest struct {
	Name          *string         `json:"name"`
	Description   *string         `json:"description"`
	CommunityType *string         `json:"community_type"`
	Status        *string         `json:"status"`
	AvatarURL     *string         `json:"avatar_url"`
	BannerURL     *string         `json:"banner_url"`
	Settings      json.RawMessage `json:"settings"`
}

// List handles GET /communities.
func (h *Handler) List(c *gin.Context) {
	page, pageSize := response.PageParams(c)
	search := strings.TrimSpace(c.Query("search"))
	result, err := h.service.List(c.Request.Context(), page, pageSize, search)
	if err != nil {
		response.Internal(c, "failed to list communities")
		return
	}
	response.OK(c, result)
}

// Get handles GET /communities/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	community, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "community not found")
			return
		}
		response.Internal(c, "failed to load community")
		return
	}
	response.OK(c, community)
}

// Create handles POST /communities.
func (h *Handler) Create(c *gin.Context) {
	identity := middleware.Identity(c)
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name is required (1-255 characters)")
		return
	}
	if body.CommunityType != "" && !validTypes[body.CommunityType] {
		response.BadRequest(c, "community_type must be public, private, or restricted")
		return
	}
	community, err := h.service.Create(c.Request.Context(), identity, CreateInput{
		Name:          strings.TrimSpace(body.Name),
		Slug:          strings.ToLower(strings.TrimSpace(body.Slug)),
		Description:   body.Description,
		CommunityType: body.CommunityType,
		AvatarURL:     body.AvatarURL,
		BannerURL:     body.BannerURL,
		Settings:      body.Settings,
	})
	if err != nil {
		if errors.Is(err, ErrSlugTaken) {
			response.Conflict(c, "a community with this slug already exists")
			return
		}
		response.Internal(c, "failed to create community")
		return
	}
	response.Created(c, community)
}

// Update handles PUT /communities/:id.
func (h *Handler) Update(c *gin.Context) {
	identity := middleware.Identity(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	community, err := h.service.Update(c.Request.Context(), identity, id, UpdateInput(body))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "community not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c, "only the owner may update the community")
		default:
			response.Internal(c, "failed to update community")
		}
		return
	}
	response.OK(c, community)
}

// Delete handles DELETE /communities/:id.
func (h *Handler) Delete(c *gin.Context) {
	identity := middleware.Identity(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	if err := h.service.Delete(c.Request.Context(), identity, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "community not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c, "only the owner may delete the community")
		default:
			response.Internal(c, "failed to delete community")
		}
		return
	}
	response.OK(c, gin.H{"message": "community deleted"})
}
