package roles

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/pkg/response"
)

// Handler exposes role endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a roles handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /communities/:id/roles.
func (h *Handler) List(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	list, err := h.service.List(c.Request.Context(), communityID)
	if err != nil {
		response.Internal(c, "failed to list roles")
		return
	}
	response.OK(c, list)
}

// CreateRequest is the body of POST /communities/:id/roles.
type CreateRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Description *string  `json:"description"`
	Color       *string  `json:"color"`
	Permissions []string `json:"permissions"`
	IsDefault   bool     `json:"is_default"`
	Priority    int      `json:"priority"`
}

// Create handles POST /communities/:id/roles.
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
	role, err := h.service.Create(c.Request.Context(), communityID, CreateInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Color:       req.Color,
		Permissions: req.Permissions,
		IsDefault:   req.IsDefault,
		Priority:    req.Priority,
	})
	switch {
	case errors.Is(err, ErrNameTaken):
		response.Conflict(c, "a role with this name already exists")
	case err != nil && strings.HasPrefix(err.Error(), "unknown permission"):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.Internal(c, "failed to create role")
	default:
		response.Created(c, role)
	}
}

// UpdateRequest is the body of PATCH /communities/:id/roles/:roleID.
type UpdateRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	Permissions *[]string `json:"permissions"`
	Priority    *int      `json:"priority"`
}

// Update handles PATCH /communities/:id/roles/:roleID.
func (h *Handler) Update(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	role, err := h.service.Update(c.Request.Context(), communityID, roleID, UpdateInput(req))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "role not found")
	case errors.Is(err, ErrNameTaken):
		response.Conflict(c, "a role with this name already exists")
	case err != nil && strings.HasPrefix(err.Error(), "unknown permission"):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.Internal(c, "failed to update role")
	default:
		response.OK(c, role)
	}
}

// Delete handles DELETE /communities/:id/roles/:roleID.
func (h *Handler) Delete(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	roleID, err := uuid.Parse(c.Param("roleID"))
	if err != nil {
		response.BadRequest(c, "invalid role id")
		return
	}
	err = h.service.Delete(c.Request.Context(), communityID, roleID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "role not found")
	case errors.Is(err, ErrProtected):
		response.Forbidden(c, "bootstrap roles cannot be deleted")
	case err != nil:
		response.Internal(c, "failed to delete role")
	default:
		response.OK(c, gin.H{"deleted": true})
	}
}
