package members

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/internal/middleware"
	"github.com/nexus-community/backend/pkg/response"
)

// Handler exposes membership endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a members handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /communities/:id/members.
func (h *Handler) List(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	page, pageSize := response.PageParams(c)
	result, err := h.service.List(c.Request.Context(), communityID, page, pageSize, c.Query("status"))
	if err != nil {
		response.Internal(c, "failed to list members")
		return
	}
	response.OK(c, result)
}

// JoinRequest is the body of POST /communities/:id/members.
type JoinRequest struct {
	Nickname *string `json:"nickname"`
}

// Join handles POST /communities/:id/members.
func (h *Handler) Join(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	var req JoinRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	member, err := h.service.Join(c.Request.Context(), middleware.Identity(c), communityID, req.Nickname)
	switch {
	case errors.Is(err, ErrCommunityNotFound):
		response.NotFound(c, "community not found")
	case errors.Is(err, ErrAlreadyMember):
		response.Conflict(c, "already a member of this community")
	case err != nil:
		response.Internal(c, "failed to join community")
	default:
		response.Created(c, member)
	}
}

// UpdateRequest is the body of PATCH /communities/:id/members/:userID.
type UpdateRequest struct {
	Status   *string      `json:"status"`
	Nickname *string      `json:"nickname"`
	RoleIDs  *[]uuid.UUID `json:"role_ids"`
}

// Update handles PATCH /communities/:id/members/:userID.
func (h *Handler) Update(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Status != nil && !validMemberStatus(*req.Status) {
		response.BadRequest(c, "invalid member status")
		return
	}
	member, err := h.service.Update(c.Request.Context(), communityID, userID, UpdateInput(req))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "member not found")
	case errors.Is(err, ErrOwnerImmutable):
		response.Forbidden(c, "owner membership cannot be changed")
	case errors.Is(err, ErrRoleNotFound):
		response.BadRequest(c, "role does not belong to this community")
	case err != nil:
		response.Internal(c, "failed to update member")
	default:
		response.OK(c, member)
	}
}

// Remove handles DELETE /communities/:id/members/:userID.
func (h *Handler) Remove(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	err = h.service.Remove(c.Request.Context(), communityID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "member not found")
	case errors.Is(err, ErrOwnerImmutable):
		response.Forbidden(c, "the community owner cannot be removed")
	case err != nil:
		response.Internal(c, "failed to remove member")
	default:
		response.OK(c, gin.H{"removed": true})
	}
}

// Leave handles DELETE /communities/:id/membership.
func (h *Handler) Leave(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	identity := middleware.Identity(c)
	err = h.service.Remove(c.Request.Context(), communityID, identity.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "you are not a member of this community")
	case errors.Is(err, ErrOwnerImmutable):
		response.Forbidden(c, "the community owner cannot leave; delete the community instead")
	case err != nil:
		response.Internal(c, "failed to leave community")
	default:
		response.OK(c, gin.H{"left": true})
	}
}

func validMemberStatus(s string) bool {
	switch s {
	case "active", "banned", "muted", "pending":
		return true
	}
	return false
}
