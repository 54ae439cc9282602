package posts

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/internal/middleware"
	"github.com/nexus-community/backend/pkg/response"
)

// Handler exposes post endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a posts handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /communities/:id/posts.
func (h *Handler) List(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	var channelID *uuid.UUID
	if raw := c.Query("channel_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid channel id")
			return
		}
		channelID = &id
	}
	page, pageSize := response.PageParams(c)
	result, err := h.service.List(c.Request.Context(), communityID, channelID, page, pageSize)
	if err != nil {
		response.Internal(c, "failed to list posts")
		return
	}
	response.OK(c, result)
}

// Get handles GET /communities/:id/posts/:postID.
func (h *Handler) Get(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	postID, err := uuid.Parse(c.Param("postID"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}
	post, err := h.service.Get(c.Request.Context(), communityID, postID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "post not found")
	case err != nil:
		response.Internal(c, "failed to fetch post")
	default:
		response.OK(c, post)
	}
}

// CreateRequest is the body of POST /communities/:id/posts.
type CreateRequest struct {
	ChannelID *uuid.UUID `json:"channel_id"`
	Title     *string    `json:"title"`
	Content   string     `json:"content" binding:"required,min=1"`
	MediaURLs []string   `json:"media_urls"`
	Draft     bool       `json:"draft"`
}

// Create handles POST /communities/:id/posts.
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
	post, err := h.service.Create(c.Request.Context(), middleware.Identity(c), communityID, CreateInput(req))
	switch {
	case errors.Is(err, ErrChannelNotFound):
		response.BadRequest(c, "channel does not belong to this community")
	case err != nil:
		response.Internal(c, "failed to create post")
	default:
		response.Created(c, post)
	}
}

// UpdateRequest is the body of PATCH /communities/:id/posts/:postID.
type UpdateRequest struct {
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	IsPinned  *bool     `json:"is_pinned"`
	MediaURLs *[]string `json:"media_urls"`
}

// Update handles PATCH /communities/:id/posts/:postID.
func (h *Handler) Update(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	postID, err := uuid.Parse(c.Param("postID"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	post, err := h.service.Update(c.Request.Context(), middleware.Identity(c), communityID, postID, UpdateInput(req))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "post not found")
	case errors.Is(err, ErrNotAuthor):
		response.Forbidden(c, "only the author may edit this post")
	case err != nil:
		response.Internal(c, "failed to update post")
	default:
		response.OK(c, post)
	}
}

// Moderate handles POST /communities/:id/posts/:postID/moderate.
func (h *Handler) Moderate(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	postID, err := uuid.Parse(c.Param("postID"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}
	post, err := h.service.Moderate(c.Request.Context(), communityID, postID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "post not found")
	case err != nil:
		response.Internal(c, "failed to moderate post")
	default:
		response.OK(c, post)
	}
}

// Delete handles DELETE /communities/:id/posts/:postID.
func (h *Handler) Delete(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	postID, err := uuid.Parse(c.Param("postID"))
	if err != nil {
		response.BadRequest(c, "invalid post id")
		return
	}
	err = h.service.Delete(c.Request.Context(), middleware.Identity(c), communityID, postID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "post not found")
	case errors.Is(err, ErrNotAuthor):
		response.Forbidden(c, "only the author may delete this post")
	case err != nil:
		response.Internal(c, "failed to delete post")
	default:
		response.OK(c, gin.H{"deleted": true})
	}
}
