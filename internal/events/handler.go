package events

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/internal/middleware"
	"github.com/nexus-community/backend/pkg/response"
)

// Handler exposes community event endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates an events handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /communities/:id/events.
func (h *Handler) List(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	page, pageSize := response.PageParams(c)
	upcoming := c.Query("upcoming") == "true"
	result, err := h.service.List(c.Request.Context(), communityID, upcoming, page, pageSize)
	if err != nil {
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, result)
}

// Get handles GET /communities/:id/events/:eventID.
func (h *Handler) Get(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	eventID, err := uuid.Parse(c.Param("eventID"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.service.Get(c.Request.Context(), communityID, eventID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "event not found")
	case err != nil:
		response.Internal(c, "failed to fetch event")
	default:
		response.OK(c, event)
	}
}

// CreateRequest is the body of POST /communities/:id/events.
type CreateRequest struct {
	Title        string          `json:"title" binding:"required,min=1,max=255"`
	Description  *string         `json:"description"`
	StartsAt     time.Time       `json:"starts_at" binding:"required"`
	EndsAt       *time.Time      `json:"ends_at"`
	Location     *string         `json:"location"`
	OnlineURL    *string         `json:"online_url"`
	MaxAttendees *int            `json:"max_attendees"`
	CoverURL     *string         `json:"cover_url"`
	Metadata     json.RawMessage `json:"metadata"`
}

// Create handles POST /communities/:id/events.
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
	event, err := h.service.Create(c.Request.Context(), middleware.Identity(c), communityID, CreateInput{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Location:     req.Location,
		OnlineURL:    req.OnlineURL,
		MaxAttendees: req.MaxAttendees,
		CoverURL:     req.CoverURL,
		Metadata:     req.Metadata,
	})
	switch {
	case errors.Is(err, ErrInvalidSchedule):
		response.BadRequest(c, "event must end after it starts")
	case err != nil:
		response.Internal(c, "failed to create event")
	default:
		response.Created(c, event)
	}
}

// UpdateRequest is the body of PATCH /communities/:id/events/:eventID.
type UpdateRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	StartsAt     *time.Time `json:"starts_at"`
	EndsAt       *time.Time `json:"ends_at"`
	Location     *string    `json:"location"`
	OnlineURL    *string    `json:"online_url"`
	MaxAttendees *int       `json:"max_attendees"`
	CoverURL     *string    `json:"cover_url"`
}

// Update handles PATCH /communities/:id/events/:eventID.
func (h *Handler) Update(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	eventID, err := uuid.Parse(c.Param("eventID"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Status != nil && !validEventStatus(*req.Status) {
		response.BadRequest(c, "invalid event status")
		return
	}
	event, err := h.service.Update(c.Request.Context(), communityID, eventID, UpdateInput(req))
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "event not found")
	case errors.Is(err, ErrInvalidSchedule):
		response.BadRequest(c, "event must end after it starts")
	case err != nil:
		response.Internal(c, "failed to update event")
	default:
		response.OK(c, event)
	}
}

// Delete handles DELETE /communities/:id/events/:eventID.
func (h *Handler) Delete(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	eventID, err := uuid.Parse(c.Param("eventID"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	err = h.service.Delete(c.Request.Context(), communityID, eventID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "event not found")
	case err != nil:
		response.Internal(c, "failed to delete event")
	default:
		response.OK(c, gin.H{"deleted": true})
	}
}

func validEventStatus(s string) bool {
	switch s {
	case "scheduled", "active", "completed", "cancelled":
		return true
	}
	return false
}
