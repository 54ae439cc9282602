package subscriptions

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/internal/middleware"
	"github.com/nexus-community/backend/pkg/response"
)

// Handler exposes subscription endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a subscriptions handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListLevels handles GET /communities/:id/subscription-levels.
func (h *Handler) ListLevels(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	includeInactive := c.Query("include_inactive") == "true"
	levels, err := h.service.ListLevels(c.Request.Context(), communityID, includeInactive)
	if err != nil {
		response.Internal(c, "failed to list subscription levels")
		return
	}
	response.OK(c, levels)
}

// CreateLevelRequest is the body of POST /communities/:id/subscription-levels.
type CreateLevelRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=255"`
	Description    *string         `json:"description"`
	PriceCents     int64           `json:"price_cents" binding:"required,min=0"`
	Currency       string          `json:"currency"`
	DurationDays   int             `json:"duration_days"`
	Features       json.RawMessage `json:"features"`
	MaxSubscribers *int            `json:"max_subscribers"`
}

// CreateLevel handles POST /communities/:id/subscription-levels.
func (h *Handler) CreateLevel(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	var req CreateLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	level, err := h.service.CreateLevel(c.Request.Context(), communityID, LevelInput{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		PriceCents:     req.PriceCents,
		Currency:       strings.ToUpper(req.Currency),
		DurationDays:   req.DurationDays,
		Features:       req.Features,
		MaxSubscribers: req.MaxSubscribers,
	})
	switch {
	case errors.Is(err, ErrLevelNameTaken):
		response.Conflict(c, "a subscription level with this name already exists")
	case err != nil:
		response.Internal(c, "failed to create subscription level")
	default:
		response.Created(c, level)
	}
}

// UpdateLevelRequest is the body of PATCH /communities/:id/subscription-levels/:levelID.
type UpdateLevelRequest struct {
	Name           *string         `json:"name"`
	Description    *string         `json:"description"`
	PriceCents     *int64          `json:"price_cents"`
	DurationDays   *int            `json:"duration_days"`
	Features       json.RawMessage `json:"features"`
	IsActive       *bool           `json:"is_active"`
	MaxSubscribers *int            `json:"max_subscribers"`
}

// UpdateLevel handles PATCH /communities/:id/subscription-levels/:levelID.
func (h *Handler) UpdateLevel(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	levelID, err := uuid.Parse(c.Param("levelID"))
	if err != nil {
		response.BadRequest(c, "invalid level id")
		return
	}
	var req UpdateLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	level, err := h.service.UpdateLevel(c.Request.Context(), communityID, levelID, LevelUpdateInput(req))
	switch {
	case errors.Is(err, ErrLevelNotFound):
		response.NotFound(c, "subscription level not found")
	case errors.Is(err, ErrLevelNameTaken):
		response.Conflict(c, "a subscription level with this name already exists")
	case err != nil:
		response.Internal(c, "failed to update subscription level")
	default:
		response.OK(c, level)
	}
}

// DeleteLevel handles DELETE /communities/:id/subscription-levels/:levelID.
func (h *Handler) DeleteLevel(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	levelID, err := uuid.Parse(c.Param("levelID"))
	if err != nil {
		response.BadRequest(c, "invalid level id")
		return
	}
	err = h.service.DeleteLevel(c.Request.Context(), communityID, levelID)
	switch {
	case errors.Is(err, ErrLevelNotFound):
		response.NotFound(c, "subscription level not found")
	case errors.Is(err, ErrLevelInUse):
		response.Conflict(c, "subscription level still has subscribers")
	case err != nil:
		response.Internal(c, "failed to delete subscription level")
	default:
		response.OK(c, gin.H{"deleted": true})
	}
}

// SubscribeRequest is the body of POST /communities/:id/subscriptions.
type SubscribeRequest struct {
	LevelID   uuid.UUID `json:"level_id" binding:"required"`
	AutoRenew bool      `json:"auto_renew"`
}

// Subscribe handles POST /communities/:id/subscriptions.
func (h *Handler) Subscribe(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	sub, err := h.service.Subscribe(c.Request.Context(), middleware.Identity(c), communityID, req.LevelID, req.AutoRenew)
	switch {
	case errors.Is(err, ErrLevelNotFound):
		response.NotFound(c, "subscription level not found")
	case errors.Is(err, ErrLevelInactive):
		response.BadRequest(c, "subscription level is not accepting subscribers")
	case errors.Is(err, ErrLevelFull):
		response.Conflict(c, "subscription level is full")
	case errors.Is(err, ErrAlreadySubscribed):
		response.Conflict(c, "you already have an active subscription in this community")
	case err != nil:
		response.Internal(c, "failed to subscribe")
	default:
		response.Created(c, sub)
	}
}

// Cancel handles DELETE /communities/:id/subscriptions/me.
func (h *Handler) Cancel(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	err = h.service.Cancel(c.Request.Context(), middleware.Identity(c), communityID)
	switch {
	case errors.Is(err, ErrNoActiveSubscription):
		response.NotFound(c, "no active subscription in this community")
	case err != nil:
		response.Internal(c, "failed to cancel subscription")
	default:
		response.OK(c, gin.H{"cancelled": true})
	}
}

// Mine handles GET /me/subscriptions.
func (h *Handler) Mine(c *gin.Context) {
	subs, err := h.service.Mine(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		response.Internal(c, "failed to list subscriptions")
		return
	}
	response.OK(c, subs)
}
