package donations

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nexus-community/backend/internal/middleware"
	"github.com/nexus-community/backend/pkg/response"
)

// Handler exposes donation endpoints.
type Handler struct {
	service *Service
}

// NewHandler creates a donations handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /communities/:id/donations.
func (h *Handler) List(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	page, pageSize := response.PageParams(c)
	result, err := h.service.List(c.Request.Context(), communityID, page, pageSize)
	if err != nil {
		response.Internal(c, "failed to list donations")
		return
	}
	response.OK(c, result)
}

// CreateRequest is the body of POST /communities/:id/donations.
type CreateRequest struct {
	AmountCents   int64   `json:"amount_cents" binding:"required,min=1"`
	Currency      string  `json:"currency"`
	Message       *string `json:"message"`
	TransactionID *string `json:"transaction_id"`
	IsAnonymous   bool    `json:"is_anonymous"`
}

// Create handles POST /communities/:id/donations.
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
	donation, err := h.service.Create(c.Request.Context(), middleware.Identity(c), communityID, CreateInput{
		AmountCents:   req.AmountCents,
		Currency:      strings.ToUpper(req.Currency),
		Message:       req.Message,
		TransactionID: req.TransactionID,
		IsAnonymous:   req.IsAnonymous,
	})
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.BadRequest(c, "donation amount must be positive")
	case err != nil:
		response.Internal(c, "failed to record donation")
	default:
		response.Created(c, donation)
	}
}

// Refund handles POST /communities/:id/donations/:donationID/refund.
func (h *Handler) Refund(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	donationID, err := uuid.Parse(c.Param("donationID"))
	if err != nil {
		response.BadRequest(c, "invalid donation id")
		return
	}
	err = h.service.Refund(c.Request.Context(), communityID, donationID)
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "donation not found")
	case errors.Is(err, ErrNotPending):
		response.Conflict(c, "only completed donations can be refunded")
	case err != nil:
		response.Internal(c, "failed to refund donation")
	default:
		response.OK(c, gin.H{"refunded": true})
	}
}

// TopDonors handles GET /communities/:id/top-donors.
func (h *Handler) TopDonors(c *gin.Context) {
	communityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid community id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	list, err := h.service.TopDonors(c.Request.Context(), communityID, limit)
	if err != nil {
		response.Internal(c, "failed to load top donors")
		return
	}
	response.OK(c, list)
}
