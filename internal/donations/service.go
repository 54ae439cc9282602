package donations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/auth"
	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/cache"
	"github.com/nexus-community/backend/pkg/messaging"
	"github.com/nexus-community/backend/pkg/response"
)

var (
	// ErrNotFound means the donation does not exist in the community.
	ErrNotFound = errors.New("donation not found")
	// ErrInvalidAmount means the donation amount is not positive.
	ErrInvalidAmount = errors.New("donation amount must be positive")
	// ErrNotPending means a status transition was attempted on a settled donation.
	ErrNotPending = errors.New("donation is not pending")
)

// Store is the donation persistence the service depends on.
type Store interface {
	Create(ctx context.Context, d *models.Donation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Donation, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID, offset, limit int) ([]*models.Donation, int, error)
	TopDonors(ctx context.Context, communityID uuid.UUID, limit int) ([]TopDonor, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Service orchestrates donations. Payment capture happens in an external
// payment service; this service records the outcome it reports.
type Service struct {
	store     Store
	cache     *cache.Cache
	keys      cache.Keys
	publisher messaging.Publisher
	logger    *zap.Logger
}

// NewService creates a donations service.
func NewService(store Store, c *cache.Cache, keys cache.Keys, publisher messaging.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: c, keys: keys, publisher: publisher, logger: logger}
}

// List returns a page of completed donations.
func (s *Service) List(ctx context.Context, communityID uuid.UUID, page, pageSize int) (response.Paginated, error) {
	list, total, err := s.store.ListByCommunity(ctx, communityID, (page-1)*pageSize, pageSize)
	if err != nil {
		return response.Paginated{}, err
	}
	return response.NewPaginated(list, total, page, pageSize), nil
}

// CreateInput is a validated donation request.
type CreateInput struct {
	AmountCents   int64
	Currency      string
	Message       *string
	TransactionID *string
	IsAnonymous   bool
}

// Create records a completed donation and invalidates the donor leaderboard.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, communityID uuid.UUID, in CreateInput) (*models.Donation, error) {
	if in.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	donation := &models.Donation{
		CommunityID:   communityID,
		DonorID:       identity.UserID,
		AmountCents:   in.AmountCents,
		Currency:      currency,
		Message:       in.Message,
		Status:        models.DonationStatusCompleted,
		TransactionID: in.TransactionID,
		IsAnonymous:   in.IsAnonymous,
	}
	if err := s.store.Create(ctx, donation); err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, s.keys.TopDonors(communityID.String()))
	s.cache.Delete(ctx, s.keys.CommunityAnalytics(communityID.String()))

	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventDonationReceived, map[string]interface{}{
		"community_id": communityID.String(),
		"donation_id":  donation.ID.String(),
		"amount_cents": donation.AmountCents,
		"currency":     donation.Currency,
		"anonymous":    donation.IsAnonymous,
	}, nil)

	s.logger.Info("donation received",
		zap.String("community_id", communityID.String()),
		zap.Int64("amount_cents", donation.AmountCents))
	return donation, nil
}

// Refund marks a completed donation as refunded.
func (s *Service) Refund(ctx context.Context, communityID, donationID uuid.UUID) error {
	donation, err := s.store.GetByID(ctx, donationID)
	if err != nil {
		return err
	}
	if donation == nil || donation.CommunityID != communityID {
		return ErrNotFound
	}
	if donation.Status != models.DonationStatusCompleted {
		return ErrNotPending
	}

	if err := s.store.SetStatus(ctx, donationID, models.DonationStatusRefunded); err != nil {
		return err
	}

	s.cache.Delete(ctx, s.keys.TopDonors(communityID.String()))
	s.cache.Delete(ctx, s.keys.CommunityAnalytics(communityID.String()))

	s.logger.Info("donation refunded",
		zap.String("community_id", communityID.String()),
		zap.String("donation_id", donationID.String()))
	return nil
}

// TopDonors returns the community's donor leaderboard, served cache-aside.
// Anonymous donors are masked before the result is cached.
func (s *Service) TopDonors(ctx context.Context, communityID uuid.UUID, limit int) ([]TopDonor, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	key := s.keys.TopDonors(communityID.String())
	var cached []TopDonor
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	list, err := s.store.TopDonors(ctx, communityID, limit)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].IsAnonymous {
			list[i].DonorID = uuid.Nil
		}
	}
	s.cache.Set(ctx, key, list, s.cache.AnalyticsTTL())
	return list, nil
}
