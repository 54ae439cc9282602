package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/auth"
	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/cache"
	"github.com/nexus-community/backend/pkg/messaging"
)

var (
	// ErrLevelNotFound means the subscription level does not exist in the community.
	ErrLevelNotFound = errors.New("subscription level not found")
	// ErrLevelNameTaken means the level name is already used in the community.
	ErrLevelNameTaken = errors.New("subscription level name already exists")
	// ErrLevelInactive means the level is disabled for new subscribers.
	ErrLevelInactive = errors.New("subscription level is not active")
	// ErrLevelFull means the level has reached its subscriber cap.
	ErrLevelFull = errors.New("subscription level is full")
	// ErrAlreadySubscribed means the user already holds an active subscription.
	ErrAlreadySubscribed = errors.New("already subscribed in this community")
	// ErrNoActiveSubscription means there is nothing to cancel.
	ErrNoActiveSubscription = errors.New("no active subscription")
	// ErrLevelInUse means the level still has subscribers and cannot be deleted.
	ErrLevelInUse = errors.New("subscription level has active subscribers")
)

// Store is the subscription persistence the service depends on.
type Store interface {
	CreateLevel(ctx context.Context, l *models.SubscriptionLevel) error
	GetLevel(ctx context.Context, id uuid.UUID) (*models.SubscriptionLevel, error)
	GetLevelByName(ctx context.Context, communityID uuid.UUID, name string) (*models.SubscriptionLevel, error)
	ListLevels(ctx context.Context, communityID uuid.UUID, activeOnly bool) ([]*models.SubscriptionLevel, error)
	UpdateLevel(ctx context.Context, id uuid.UUID, f LevelUpdateFields) (*models.SubscriptionLevel, error)
	DeleteLevel(ctx context.Context, id uuid.UUID) error
	IncrementSubscriberCount(ctx context.Context, id uuid.UUID, delta int) error
	CreateSubscription(ctx context.Context, s *models.Subscription) error
	GetActiveSubscription(ctx context.Context, userID, communityID uuid.UUID) (*models.Subscription, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Subscription, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Service orchestrates subscription levels and user subscriptions.
type Service struct {
	store     Store
	cache     *cache.Cache
	keys      cache.Keys
	publisher messaging.Publisher
	logger    *zap.Logger
}

// NewService creates a subscriptions service.
func NewService(store Store, c *cache.Cache, keys cache.Keys, publisher messaging.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: c, keys: keys, publisher: publisher, logger: logger}
}

// ListLevels returns the community's subscription levels. Non-managers see
// only active levels.
func (s *Service) ListLevels(ctx context.Context, communityID uuid.UUID, includeInactive bool) ([]*models.SubscriptionLevel, error) {
	return s.store.ListLevels(ctx, communityID, !includeInactive)
}

// LevelInput is a validated level creation request.
type LevelInput struct {
	Name           string
	Description    *string
	PriceCents     int64
	Currency       string
	DurationDays   int
	Features       json.RawMessage
	MaxSubscribers *int
}

// CreateLevel adds a paid tier to a community.
func (s *Service) CreateLevel(ctx context.Context, communityID uuid.UUID, in LevelInput) (*models.SubscriptionLevel, error) {
	existing, err := s.store.GetLevelByName(ctx, communityID, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLevelNameTaken
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}
	duration := in.DurationDays
	if duration <= 0 {
		duration = 30
	}
	level := &models.SubscriptionLevel{
		CommunityID:    communityID,
		Name:           in.Name,
		Description:    in.Description,
		PriceCents:     in.PriceCents,
		Currency:       currency,
		DurationDays:   duration,
		Features:       in.Features,
		IsActive:       true,
		MaxSubscribers: in.MaxSubscribers,
	}
	if level.Features == nil {
		level.Features = json.RawMessage(`{}`)
	}
	if err := s.store.CreateLevel(ctx, level); err != nil {
		return nil, err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("subscription level created",
		zap.String("community_id", communityID.String()),
		zap.String("level", level.Name))
	return level, nil
}

// LevelUpdateInput carries a level update; nil fields are unchanged.
type LevelUpdateInput struct {
	Name           *string
	Description    *string
	PriceCents     *int64
	DurationDays   *int
	Features       json.RawMessage
	IsActive       *bool
	MaxSubscribers *int
}

// UpdateLevel mutates a level. Existing subscriptions keep their original
// terms; price and duration changes affect new subscribers only.
func (s *Service) UpdateLevel(ctx context.Context, communityID, levelID uuid.UUID, in LevelUpdateInput) (*models.SubscriptionLevel, error) {
	level, err := s.store.GetLevel(ctx, levelID)
	if err != nil {
		return nil, err
	}
	if level == nil || level.CommunityID != communityID {
		return nil, ErrLevelNotFound
	}
	if in.Name != nil && *in.Name != level.Name {
		existing, err := s.store.GetLevelByName(ctx, communityID, *in.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrLevelNameTaken
		}
	}

	updated, err := s.store.UpdateLevel(ctx, levelID, LevelUpdateFields{
		Name:           in.Name,
		Description:    in.Description,
		PriceCents:     in.PriceCents,
		DurationDays:   in.DurationDays,
		Features:       in.Features,
		IsActive:       in.IsActive,
		MaxSubscribers: in.MaxSubscribers,
	})
	if err != nil {
		return nil, err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("subscription level updated",
		zap.String("community_id", communityID.String()),
		zap.String("level_id", levelID.String()))
	return updated, nil
}

// DeleteLevel removes a level with no subscribers. Levels that still have
// subscribers must be retired by setting is_active to false instead, so
// existing subscriptions keep their terms.
func (s *Service) DeleteLevel(ctx context.Context, communityID, levelID uuid.UUID) error {
	level, err := s.store.GetLevel(ctx, levelID)
	if err != nil {
		return err
	}
	if level == nil || level.CommunityID != communityID {
		return ErrLevelNotFound
	}
	if level.SubscriberCount > 0 {
		return ErrLevelInUse
	}

	if err := s.store.DeleteLevel(ctx, levelID); err != nil {
		return err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("subscription level deleted",
		zap.String("community_id", communityID.String()),
		zap.String("level_id", levelID.String()))
	return nil
}

// Subscribe starts a subscription for the caller. A user holds at most one
// active subscription per community.
func (s *Service) Subscribe(ctx context.Context, identity *auth.Identity, communityID, levelID uuid.UUID, autoRenew bool) (*models.Subscription, error) {
	level, err := s.store.GetLevel(ctx, levelID)
	if err != nil {
		return nil, err
	}
	if level == nil || level.CommunityID != communityID {
		return nil, ErrLevelNotFound
	}
	if !level.IsActive {
		return nil, ErrLevelInactive
	}
	if level.MaxSubscribers != nil && level.SubscriberCount >= *level.MaxSubscribers {
		return nil, ErrLevelFull
	}

	active, err := s.store.GetActiveSubscription(ctx, identity.UserID, communityID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrAlreadySubscribed
	}

	now := time.Now().UTC()
	sub := &models.Subscription{
		LevelID:     levelID,
		UserID:      identity.UserID,
		CommunityID: communityID,
		Status:      models.SubscriptionStatusActive,
		StartsAt:    now,
		ExpiresAt:   now.AddDate(0, 0, level.DurationDays),
		AutoRenew:   autoRenew,
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.store.IncrementSubscriberCount(ctx, levelID, 1); err != nil {
		s.logger.Warn("subscriber count increment failed", zap.Error(err))
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventSubscriptionStarted, map[string]interface{}{
		"community_id":    communityID.String(),
		"user_id":         identity.UserID.String(),
		"subscription_id": sub.ID.String(),
		"level_id":        levelID.String(),
		"expires_at":      sub.ExpiresAt.Format(time.RFC3339),
	}, nil)

	s.logger.Info("subscription started",
		zap.String("community_id", communityID.String()),
		zap.String("user_id", identity.UserID.String()),
		zap.String("level", level.Name))
	return sub, nil
}

// Cancel ends the caller's active subscription immediately.
func (s *Service) Cancel(ctx context.Context, identity *auth.Identity, communityID uuid.UUID) error {
	sub, err := s.store.GetActiveSubscription(ctx, identity.UserID, communityID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNoActiveSubscription
	}

	if err := s.store.SetStatus(ctx, sub.ID, models.SubscriptionStatusCancelled); err != nil {
		return err
	}
	if err := s.store.IncrementSubscriberCount(ctx, sub.LevelID, -1); err != nil {
		s.logger.Warn("subscriber count decrement failed", zap.Error(err))
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventSubscriptionEnded, map[string]interface{}{
		"community_id":    communityID.String(),
		"user_id":         identity.UserID.String(),
		"subscription_id": sub.ID.String(),
		"reason":          "cancelled",
	}, nil)

	s.logger.Info("subscription cancelled",
		zap.String("community_id", communityID.String()),
		zap.String("user_id", identity.UserID.String()))
	return nil
}

// Mine returns every subscription the caller holds.
func (s *Service) Mine(ctx context.Context, identity *auth.Identity) ([]*models.Subscription, error) {
	return s.store.ListByUser(ctx, identity.UserID)
}
