package events

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
	"github.com/nexus-community/backend/pkg/response"
)

var (
	// ErrNotFound means the event does not exist in the community.
	ErrNotFound = errors.New("event not found")
	// ErrInvalidSchedule means the start/end times are inconsistent.
	ErrInvalidSchedule = errors.New("event ends before it starts")
)

// Store is the event persistence the service depends on.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID, upcomingOnly bool, offset, limit int) ([]*models.Event, int, error)
	Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service orchestrates community event scheduling.
type Service struct {
	store     Store
	cache     *cache.Cache
	keys      cache.Keys
	publisher messaging.Publisher
	logger    *zap.Logger
}

// NewService creates an events service.
func NewService(store Store, c *cache.Cache, keys cache.Keys, publisher messaging.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: c, keys: keys, publisher: publisher, logger: logger}
}

// List returns a page of events, soonest first.
func (s *Service) List(ctx context.Context, communityID uuid.UUID, upcomingOnly bool, page, pageSize int) (response.Paginated, error) {
	list, total, err := s.store.ListByCommunity(ctx, communityID, upcomingOnly, (page-1)*pageSize, pageSize)
	if err != nil {
		return response.Paginated{}, err
	}
	return response.NewPaginated(list, total, page, pageSize), nil
}

// Get returns a single event.
func (s *Service) Get(ctx context.Context, communityID, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil || event.CommunityID != communityID {
		return nil, ErrNotFound
	}
	return event, nil
}

// CreateInput is a validated event creation request.
type CreateInput struct {
	Title        string
	Description  *string
	StartsAt     time.Time
	EndsAt       *time.Time
	Location     *string
	OnlineURL    *string
	MaxAttendees *int
	CoverURL     *string
	Metadata     json.RawMessage
}

// Create schedules an event.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, communityID uuid.UUID, in CreateInput) (*models.Event, error) {
	if in.EndsAt != nil && !in.EndsAt.After(in.StartsAt) {
		return nil, ErrInvalidSchedule
	}

	event := &models.Event{
		CommunityID:  communityID,
		CreatorID:    identity.UserID,
		Title:        in.Title,
		Description:  in.Description,
		Status:       models.EventStatusScheduled,
		StartsAt:     in.StartsAt.UTC(),
		EndsAt:       in.EndsAt,
		Location:     in.Location,
		OnlineURL:    in.OnlineURL,
		MaxAttendees: in.MaxAttendees,
		CoverURL:     in.CoverURL,
		Metadata:     in.Metadata,
	}
	if err := s.store.Create(ctx, event); err != nil {
		return nil, err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventEventCreated, map[string]interface{}{
		"community_id": communityID.String(),
		"event_id":     event.ID.String(),
		"title":        event.Title,
		"starts_at":    event.StartsAt.Format(time.RFC3339),
	}, nil)

	s.logger.Info("event created",
		zap.String("community_id", communityID.String()),
		zap.String("event_id", event.ID.String()))
	return event, nil
}

// UpdateInput carries an event update; nil fields are unchanged.
type UpdateInput struct {
	Title        *string
	Description  *string
	Status       *string
	StartsAt     *time.Time
	EndsAt       *time.Time
	Location     *string
	OnlineURL    *string
	MaxAttendees *int
	CoverURL     *string
}

// Update mutates an event, including status transitions (cancel, start,
// complete).
func (s *Service) Update(ctx context.Context, communityID, eventID uuid.UUID, in UpdateInput) (*models.Event, error) {
	event, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil || event.CommunityID != communityID {
		return nil, ErrNotFound
	}

	startsAt := event.StartsAt
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}
	endsAt := event.EndsAt
	if in.EndsAt != nil {
		endsAt = in.EndsAt
	}
	if endsAt != nil && !endsAt.After(startsAt) {
		return nil, ErrInvalidSchedule
	}

	updated, err := s.store.Update(ctx, eventID, UpdateFields(in))
	if err != nil {
		return nil, err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventEventUpdated, map[string]interface{}{
		"community_id": communityID.String(),
		"event_id":     eventID.String(),
	}, nil)

	s.logger.Info("event updated",
		zap.String("community_id", communityID.String()),
		zap.String("event_id", eventID.String()))
	return updated, nil
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, communityID, eventID uuid.UUID) error {
	event, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event == nil || event.CommunityID != communityID {
		return ErrNotFound
	}

	if err := s.store.Delete(ctx, eventID); err != nil {
		return err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventEventDeleted, map[string]interface{}{
		"community_id": communityID.String(),
		"event_id":     eventID.String(),
	}, nil)

	s.logger.Info("event deleted",
		zap.String("community_id", communityID.String()),
		zap.String("event_id", eventID.String()))
	return nil
}
