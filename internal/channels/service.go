package channels

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/cache"
)

var (
	// ErrNotFound means the channel does not exist in the community.
	ErrNotFound = errors.New("channel not found")
	// ErrNameTaken means the channel name is already used in the community.
	ErrNameTaken = errors.New("channel name already exists")
	// ErrDefaultChannel means the default channel cannot be deleted.
	ErrDefaultChannel = errors.New("default channel cannot be deleted")
)

// Store is the channel persistence the service depends on.
type Store interface {
	Create(ctx context.Context, ch *models.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	GetByName(ctx context.Context, communityID uuid.UUID, name string) (*models.Channel, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Channel, error)
	Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Channel, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service manages community channels.
type Service struct {
	store  Store
	cache  *cache.Cache
	keys   cache.Keys
	logger *zap.Logger
}

// NewService creates a channels service.
func NewService(store Store, c *cache.Cache, keys cache.Keys, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: c, keys: keys, logger: logger}
}

// List returns every channel in a community.
func (s *Service) List(ctx context.Context, communityID uuid.UUID) ([]*models.Channel, error) {
	return s.store.ListByCommunity(ctx, communityID)
}

// CreateInput is a validated channel creation request.
type CreateInput struct {
	Name        string
	Description *string
	ChannelType string
	Position    int
	Settings    json.RawMessage
}

// Create adds a channel with a community-unique name.
func (s *Service) Create(ctx context.Context, communityID uuid.UUID, in CreateInput) (*models.Channel, error) {
	existing, err := s.store.GetByName(ctx, communityID, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrNameTaken
	}

	channelType := in.ChannelType
	if channelType == "" {
		channelType = models.ChannelTypeText
	}
	channel := &models.Channel{
		CommunityID: communityID,
		Name:        in.Name,
		Description: in.Description,
		ChannelType: channelType,
		Position:    in.Position,
		Settings:    in.Settings,
	}
	if err := s.store.Create(ctx, channel); err != nil {
		return nil, err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("channel created",
		zap.String("community_id", communityID.String()),
		zap.String("channel", channel.Name))
	return channel, nil
}

// UpdateInput carries a channel update; nil fields are unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Position    *int
	Settings    json.RawMessage
}

// Update mutates a channel.
func (s *Service) Update(ctx context.Context, communityID, channelID uuid.UUID, in UpdateInput) (*models.Channel, error) {
	channel, err := s.store.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil || channel.CommunityID != communityID {
		return nil, ErrNotFound
	}
	if in.Name != nil && *in.Name != channel.Name {
		existing, err := s.store.GetByName(ctx, communityID, *in.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrNameTaken
		}
	}

	updated, err := s.store.Update(ctx, channelID, UpdateFields{
		Name:        in.Name,
		Description: in.Description,
		Position:    in.Position,
		Settings:    in.Settings,
	})
	if err != nil {
		return nil, err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("channel updated",
		zap.String("community_id", communityID.String()),
		zap.String("channel_id", channelID.String()))
	return updated, nil
}

// Delete removes a channel. The community's default channel is protected.
func (s *Service) Delete(ctx context.Context, communityID, channelID uuid.UUID) error {
	channel, err := s.store.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel == nil || channel.CommunityID != communityID {
		return ErrNotFound
	}
	if channel.IsDefault {
		return ErrDefaultChannel
	}

	if err := s.store.Delete(ctx, channelID); err != nil {
		return err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("channel deleted",
		zap.String("community_id", communityID.String()),
		zap.String("channel_id", channelID.String()))
	return nil
}
