package posts

import (
	"context"
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
	// ErrNotFound means the post does not exist in the community.
	ErrNotFound = errors.New("post not found")
	// ErrNotAuthor means the caller is neither the post author nor a superadmin.
	ErrNotAuthor = errors.New("not the post author")
	// ErrChannelNotFound means the target channel does not belong to the community.
	ErrChannelNotFound = errors.New("channel not found in community")
)

// Store is the post persistence the service depends on.
type Store interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID, channelID *uuid.UUID, offset, limit int) ([]*models.Post, int, error)
	Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}

// CommunityStore is the slice of the communities repository the service uses.
type CommunityStore interface {
	IncrementPostCount(ctx context.Context, id uuid.UUID, delta int) error
}

// ChannelStore resolves channels for post placement.
type ChannelStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Channel, error)
}

// Service orchestrates post mutations.
type Service struct {
	store       Store
	communities CommunityStore
	channels    ChannelStore
	cache       *cache.Cache
	keys        cache.Keys
	publisher   messaging.Publisher
	logger      *zap.Logger
}

// NewService creates a posts service.
func NewService(store Store, communities CommunityStore, channels ChannelStore, c *cache.Cache, keys cache.Keys, publisher messaging.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, communities: communities, channels: channels, cache: c, keys: keys, publisher: publisher, logger: logger}
}

// List returns a page of published posts. Unscoped pages are served
// cache-aside; channel-scoped queries go straight to the database.
func (s *Service) List(ctx context.Context, communityID uuid.UUID, channelID *uuid.UUID, page, pageSize int) (response.Paginated, error) {
	cacheable := channelID == nil
	key := s.keys.CommunityPosts(communityID.String(), page)
	if cacheable {
		var cached response.Paginated
		if s.cache.Get(ctx, key, &cached) {
			return cached, nil
		}
	}
	list, total, err := s.store.ListByCommunity(ctx, communityID, channelID, (page-1)*pageSize, pageSize)
	if err != nil {
		return response.Paginated{}, err
	}
	result := response.NewPaginated(list, total, page, pageSize)
	if cacheable {
		s.cache.Set(ctx, key, result, 0)
	}
	return result, nil
}

// Get returns a single post and bumps its view counter.
func (s *Service) Get(ctx context.Context, communityID, postID uuid.UUID) (*models.Post, error) {
	post, err := s.store.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.CommunityID != communityID {
		return nil, ErrNotFound
	}
	if err := s.store.IncrementViewCount(ctx, postID); err != nil {
		s.logger.Warn("view count increment failed", zap.Error(err))
	} else {
		post.ViewCount++
	}
	return post, nil
}

// CreateInput is a validated post creation request.
type CreateInput struct {
	ChannelID *uuid.UUID
	Title     *string
	Content   string
	MediaURLs []string
	Draft     bool
}

// Create publishes a post in a community.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, communityID uuid.UUID, in CreateInput) (*models.Post, error) {
	if in.ChannelID != nil {
		channel, err := s.channels.GetByID(ctx, *in.ChannelID)
		if err != nil {
			return nil, err
		}
		if channel == nil || channel.CommunityID != communityID {
			return nil, ErrChannelNotFound
		}
	}

	post := &models.Post{
		CommunityID: communityID,
		ChannelID:   in.ChannelID,
		AuthorID:    identity.UserID,
		Title:       in.Title,
		Content:     in.Content,
		Status:      models.PostStatusPublished,
		MediaURLs:   in.MediaURLs,
	}
	if post.MediaURLs == nil {
		post.MediaURLs = []string{}
	}
	if in.Draft {
		post.Status = models.PostStatusDraft
	} else {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	if err := s.store.Create(ctx, post); err != nil {
		return nil, err
	}

	if post.Status == models.PostStatusPublished {
		if err := s.communities.IncrementPostCount(ctx, communityID, 1); err != nil {
			s.logger.Warn("post count increment failed", zap.Error(err))
		}
		s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
		_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventPostCreated, map[string]interface{}{
			"community_id": communityID.String(),
			"post_id":      post.ID.String(),
			"author_id":    identity.UserID.String(),
		}, nil)
	}

	s.logger.Info("post created",
		zap.String("community_id", communityID.String()),
		zap.String("post_id", post.ID.String()),
		zap.String("status", post.Status))
	return post, nil
}

// UpdateInput carries a post update; nil fields are unchanged.
type UpdateInput struct {
	Title     *string
	Content   *string
	IsPinned  *bool
	MediaURLs *[]string
}

// Update mutates a post. Only the author or a superadmin may edit content;
// pinning is reserved for moderators and is enforced by the route guard.
func (s *Service) Update(ctx context.Context, identity *auth.Identity, communityID, postID uuid.UUID, in UpdateInput) (*models.Post, error) {
	post, err := s.store.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.CommunityID != communityID {
		return nil, ErrNotFound
	}
	contentEdit := in.Title != nil || in.Content != nil || in.MediaURLs != nil
	if contentEdit && post.AuthorID != identity.UserID && !identity.IsSuperadmin {
		return nil, ErrNotAuthor
	}

	updated, err := s.store.Update(ctx, postID, UpdateFields{
		Title:     in.Title,
		Content:   in.Content,
		IsPinned:  in.IsPinned,
		MediaURLs: in.MediaURLs,
	})
	if err != nil {
		return nil, err
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventPostUpdated, map[string]interface{}{
		"community_id": communityID.String(),
		"post_id":      postID.String(),
	}, nil)

	s.logger.Info("post updated",
		zap.String("community_id", communityID.String()),
		zap.String("post_id", postID.String()))
	return updated, nil
}

// Moderate archives a post on behalf of a moderator.
func (s *Service) Moderate(ctx context.Context, communityID, postID uuid.UUID) (*models.Post, error) {
	post, err := s.store.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.CommunityID != communityID {
		return nil, ErrNotFound
	}

	status := models.PostStatusModerated
	updated, err := s.store.Update(ctx, postID, UpdateFields{Status: &status})
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPublished {
		if err := s.communities.IncrementPostCount(ctx, communityID, -1); err != nil {
			s.logger.Warn("post count decrement failed", zap.Error(err))
		}
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("post moderated",
		zap.String("community_id", communityID.String()),
		zap.String("post_id", postID.String()))
	return updated, nil
}

// Delete removes a post. Only the author or a superadmin may delete;
// moderators use Moderate instead.
func (s *Service) Delete(ctx context.Context, identity *auth.Identity, communityID, postID uuid.UUID) error {
	post, err := s.store.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil || post.CommunityID != communityID {
		return ErrNotFound
	}
	if post.AuthorID != identity.UserID && !identity.IsSuperadmin {
		return ErrNotAuthor
	}

	if err := s.store.Delete(ctx, postID); err != nil {
		return err
	}
	if post.Status == models.PostStatusPublished {
		if err := s.communities.IncrementPostCount(ctx, communityID, -1); err != nil {
			s.logger.Warn("post count decrement failed", zap.Error(err))
		}
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventPostDeleted, map[string]interface{}{
		"community_id": communityID.String(),
		"post_id":      postID.String(),
	}, nil)

	s.logger.Info("post deleted",
		zap.String("community_id", communityID.String()),
		zap.String("post_id", postID.String()))
	return nil
}
