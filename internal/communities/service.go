package communities

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/auth"
	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/internal/rbac"
	"github.com/nexus-community/backend/pkg/cache"
	"github.com/nexus-community/backend/pkg/messaging"
	"github.com/nexus-community/backend/pkg/response"
)

var (
	ErrNotFound  = errors.New("community not found")
	ErrSlugTaken = errors.New("slug already taken")
	ErrNotOwner  = errors.New("only the owner may do this")
)

// CommunityStore is the persistence surface the service drives.
type CommunityStore interface {
	Create(ctx context.Context, c *models.Community) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	GetBySlug(ctx context.Context, slug string) (*models.Community, error)
	ListActive(ctx context.Context, offset, limit int) ([]*models.Community, int, error)
	Search(ctx context.Context, query string, offset, limit int) ([]*models.Community, int, error)
	Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Community, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RoleStore creates the bootstrap roles for a new community.
type RoleStore interface {
	Create(ctx context.Context, role *models.Role) error
}

// MemberStore creates the owner membership for a new community.
type MemberStore interface {
	Create(ctx context.Context, m *models.Member) error
	AssignRole(ctx context.Context, memberID, roleID uuid.UUID) error
}

// ChannelStore creates the default channel for a new community.
type ChannelStore interface {
	Create(ctx context.Context, ch *models.Channel) error
}

// Service orchestrates community mutations: persist, then invalidate cache,
// then best-effort publish. Route guards authorize before the service runs;
// owner-only checks are re-verified here against committed state.
type Service struct {
	store     CommunityStore
	roles     RoleStore
	members   MemberStore
	channels  ChannelStore
	cache     *cache.Cache
	keys      cache.Keys
	publisher messaging.Publisher
	logger    *zap.Logger
}

// NewService creates a communities service.
func NewService(store CommunityStore, roles RoleStore, members MemberStore, channels ChannelStore,
	c *cache.Cache, keys cache.Keys, publisher messaging.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store: store, roles: roles, members: members, channels: channels,
		cache: c, keys: keys, publisher: publisher, logger: logger,
	}
}

// List returns a page of active communities. Unfiltered pages are served
// cache-aside; search queries always hit the store.
func (s *Service) List(ctx context.Context, page, pageSize int, search string) (response.Paginated, error) {
	offset := (page - 1) * pageSize

	if search != "" {
		items, total, err := s.store.Search(ctx, search, offset, pageSize)
		if err != nil {
			return response.Paginated{}, err
		}
		return response.NewPaginated(items, total, page, pageSize), nil
	}

	key := s.keys.CommunityList(page, pageSize)
	var cached response.Paginated
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	items, total, err := s.store.ListActive(ctx, offset, pageSize)
	if err != nil {
		return response.Paginated{}, err
	}
	result := response.NewPaginated(items, total, page, pageSize)
	s.cache.Set(ctx, key, result, s.cache.DefaultTTL())
	return result, nil
}

// Get returns one community, cache-aside.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	key := s.keys.Community(id.String())
	var cached models.Community
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	community, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if community == nil {
		return nil, ErrNotFound
	}
	s.cache.Set(ctx, key, community, s.cache.DefaultTTL())
	return community, nil
}

// CreateInput is the validated input for Create.
type CreateInput struct {
	Name          string
	Slug          string
	Description   *string
	CommunityType string
	AvatarURL     *string
	BannerURL     *string
	Settings      json.RawMessage
}

// Create persists a new community and bootstraps it: a default "member"
// role, an "owner" role holding every permission, the caller's owner
// membership, and a "general" text channel.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, in CreateInput) (*models.Community, error) {
	slug := in.Slug
	if slug == "" {
		slug = generateSlug(in.Name)
	}
	existing, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSlugTaken
	}

	communityType := in.CommunityType
	if communityType == "" {
		communityType = models.CommunityTypePublic
	}
	community := &models.Community{
		Name:          in.Name,
		Slug:          slug,
		Description:   in.Description,
		CommunityType: communityType,
		Status:        models.CommunityStatusActive,
		OwnerID:       identity.UserID,
		AvatarURL:     in.AvatarURL,
		BannerURL:     in.BannerURL,
		Settings:      in.Settings,
		MemberCount:   1,
	}
	if err := s.store.Create(ctx, community); err != nil {
		return nil, err
	}

	defaultDesc := "Default member role"
	defaultRole := &models.Role{
		CommunityID: community.ID,
		Name:        "member",
		Description: &defaultDesc,
		Permissions: []string{string(rbac.PermCommunityView), string(rbac.PermPostCreate)},
		IsDefault:   true,
		Priority:    0,
	}
	if err := s.roles.Create(ctx, defaultRole); err != nil {
		return nil, err
	}

	ownerDesc := "Community owner"
	ownerRole := &models.Role{
		CommunityID: community.ID,
		Name:        "owner",
		Description: &ownerDesc,
		Permissions: allPermissionTags(),
		IsDefault:   false,
		Priority:    100,
	}
	if err := s.roles.Create(ctx, ownerRole); err != nil {
		return nil, err
	}

	ownerMember := &models.Member{
		CommunityID: community.ID,
		UserID:      identity.UserID,
		IsOwner:     true,
		Status:      models.MemberStatusActive,
	}
	if err := s.members.Create(ctx, ownerMember); err != nil {
		return nil, err
	}
	if err := s.members.AssignRole(ctx, ownerMember.ID, ownerRole.ID); err != nil {
		return nil, err
	}

	generalDesc := "General discussion"
	if err := s.channels.Create(ctx, &models.Channel{
		CommunityID: community.ID,
		Name:        "general",
		Description: &generalDesc,
		ChannelType: models.ChannelTypeText,
		IsDefault:   true,
		Position:    0,
	}); err != nil {
		return nil, err
	}

	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventCommunityCreated, map[string]interface{}{
		"community_id": community.ID.String(),
		"owner_id":     identity.UserID.String(),
		"name":         community.Name,
	}, nil)

	s.logger.Info("community created",
		zap.String("community_id", community.ID.String()),
		zap.String("user_id", identity.UserID.String()))
	return community, nil
}

// UpdateInput is the validated input for Update; nil fields are unchanged.
type UpdateInput struct {
	Name          *string
	Description   *string
	CommunityType *string
	Status        *string
	AvatarURL     *string
	BannerURL     *string
	Settings      json.RawMessage
}

// Update applies the non-nil fields after re-checking that the caller is the
// owner (or superadmin). Commits first, then invalidates the entity key,
// then publishes community.updated with the mutated field names.
func (s *Service) Update(ctx context.Context, identity *auth.Identity, id uuid.UUID, in UpdateInput) (*models.Community, error) {
	community, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if community == nil {
		return nil, ErrNotFound
	}
	if community.OwnerID != identity.UserID && !identity.IsSuperadmin {
		return nil, ErrNotOwner
	}

	updated, err := s.store.Update(ctx, id, UpdateFields{
		Name:          in.Name,
		Description:   in.Description,
		CommunityType: in.CommunityType,
		Status:        in.Status,
		AvatarURL:     in.AvatarURL,
		BannerURL:     in.BannerURL,
		Settings:      in.Settings,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	s.cache.Delete(ctx, s.keys.Community(id.String()))

	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventCommunityUpdated, map[string]interface{}{
		"community_id":   id.String(),
		"updated_fields": in.fieldNames(),
	}, nil)

	s.logger.Info("community updated", zap.String("community_id", id.String()))
	return updated, nil
}

// Delete removes a community after re-checking ownership. The whole
// community:{id}:* key subtree is invalidated because the blast radius spans
// every derived view.
func (s *Service) Delete(ctx context.Context, identity *auth.Identity, id uuid.UUID) error {
	community, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if community == nil {
		return ErrNotFound
	}
	if community.OwnerID != identity.UserID && !identity.IsSuperadmin {
		return ErrNotOwner
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.cache.Delete(ctx, s.keys.Community(id.String()))
	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(id.String()))

	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventCommunityDeleted, map[string]interface{}{
		"community_id": id.String(),
		"deleted_by":   identity.UserID.String(),
	}, nil)

	s.logger.Info("community deleted", zap.String("community_id", id.String()))
	return nil
}

func (in UpdateInput) fieldNames() []string {
	var fields []string
	if in.Name != nil {
		fields = append(fields, "name")
	}
	if in.Description != nil {
		fields = append(fields, "description")
	}
	if in.CommunityType != nil {
		fields = append(fields, "community_type")
	}
	if in.Status != nil {
		fields = append(fields, "status")
	}
	if in.AvatarURL != nil {
		fields = append(fields, "avatar_url")
	}
	if in.BannerURL != nil {
		fields = append(fields, "banner_url")
	}
	if in.Settings != nil {
		fields = append(fields, "settings")
	}
	return fields
}

func allPermissionTags() []string {
	all := rbac.All()
	tags := make([]string, 0, len(all))
	for p := range all {
		tags = append(tags, string(p))
	}
	return tags
}

var (
	slugInvalidChars = regexp.MustCompile(`[^\w\s-]`)
	slugSeparators   = regexp.MustCompile(`[\s_]+`)
	slugDashes       = regexp.MustCompile(`-+`)
)

// generateSlug derives a unique slug from the community name, suffixed with
// a short random id so concurrent creators cannot collide on the same name.
func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugSeparators.ReplaceAllString(slug, "-")
	slug = strings.Trim(slugDashes.ReplaceAllString(slug, "-"), "-")
	shortID := uuid.New().String()[:8]
	if slug == "" {
		return shortID
	}
	return slug + "-" + shortID
}
