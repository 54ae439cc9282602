package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/internal/rbac"
	"github.com/nexus-community/backend/pkg/cache"
)

var (
	// ErrNotFound means the role does not exist in the community.
	ErrNotFound = errors.New("role not found")
	// ErrNameTaken means the role name is already used in the community.
	ErrNameTaken = errors.New("role name already exists")
	// ErrProtected means a bootstrap role cannot be deleted.
	ErrProtected = errors.New("role is protected")
)

// Store is the role persistence the service depends on.
type Store interface {
	Create(ctx context.Context, role *models.Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	GetByName(ctx context.Context, communityID uuid.UUID, name string) (*models.Role, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Role, error)
	Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service manages community roles and their permission grants.
type Service struct {
	store  Store
	cache  *cache.Cache
	keys   cache.Keys
	logger *zap.Logger
}

// NewService creates a roles service.
func NewService(store Store, c *cache.Cache, keys cache.Keys, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: c, keys: keys, logger: logger}
}

// List returns every role in a community, served cache-aside.
func (s *Service) List(ctx context.Context, communityID uuid.UUID) ([]*models.Role, error) {
	key := s.keys.CommunityRoles(communityID.String())
	var cached []*models.Role
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	list, err := s.store.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, key, list, 0)
	return list, nil
}

// CreateInput is a validated role creation request.
type CreateInput struct {
	Name        string
	Description *string
	Color       *string
	Permissions []string
	IsDefault   bool
	Priority    int
}

// Create adds a role. Permission tags must name known permissions.
func (s *Service) Create(ctx context.Context, communityID uuid.UUID, in CreateInput) (*models.Role, error) {
	if err := validatePermissions(in.Permissions); err != nil {
		return nil, err
	}
	existing, err := s.store.GetByName(ctx, communityID, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrNameTaken
	}

	role := &models.Role{
		CommunityID: communityID,
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		Permissions: in.Permissions,
		IsDefault:   in.IsDefault,
		Priority:    in.Priority,
	}
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	if err := s.store.Create(ctx, role); err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, s.keys.CommunityRoles(communityID.String()))
	s.logger.Info("role created",
		zap.String("community_id", communityID.String()),
		zap.String("role", role.Name))
	return role, nil
}

// UpdateInput carries a role update; nil fields are unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Color       *string
	Permissions *[]string
	Priority    *int
}

// Update mutates a role. Changed permission sets take effect on the next
// authorization check since membership is always read from the database.
func (s *Service) Update(ctx context.Context, communityID, roleID uuid.UUID, in UpdateInput) (*models.Role, error) {
	role, err := s.store.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil || role.CommunityID != communityID {
		return nil, ErrNotFound
	}
	if in.Permissions != nil {
		if err := validatePermissions(*in.Permissions); err != nil {
			return nil, err
		}
	}
	if in.Name != nil && *in.Name != role.Name {
		existing, err := s.store.GetByName(ctx, communityID, *in.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrNameTaken
		}
	}

	updated, err := s.store.Update(ctx, roleID, UpdateFields{
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		Permissions: in.Permissions,
		Priority:    in.Priority,
	})
	if err != nil {
		return nil, err
	}

	s.cache.Delete(ctx, s.keys.CommunityRoles(communityID.String()))
	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("role updated",
		zap.String("community_id", communityID.String()),
		zap.String("role_id", roleID.String()))
	return updated, nil
}

// Delete removes a role. Bootstrap roles (owner, default member role) are
// protected.
func (s *Service) Delete(ctx context.Context, communityID, roleID uuid.UUID) error {
	role, err := s.store.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role == nil || role.CommunityID != communityID {
		return ErrNotFound
	}
	if role.IsDefault || role.Name == "owner" {
		return ErrProtected
	}

	if err := s.store.Delete(ctx, roleID); err != nil {
		return err
	}

	s.cache.Delete(ctx, s.keys.CommunityRoles(communityID.String()))
	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))
	s.logger.Info("role deleted",
		zap.String("community_id", communityID.String()),
		zap.String("role_id", roleID.String()))
	return nil
}

func validatePermissions(tags []string) error {
	for _, tag := range tags {
		if _, ok := rbac.Parse(tag); !ok {
			return fmt.Errorf("unknown permission %q", tag)
		}
	}
	return nil
}
