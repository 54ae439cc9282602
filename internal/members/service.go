package members

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
	// ErrCommunityNotFound means the target community does not exist.
	ErrCommunityNotFound = errors.New("community not found")
	// ErrNotFound means the member does not exist in the community.
	ErrNotFound = errors.New("member not found")
	// ErrAlreadyMember means the user already belongs to the community.
	ErrAlreadyMember = errors.New("already a member")
	// ErrOwnerImmutable means the owner membership cannot be removed or banned.
	ErrOwnerImmutable = errors.New("owner membership cannot be changed")
	// ErrRoleNotFound means a role id does not belong to the community.
	ErrRoleNotFound = errors.New("role not found in community")
)

// Store is the member persistence the service depends on.
type Store interface {
	Create(ctx context.Context, m *models.Member) error
	GetByUserAndCommunity(ctx context.Context, userID, communityID uuid.UUID) (*models.Member, error)
	ListByCommunity(ctx context.Context, communityID uuid.UUID, offset, limit int, status string) ([]*models.Member, int, error)
	Update(ctx context.Context, memberID uuid.UUID, f UpdateFields) error
	Delete(ctx context.Context, memberID uuid.UUID) error
	AssignRole(ctx context.Context, memberID, roleID uuid.UUID) error
	ClearRoles(ctx context.Context, memberID uuid.UUID) error
}

// CommunityStore is the slice of the communities repository the service uses.
type CommunityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
	IncrementMemberCount(ctx context.Context, id uuid.UUID, delta int) error
}

// RoleStore resolves roles for assignment.
type RoleStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	GetDefault(ctx context.Context, communityID uuid.UUID) (*models.Role, error)
}

// Service orchestrates membership mutations.
type Service struct {
	store       Store
	communities CommunityStore
	roles       RoleStore
	cache       *cache.Cache
	keys        cache.Keys
	publisher   messaging.Publisher
	logger      *zap.Logger
}

// NewService creates a members service.
func NewService(store Store, communities CommunityStore, roles RoleStore, c *cache.Cache, keys cache.Keys, publisher messaging.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, communities: communities, roles: roles, cache: c, keys: keys, publisher: publisher, logger: logger}
}

// List returns a page of members, optionally filtered by status. Unfiltered
// first pages are served cache-aside.
func (s *Service) List(ctx context.Context, communityID uuid.UUID, page, pageSize int, status string) (response.Paginated, error) {
	cacheable := status == ""
	key := s.keys.CommunityMembers(communityID.String(), page)
	if cacheable {
		var cached response.Paginated
		if s.cache.Get(ctx, key, &cached) {
			return cached, nil
		}
	}

	list, total, err := s.store.ListByCommunity(ctx, communityID, (page-1)*pageSize, pageSize, status)
	if err != nil {
		return response.Paginated{}, err
	}
	result := response.NewPaginated(list, total, page, pageSize)
	if cacheable {
		s.cache.Set(ctx, key, result, 0)
	}
	return result, nil
}

// Join adds the caller to a community. Private communities produce a pending
// membership; public ones are active immediately and get the default role.
func (s *Service) Join(ctx context.Context, identity *auth.Identity, communityID uuid.UUID, nickname *string) (*models.Member, error) {
	community, err := s.communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community == nil || community.Status != models.CommunityStatusActive {
		return nil, ErrCommunityNotFound
	}

	existing, err := s.store.GetByUserAndCommunity(ctx, identity.UserID, communityID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	status := models.MemberStatusActive
	if community.CommunityType == models.CommunityTypePrivate {
		status = models.MemberStatusPending
	}
	member := &models.Member{
		CommunityID: communityID,
		UserID:      identity.UserID,
		Status:      status,
		Nickname:    nickname,
	}
	if err := s.store.Create(ctx, member); err != nil {
		return nil, err
	}

	if status == models.MemberStatusActive {
		def, err := s.roles.GetDefault(ctx, communityID)
		if err != nil {
			s.logger.Warn("default role lookup failed", zap.Error(err),
				zap.String("community_id", communityID.String()))
		} else if def != nil {
			if err := s.store.AssignRole(ctx, member.ID, def.ID); err != nil {
				s.logger.Warn("default role assignment failed", zap.Error(err))
			} else {
				member.Roles = []models.Role{*def}
			}
		}
		if err := s.communities.IncrementMemberCount(ctx, communityID, 1); err != nil {
			s.logger.Warn("member count increment failed", zap.Error(err))
		}
	}

	s.cache.Delete(ctx, s.keys.Community(communityID.String()))
	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))

	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventMemberJoined, map[string]interface{}{
		"community_id": communityID.String(),
		"user_id":      identity.UserID.String(),
		"status":       status,
	}, nil)

	s.logger.Info("member joined",
		zap.String("community_id", communityID.String()),
		zap.String("user_id", identity.UserID.String()),
		zap.String("status", status))
	return member, nil
}

// UpdateInput carries a member update; nil fields are unchanged. RoleIDs,
// when non-nil, replaces the member's full role set.
type UpdateInput struct {
	Status   *string
	Nickname *string
	RoleIDs  *[]uuid.UUID
}

// Update mutates a member's status, nickname, or role set.
func (s *Service) Update(ctx context.Context, communityID, userID uuid.UUID, in UpdateInput) (*models.Member, error) {
	member, err := s.store.GetByUserAndCommunity(ctx, userID, communityID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotFound
	}
	if member.IsOwner && in.Status != nil && *in.Status != models.MemberStatusActive {
		return nil, ErrOwnerImmutable
	}

	if in.RoleIDs != nil {
		roles := make([]models.Role, 0, len(*in.RoleIDs))
		for _, roleID := range *in.RoleIDs {
			role, err := s.roles.GetByID(ctx, roleID)
			if err != nil {
				return nil, err
			}
			if role == nil || role.CommunityID != communityID {
				return nil, ErrRoleNotFound
			}
			roles = append(roles, *role)
		}
		if err := s.store.ClearRoles(ctx, member.ID); err != nil {
			return nil, err
		}
		for _, role := range roles {
			if err := s.store.AssignRole(ctx, member.ID, role.ID); err != nil {
				return nil, err
			}
		}
		member.Roles = roles
	}

	if in.Status != nil || in.Nickname != nil {
		if err := s.store.Update(ctx, member.ID, UpdateFields{Status: in.Status, Nickname: in.Nickname}); err != nil {
			return nil, err
		}
		if in.Status != nil {
			member.Status = *in.Status
		}
		if in.Nickname != nil {
			member.Nickname = in.Nickname
		}
	}

	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))

	s.logger.Info("member updated",
		zap.String("community_id", communityID.String()),
		zap.String("user_id", userID.String()))
	return member, nil
}

// Remove deletes a membership, either a self-leave or a kick. The owner
// membership can never be removed.
func (s *Service) Remove(ctx context.Context, communityID, userID uuid.UUID) error {
	member, err := s.store.GetByUserAndCommunity(ctx, userID, communityID)
	if err != nil {
		return err
	}
	if member == nil {
		return ErrNotFound
	}
	if member.IsOwner {
		return ErrOwnerImmutable
	}

	if err := s.store.Delete(ctx, member.ID); err != nil {
		return err
	}
	if member.Status == models.MemberStatusActive {
		if err := s.communities.IncrementMemberCount(ctx, communityID, -1); err != nil {
			s.logger.Warn("member count decrement failed", zap.Error(err))
		}
	}

	s.cache.Delete(ctx, s.keys.Community(communityID.String()))
	s.cache.DeletePattern(ctx, s.keys.CommunityPattern(communityID.String()))

	_ = messaging.PublishEvent(ctx, s.publisher, messaging.EventMemberLeft, map[string]interface{}{
		"community_id": communityID.String(),
		"user_id":      userID.String(),
	}, nil)

	s.logger.Info("member removed",
		zap.String("community_id", communityID.String()),
		zap.String("user_id", userID.String()))
	return nil
}
