package roles

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/cache"
)

type fakeStore struct {
	byID      map[uuid.UUID]*models.Role
	listCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byID: map[uuid.UUID]*models.Role{}}
}

func (s *fakeStore) Create(ctx context.Context, role *models.Role) error {
	role.ID = uuid.New()
	s.byID[role.ID] = role
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return s.byID[id], nil
}

func (s *fakeStore) GetByName(ctx context.Context, communityID uuid.UUID, name string) (*models.Role, error) {
	for _, r := range s.byID {
		if r.CommunityID == communityID && r.Name == name {
			return r, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListByCommunity(ctx context.Context, communityID uuid.UUID) ([]*models.Role, error) {
	s.listCalls++
	var list []*models.Role
	for _, r := range s.byID {
		if r.CommunityID == communityID {
			list = append(list, r)
		}
	}
	return list, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Role, error) {
	role := s.byID[id]
	if role == nil {
		return nil, nil
	}
	if f.Name != nil {
		role.Name = *f.Name
	}
	if f.Permissions != nil {
		role.Permissions = *f.Permissions
	}
	return role, nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.byID, id)
	return nil
}

func newService(t *testing.T) (*Service, *fakeStore, *miniredis.Miniredis, cache.Keys) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(client, cache.Options{DefaultTTL: 5 * time.Minute, AnalyticsTTL: 10 * time.Minute}, nil)
	t.Cleanup(func() { _ = c.Close() })

	store := newFakeStore()
	keys := cache.NewKeys("community:")
	return NewService(store, c, keys, nil), store, mr, keys
}

func TestCreateRole(t *testing.T) {
	svc, _, _, _ := newService(t)
	communityID := uuid.New()

	role, err := svc.Create(context.Background(), communityID, CreateInput{
		Name:        "moderator",
		Permissions: []string{"post.moderate", "member.kick"},
		Priority:    50,
	})
	require.NoError(t, err)
	assert.Equal(t, communityID, role.CommunityID)
	assert.Equal(t, []string{"post.moderate", "member.kick"}, role.Permissions)
}

func TestCreateRejectsUnknownPermission(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Name:        "bad",
		Permissions: []string{"post.moderate", "server.reboot"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown permission "server.reboot"`)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, _, _, _ := newService(t)
	communityID := uuid.New()

	_, err := svc.Create(context.Background(), communityID, CreateInput{Name: "moderator"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), communityID, CreateInput{Name: "moderator"})
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestListServedFromCache(t *testing.T) {
	svc, store, _, _ := newService(t)
	communityID := uuid.New()
	_, err := svc.Create(context.Background(), communityID, CreateInput{Name: "moderator"})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), communityID)
	require.NoError(t, err)
	require.Equal(t, 1, store.listCalls)

	list, err := svc.List(context.Background(), communityID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, store.listCalls, "second list should hit the cache")
}

func TestUpdatePermissionsInvalidatesCaches(t *testing.T) {
	svc, _, mr, keys := newService(t)
	communityID := uuid.New()
	role, err := svc.Create(context.Background(), communityID, CreateInput{Name: "moderator"})
	require.NoError(t, err)

	// Warm the roles list and a derived member page.
	_, err = svc.List(context.Background(), communityID)
	require.NoError(t, err)
	memberPage := keys.CommunityMembers(communityID.String(), 1)
	require.NoError(t, mr.Set(memberPage, "[]"))

	perms := []string{"post.moderate"}
	updated, err := svc.Update(context.Background(), communityID, role.ID, UpdateInput{Permissions: &perms})
	require.NoError(t, err)
	assert.Equal(t, perms, updated.Permissions)

	assert.False(t, mr.Exists(keys.CommunityRoles(communityID.String())))
	assert.False(t, mr.Exists(memberPage))
}

func TestUpdateRoleFromOtherCommunity(t *testing.T) {
	svc, _, _, _ := newService(t)
	role, err := svc.Create(context.Background(), uuid.New(), CreateInput{Name: "moderator"})
	require.NoError(t, err)

	name := "renamed"
	_, err = svc.Update(context.Background(), uuid.New(), role.ID, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProtectedRoles(t *testing.T) {
	svc, store, _, _ := newService(t)
	communityID := uuid.New()

	def := &models.Role{CommunityID: communityID, Name: "member", IsDefault: true}
	require.NoError(t, store.Create(context.Background(), def))
	owner := &models.Role{CommunityID: communityID, Name: "owner"}
	require.NoError(t, store.Create(context.Background(), owner))
	mod := &models.Role{CommunityID: communityID, Name: "moderator"}
	require.NoError(t, store.Create(context.Background(), mod))

	assert.ErrorIs(t, svc.Delete(context.Background(), communityID, def.ID), ErrProtected)
	assert.ErrorIs(t, svc.Delete(context.Background(), communityID, owner.ID), ErrProtected)
	require.NoError(t, svc.Delete(context.Background(), communityID, mod.ID))
	assert.NotContains(t, store.byID, mod.ID)
}
