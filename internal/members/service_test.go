package members

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-community/backend/internal/auth"
	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/cache"
	"github.com/nexus-community/backend/pkg/messaging"
)

type fakeStore struct {
	members map[uuid.UUID]*models.Member
	roles   map[uuid.UUID][]uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{members: map[uuid.UUID]*models.Member{}, roles: map[uuid.UUID][]uuid.UUID{}}
}

func (s *fakeStore) Create(ctx context.Context, m *models.Member) error {
	m.ID = uuid.New()
	m.JoinedAt = time.Now()
	s.members[m.ID] = m
	return nil
}

func (s *fakeStore) GetByUserAndCommunity(ctx context.Context, userID, communityID uuid.UUID) (*models.Member, error) {
	for _, m := range s.members {
		if m.UserID == userID && m.CommunityID == communityID {
			return m, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) ListByCommunity(ctx context.Context, communityID uuid.UUID, offset, limit int, status string) ([]*models.Member, int, error) {
	var list []*models.Member
	for _, m := range s.members {
		if m.CommunityID == communityID && (status == "" || m.Status == status) {
			list = append(list, m)
		}
	}
	return list, len(list), nil
}

func (s *fakeStore) Update(ctx context.Context, memberID uuid.UUID, f UpdateFields) error {
	m := s.members[memberID]
	if m == nil {
		return nil
	}
	if f.Status != nil {
		m.Status = *f.Status
	}
	if f.Nickname != nil {
		m.Nickname = f.Nickname
	}
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, memberID uuid.UUID) error {
	delete(s.members, memberID)
	delete(s.roles, memberID)
	return nil
}

func (s *fakeStore) AssignRole(ctx context.Context, memberID, roleID uuid.UUID) error {
	s.roles[memberID] = append(s.roles[memberID], roleID)
	return nil
}

func (s *fakeStore) ClearRoles(ctx context.Context, memberID uuid.UUID) error {
	delete(s.roles, memberID)
	return nil
}

type fakeCommunityStore struct {
	community  *models.Community
	increments []int
}

func (s *fakeCommunityStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	if s.community != nil && s.community.ID == id {
		return s.community, nil
	}
	return nil, nil
}

func (s *fakeCommunityStore) IncrementMemberCount(ctx context.Context, id uuid.UUID, delta int) error {
	s.increments = append(s.increments, delta)
	return nil
}

type fakeRoleStore struct {
	byID        map[uuid.UUID]*models.Role
	defaultRole *models.Role
}

func (s *fakeRoleStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return s.byID[id], nil
}

func (s *fakeRoleStore) GetDefault(ctx context.Context, communityID uuid.UUID) (*models.Role, error) {
	return s.defaultRole, nil
}

type recordingPublisher struct {
	events []messaging.Event
}

func (p *recordingPublisher) Connect(ctx context.Context) error { return nil }
func (p *recordingPublisher) Close() error                      { return nil }
func (p *recordingPublisher) Publish(ctx context.Context, event messaging.Event, routingKey string) error {
	p.events = append(p.events, event)
	return nil
}

type fixture struct {
	svc         *Service
	store       *fakeStore
	communities *fakeCommunityStore
	roles       *fakeRoleStore
	publisher   *recordingPublisher
	redis       *miniredis.Miniredis
	keys        cache.Keys
	community   *models.Community
}

func newFixture(t *testing.T, communityType string) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(client, cache.Options{DefaultTTL: 5 * time.Minute, AnalyticsTTL: 10 * time.Minute}, nil)
	t.Cleanup(func() { _ = c.Close() })

	community := &models.Community{
		ID:            uuid.New(),
		Name:          "Test",
		Slug:          "test",
		CommunityType: communityType,
		Status:        models.CommunityStatusActive,
		OwnerID:       uuid.New(),
	}
	f := &fixture{
		store:       newFakeStore(),
		communities: &fakeCommunityStore{community: community},
		roles: &fakeRoleStore{
			byID: map[uuid.UUID]*models.Role{},
			defaultRole: &models.Role{
				ID:          uuid.New(),
				CommunityID: community.ID,
				Name:        "member",
				IsDefault:   true,
			},
		},
		publisher: &recordingPublisher{},
		redis:     mr,
		keys:      cache.NewKeys("community:"),
		community: community,
	}
	f.svc = NewService(f.store, f.communities, f.roles, c, f.keys, f.publisher, nil)
	return f
}

func (f *fixture) seedMember(t *testing.T, userID uuid.UUID, status string, isOwner bool) *models.Member {
	t.Helper()
	m := &models.Member{CommunityID: f.community.ID, UserID: userID, Status: status, IsOwner: isOwner}
	require.NoError(t, f.store.Create(context.Background(), m))
	return m
}

func identityFor(userID uuid.UUID) *auth.Identity {
	return &auth.Identity{UserID: userID}
}

func TestJoinPublicCommunity(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	userID := uuid.New()

	member, err := f.svc.Join(context.Background(), identityFor(userID), f.community.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.MemberStatusActive, member.Status)
	require.Len(t, member.Roles, 1)
	assert.Equal(t, "member", member.Roles[0].Name)
	assert.Equal(t, []uuid.UUID{f.roles.defaultRole.ID}, f.store.roles[member.ID])
	assert.Equal(t, []int{1}, f.communities.increments)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, "member.joined", event.EventType)
	assert.Equal(t, models.MemberStatusActive, event.Payload["status"])
}

func TestJoinPrivateCommunityIsPending(t *testing.T) {
	f := newFixture(t, models.CommunityTypePrivate)

	member, err := f.svc.Join(context.Background(), identityFor(uuid.New()), f.community.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.MemberStatusPending, member.Status)
	assert.Empty(t, member.Roles, "pending members get no role until approved")
	assert.Empty(t, f.communities.increments, "pending members do not count")
}

func TestJoinTwiceFails(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	userID := uuid.New()

	_, err := f.svc.Join(context.Background(), identityFor(userID), f.community.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.Join(context.Background(), identityFor(userID), f.community.ID, nil)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestJoinUnknownCommunity(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)

	_, err := f.svc.Join(context.Background(), identityFor(uuid.New()), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrCommunityNotFound)
}

func TestJoinSuspendedCommunity(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	f.community.Status = models.CommunityStatusSuspended

	_, err := f.svc.Join(context.Background(), identityFor(uuid.New()), f.community.ID, nil)
	assert.ErrorIs(t, err, ErrCommunityNotFound)
}

func TestJoinInvalidatesMemberPages(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	f.seedMember(t, uuid.New(), models.MemberStatusActive, false)

	// Warm the members page cache.
	_, err := f.svc.List(context.Background(), f.community.ID, 1, 20, "")
	require.NoError(t, err)
	key := f.keys.CommunityMembers(f.community.ID.String(), 1)
	require.True(t, f.redis.Exists(key))

	_, err = f.svc.Join(context.Background(), identityFor(uuid.New()), f.community.ID, nil)
	require.NoError(t, err)
	assert.False(t, f.redis.Exists(key))
}

func TestListFilteredByStatusSkipsCache(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	f.seedMember(t, uuid.New(), models.MemberStatusActive, false)
	f.seedMember(t, uuid.New(), models.MemberStatusBanned, false)

	page, err := f.svc.List(context.Background(), f.community.ID, 1, 20, models.MemberStatusBanned)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.False(t, f.redis.Exists(f.keys.CommunityMembers(f.community.ID.String(), 1)))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	userID := uuid.New()
	f.seedMember(t, userID, models.MemberStatusActive, false)

	status := models.MemberStatusMuted
	member, err := f.svc.Update(context.Background(), f.community.ID, userID, UpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.MemberStatusMuted, member.Status)
}

func TestUpdateReplacesRoleSet(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	userID := uuid.New()
	m := f.seedMember(t, userID, models.MemberStatusActive, false)
	require.NoError(t, f.store.AssignRole(context.Background(), m.ID, f.roles.defaultRole.ID))

	modRole := &models.Role{ID: uuid.New(), CommunityID: f.community.ID, Name: "moderator"}
	f.roles.byID[modRole.ID] = modRole

	member, err := f.svc.Update(context.Background(), f.community.ID, userID, UpdateInput{
		RoleIDs: &[]uuid.UUID{modRole.ID},
	})
	require.NoError(t, err)
	require.Len(t, member.Roles, 1)
	assert.Equal(t, "moderator", member.Roles[0].Name)
	assert.Equal(t, []uuid.UUID{modRole.ID}, f.store.roles[m.ID])
}

func TestUpdateRejectsForeignRole(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	userID := uuid.New()
	f.seedMember(t, userID, models.MemberStatusActive, false)

	foreign := &models.Role{ID: uuid.New(), CommunityID: uuid.New(), Name: "intruder"}
	f.roles.byID[foreign.ID] = foreign

	_, err := f.svc.Update(context.Background(), f.community.ID, userID, UpdateInput{
		RoleIDs: &[]uuid.UUID{foreign.ID},
	})
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestUpdateCannotBanOwner(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	f.seedMember(t, f.community.OwnerID, models.MemberStatusActive, true)

	status := models.MemberStatusBanned
	_, err := f.svc.Update(context.Background(), f.community.ID, f.community.OwnerID, UpdateInput{Status: &status})
	assert.ErrorIs(t, err, ErrOwnerImmutable)
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	userID := uuid.New()
	m := f.seedMember(t, userID, models.MemberStatusActive, false)

	require.NoError(t, f.svc.Remove(context.Background(), f.community.ID, userID))

	assert.NotContains(t, f.store.members, m.ID)
	assert.Equal(t, []int{-1}, f.communities.increments)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "member.left", f.publisher.events[0].EventType)
}

func TestRemovePendingMemberKeepsCount(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	userID := uuid.New()
	f.seedMember(t, userID, models.MemberStatusPending, false)

	require.NoError(t, f.svc.Remove(context.Background(), f.community.ID, userID))
	assert.Empty(t, f.communities.increments)
}

func TestRemoveOwnerFails(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	f.seedMember(t, f.community.OwnerID, models.MemberStatusActive, true)

	err := f.svc.Remove(context.Background(), f.community.ID, f.community.OwnerID)
	assert.ErrorIs(t, err, ErrOwnerImmutable)
}

func TestRemoveUnknownMember(t *testing.T) {
	f := newFixture(t, models.CommunityTypePublic)
	err := f.svc.Remove(context.Background(), f.community.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
