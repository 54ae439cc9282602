package communities

import (
	"context"
	"strings"
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

type fakeCommunityStore struct {
	byID     map[uuid.UUID]*models.Community
	bySlug   map[string]*models.Community
	getCalls int
}

func newFakeCommunityStore() *fakeCommunityStore {
	return &fakeCommunityStore{
		byID:   map[uuid.UUID]*models.Community{},
		bySlug: map[string]*models.Community{},
	}
}

func (s *fakeCommunityStore) Create(ctx context.Context, c *models.Community) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	s.byID[c.ID] = c
	s.bySlug[c.Slug] = c
	return nil
}

func (s *fakeCommunityStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error) {
	s.getCalls++
	return s.byID[id], nil
}

func (s *fakeCommunityStore) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	return s.bySlug[slug], nil
}

func (s *fakeCommunityStore) ListActive(ctx context.Context, offset, limit int) ([]*models.Community, int, error) {
	var items []*models.Community
	for _, c := range s.byID {
		items = append(items, c)
	}
	return items, len(items), nil
}

func (s *fakeCommunityStore) Search(ctx context.Context, query string, offset, limit int) ([]*models.Community, int, error) {
	return nil, 0, nil
}

func (s *fakeCommunityStore) Update(ctx context.Context, id uuid.UUID, f UpdateFields) (*models.Community, error) {
	c := s.byID[id]
	if c == nil {
		return nil, nil
	}
	if f.Name != nil {
		c.Name = *f.Name
	}
	if f.Status != nil {
		c.Status = *f.Status
	}
	return c, nil
}

func (s *fakeCommunityStore) Delete(ctx context.Context, id uuid.UUID) error {
	if c := s.byID[id]; c != nil {
		delete(s.bySlug, c.Slug)
	}
	delete(s.byID, id)
	return nil
}

type fakeRoleStore struct {
	created []*models.Role
}

func (s *fakeRoleStore) Create(ctx context.Context, role *models.Role) error {
	role.ID = uuid.New()
	s.created = append(s.created, role)
	return nil
}

type fakeMemberStore struct {
	created  []*models.Member
	assigned map[uuid.UUID]uuid.UUID
}

func (s *fakeMemberStore) Create(ctx context.Context, m *models.Member) error {
	m.ID = uuid.New()
	s.created = append(s.created, m)
	return nil
}

func (s *fakeMemberStore) AssignRole(ctx context.Context, memberID, roleID uuid.UUID) error {
	if s.assigned == nil {
		s.assigned = map[uuid.UUID]uuid.UUID{}
	}
	s.assigned[memberID] = roleID
	return nil
}

type fakeChannelStore struct {
	created []*models.Channel
}

func (s *fakeChannelStore) Create(ctx context.Context, ch *models.Channel) error {
	ch.ID = uuid.New()
	s.created = append(s.created, ch)
	return nil
}

type recordingPublisher struct {
	events []messaging.Event
	keys   []string
}

func (p *recordingPublisher) Connect(ctx context.Context) error { return nil }
func (p *recordingPublisher) Close() error                      { return nil }
func (p *recordingPublisher) Publish(ctx context.Context, event messaging.Event, routingKey string) error {
	p.events = append(p.events, event)
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) last(t *testing.T) messaging.Event {
	t.Helper()
	require.NotEmpty(t, p.events)
	return p.events[len(p.events)-1]
}

type serviceFixture struct {
	svc       *Service
	store     *fakeCommunityStore
	roles     *fakeRoleStore
	members   *fakeMemberStore
	channels  *fakeChannelStore
	cache     *cache.Cache
	keys      cache.Keys
	publisher *recordingPublisher
	redis     *miniredis.Miniredis
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(client, cache.Options{DefaultTTL: 5 * time.Minute, AnalyticsTTL: 10 * time.Minute}, nil)
	t.Cleanup(func() { _ = c.Close() })

	f := &serviceFixture{
		store:     newFakeCommunityStore(),
		roles:     &fakeRoleStore{},
		members:   &fakeMemberStore{},
		channels:  &fakeChannelStore{},
		cache:     c,
		keys:      cache.NewKeys("community:"),
		publisher: &recordingPublisher{},
		redis:     mr,
	}
	f.svc = NewService(f.store, f.roles, f.members, f.channels, f.cache, f.keys, f.publisher, nil)
	return f
}

func ownerIdentity() *auth.Identity {
	return &auth.Identity{UserID: uuid.New()}
}

func TestCreateBootstrapsCommunity(t *testing.T) {
	f := newServiceFixture(t)
	identity := ownerIdentity()

	community, err := f.svc.Create(context.Background(), identity, CreateInput{
		Name: "Gopher Guild",
		Slug: "gopher-guild",
	})
	require.NoError(t, err)

	assert.Equal(t, identity.UserID, community.OwnerID)
	assert.Equal(t, models.CommunityTypePublic, community.CommunityType)
	assert.Equal(t, models.CommunityStatusActive, community.Status)
	assert.Equal(t, 1, community.MemberCount)

	require.Len(t, f.roles.created, 2)
	defaultRole, ownerRole := f.roles.created[0], f.roles.created[1]
	assert.Equal(t, "member", defaultRole.Name)
	assert.True(t, defaultRole.IsDefault)
	assert.Contains(t, defaultRole.Permissions, "community.view")
	assert.Equal(t, "owner", ownerRole.Name)
	assert.Contains(t, ownerRole.Permissions, "community.delete")
	assert.Contains(t, ownerRole.Permissions, "role.manage")

	require.Len(t, f.members.created, 1)
	ownerMember := f.members.created[0]
	assert.True(t, ownerMember.IsOwner)
	assert.Equal(t, models.MemberStatusActive, ownerMember.Status)
	assert.Equal(t, ownerRole.ID, f.members.assigned[ownerMember.ID])

	require.Len(t, f.channels.created, 1)
	assert.Equal(t, "general", f.channels.created[0].Name)
	assert.True(t, f.channels.created[0].IsDefault)

	event := f.publisher.last(t)
	assert.Equal(t, "community.created", event.EventType)
	assert.Equal(t, community.ID.String(), event.Payload["community_id"])
	assert.Equal(t, identity.UserID.String(), event.Payload["owner_id"])
}

func TestCreateRejectsTakenSlug(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Create(context.Background(), ownerIdentity(), CreateInput{Name: "First", Slug: "taken"})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), ownerIdentity(), CreateInput{Name: "Second", Slug: "taken"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreateGeneratesSlugFromName(t *testing.T) {
	f := newServiceFixture(t)

	community, err := f.svc.Create(context.Background(), ownerIdentity(), CreateInput{Name: "My Cool Community!"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(community.Slug, "my-cool-community-"), "got slug %q", community.Slug)
}

func TestGetCachesCommunity(t *testing.T) {
	f := newServiceFixture(t)
	community, err := f.svc.Create(context.Background(), ownerIdentity(), CreateInput{Name: "Cached"})
	require.NoError(t, err)

	f.store.getCalls = 0
	first, err := f.svc.Get(context.Background(), community.ID)
	require.NoError(t, err)
	assert.Equal(t, community.ID, first.ID)
	assert.Equal(t, 1, f.store.getCalls)

	second, err := f.svc.Get(context.Background(), community.ID)
	require.NoError(t, err)
	assert.Equal(t, community.ID, second.ID)
	assert.Equal(t, 1, f.store.getCalls, "second read should come from cache")
}

func TestGetUnknownCommunity(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateInvalidatesAndPublishes(t *testing.T) {
	f := newServiceFixture(t)
	identity := ownerIdentity()
	community, err := f.svc.Create(context.Background(), identity, CreateInput{Name: "Before"})
	require.NoError(t, err)

	// Warm the entity cache so the invalidation is observable.
	_, err = f.svc.Get(context.Background(), community.ID)
	require.NoError(t, err)
	require.True(t, f.redis.Exists(f.keys.Community(community.ID.String())))

	name := "After"
	status := models.CommunityStatusArchived
	updated, err := f.svc.Update(context.Background(), identity, community.ID, UpdateInput{Name: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)

	assert.False(t, f.redis.Exists(f.keys.Community(community.ID.String())))

	event := f.publisher.last(t)
	assert.Equal(t, "community.updated", event.EventType)
	assert.ElementsMatch(t, []interface{}{"name", "status"}, event.Payload["updated_fields"])
}

func TestUpdateRequiresOwner(t *testing.T) {
	f := newServiceFixture(t)
	community, err := f.svc.Create(context.Background(), ownerIdentity(), CreateInput{Name: "Guarded"})
	require.NoError(t, err)

	name := "Hijacked"
	_, err = f.svc.Update(context.Background(), ownerIdentity(), community.ID, UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestUpdateAllowsSuperadmin(t *testing.T) {
	f := newServiceFixture(t)
	community, err := f.svc.Create(context.Background(), ownerIdentity(), CreateInput{Name: "Moderated"})
	require.NoError(t, err)

	name := "Moderated (renamed)"
	admin := &auth.Identity{UserID: uuid.New(), IsSuperadmin: true}
	updated, err := f.svc.Update(context.Background(), admin, community.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
}

func TestDeleteInvalidatesSubtree(t *testing.T) {
	f := newServiceFixture(t)
	identity := ownerIdentity()
	community, err := f.svc.Create(context.Background(), identity, CreateInput{Name: "Doomed"})
	require.NoError(t, err)

	other, err := f.svc.Create(context.Background(), ownerIdentity(), CreateInput{Name: "Bystander"})
	require.NoError(t, err)

	ctx := context.Background()
	id := community.ID.String()
	f.cache.Set(ctx, f.keys.Community(id), community, 0)
	f.cache.Set(ctx, f.keys.CommunityMembers(id, 1), []string{"m"}, 0)
	f.cache.Set(ctx, f.keys.CommunityRoles(id), []string{"r"}, 0)
	f.cache.Set(ctx, f.keys.Community(other.ID.String()), other, 0)

	require.NoError(t, f.svc.Delete(ctx, identity, community.ID))

	assert.False(t, f.redis.Exists(f.keys.Community(id)))
	assert.False(t, f.redis.Exists(f.keys.CommunityMembers(id, 1)))
	assert.False(t, f.redis.Exists(f.keys.CommunityRoles(id)))
	assert.True(t, f.redis.Exists(f.keys.Community(other.ID.String())), "other tenants keep their keys")

	event := f.publisher.last(t)
	assert.Equal(t, "community.deleted", event.EventType)
	assert.Equal(t, id, event.Payload["community_id"])
}

func TestDeleteRequiresOwner(t *testing.T) {
	f := newServiceFixture(t)
	community, err := f.svc.Create(context.Background(), ownerIdentity(), CreateInput{Name: "Protected"})
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), ownerIdentity(), community.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestMutationsSucceedWithStubBroker(t *testing.T) {
	f := newServiceFixture(t)
	f.svc = NewService(f.store, f.roles, f.members, f.channels, f.cache, f.keys,
		messaging.NewStubPublisher(nil), nil)
	identity := ownerIdentity()

	community, err := f.svc.Create(context.Background(), identity, CreateInput{Name: "Offline"})
	require.NoError(t, err)

	name := "Still Offline"
	_, err = f.svc.Update(context.Background(), identity, community.ID, UpdateInput{Name: &name})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), identity, community.ID))
}
