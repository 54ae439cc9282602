package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/cache"
	"github.com/nexus-community/backend/pkg/messaging"
)

type fakeSubscriptionStore struct {
	due        []*models.Subscription
	err        error
	decrements []uuid.UUID
}

func (s *fakeSubscriptionStore) ExpireDue(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	due := s.due
	s.due = nil
	return due, nil
}

func (s *fakeSubscriptionStore) IncrementSubscriberCount(ctx context.Context, id uuid.UUID, delta int) error {
	s.decrements = append(s.decrements, id)
	return nil
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

func newSweeper(t *testing.T, store *fakeSubscriptionStore, pub *recordingPublisher) (*ExpirySweeper, *miniredis.Miniredis, cache.Keys) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(client, cache.Options{DefaultTTL: 5 * time.Minute, AnalyticsTTL: 10 * time.Minute}, nil)
	t.Cleanup(func() { _ = c.Close() })

	keys := cache.NewKeys("community:")
	return NewExpirySweeper(store, c, keys, pub, DefaultSweepInterval, nil), mr, keys
}

func subscription(communityID uuid.UUID) *models.Subscription {
	return &models.Subscription{
		ID:          uuid.New(),
		CommunityID: communityID,
		UserID:      uuid.New(),
		LevelID:     uuid.New(),
		Status:      models.SubscriptionStatusExpired,
	}
}

func TestSweepNothingDue(t *testing.T) {
	store := &fakeSubscriptionStore{}
	pub := &recordingPublisher{}
	sweeper, _, _ := newSweeper(t, store, pub)

	count, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, pub.events)
}

func TestSweepExpiresDueSubscriptions(t *testing.T) {
	communityID := uuid.New()
	subA := subscription(communityID)
	subB := subscription(communityID)
	store := &fakeSubscriptionStore{due: []*models.Subscription{subA, subB}}
	pub := &recordingPublisher{}
	sweeper, mr, keys := newSweeper(t, store, pub)

	// Warm derived views for the affected community and a bystander.
	ctx := context.Background()
	affectedKey := keys.CommunityAnalytics(communityID.String())
	otherKey := keys.CommunityAnalytics(uuid.New().String())
	require.NoError(t, mr.Set(affectedKey, "{}"))
	require.NoError(t, mr.Set(otherKey, "{}"))

	count, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.ElementsMatch(t, []uuid.UUID{subA.LevelID, subB.LevelID}, store.decrements)
	assert.False(t, mr.Exists(affectedKey))
	assert.True(t, mr.Exists(otherKey))

	require.Len(t, pub.events, 2)
	for _, event := range pub.events {
		assert.Equal(t, "subscription.ended", event.EventType)
		assert.Equal(t, "expired", event.Payload["reason"])
		assert.Equal(t, communityID.String(), event.Payload["community_id"])
	}
}

// cacheCheckingPublisher records, per publish, whether a given cache key
// still existed at publish time.
type cacheCheckingPublisher struct {
	mr       *miniredis.Miniredis
	watchKey string
	stale    []bool
}

func (p *cacheCheckingPublisher) Connect(ctx context.Context) error { return nil }
func (p *cacheCheckingPublisher) Close() error                      { return nil }
func (p *cacheCheckingPublisher) Publish(ctx context.Context, event messaging.Event, routingKey string) error {
	p.stale = append(p.stale, p.mr.Exists(p.watchKey))
	return nil
}

func TestSweepInvalidatesBeforePublishing(t *testing.T) {
	communityID := uuid.New()
	store := &fakeSubscriptionStore{due: []*models.Subscription{subscription(communityID), subscription(communityID)}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(client, cache.Options{DefaultTTL: 5 * time.Minute, AnalyticsTTL: 10 * time.Minute}, nil)
	t.Cleanup(func() { _ = c.Close() })

	keys := cache.NewKeys("community:")
	watchKey := keys.CommunityAnalytics(communityID.String())
	require.NoError(t, mr.Set(watchKey, "{}"))

	pub := &cacheCheckingPublisher{mr: mr, watchKey: watchKey}
	sweeper := NewExpirySweeper(store, c, keys, pub, DefaultSweepInterval, nil)

	count, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.Len(t, pub.stale, 2)
	for i, stale := range pub.stale {
		assert.False(t, stale, "event %d published while the cached view was still present", i)
	}
}

func TestSweepStoreError(t *testing.T) {
	store := &fakeSubscriptionStore{err: errors.New("db down")}
	pub := &recordingPublisher{}
	sweeper, _, _ := newSweeper(t, store, pub)

	_, err := sweeper.Sweep(context.Background())
	assert.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeSubscriptionStore{}
	pub := &recordingPublisher{}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewWithClient(client, cache.Options{DefaultTTL: time.Minute, AnalyticsTTL: time.Minute}, nil)
	t.Cleanup(func() { _ = c.Close() })

	sweeper := NewExpirySweeper(store, c, cache.NewKeys("community:"), pub, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
