package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/cache"
)

// ErrCommunityNotFound means the community does not exist.
var ErrCommunityNotFound = errors.New("community not found")

// CommunityStore loads the community the snapshot describes.
type CommunityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Community, error)
}

// MemberStore counts active members.
type MemberStore interface {
	CountActive(ctx context.Context, communityID uuid.UUID) (int, error)
}

// EventStore counts upcoming events.
type EventStore interface {
	CountUpcoming(ctx context.Context, communityID uuid.UUID) (int, error)
}

// SubscriptionStore counts active subscriptions.
type SubscriptionStore interface {
	CountActiveByCommunity(ctx context.Context, communityID uuid.UUID) (int, error)
}

// DonationStore sums completed donations.
type DonationStore interface {
	TotalByCommunity(ctx context.Context, communityID uuid.UUID) (int64, error)
}

// CommunitySnapshot is the aggregate view served to community managers.
type CommunitySnapshot struct {
	CommunityID         string    `json:"community_id"`
	ActiveMembers       int       `json:"active_members"`
	PostCount           int       `json:"post_count"`
	UpcomingEvents      int       `json:"upcoming_events"`
	ActiveSubscriptions int       `json:"active_subscriptions"`
	DonationTotalCents  int64     `json:"donation_total_cents"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// Service assembles read-only aggregates. Snapshots are expensive to build,
// so they are cached with the longer analytics TTL and refreshed lazily.
type Service struct {
	communities   CommunityStore
	members       MemberStore
	events        EventStore
	subscriptions SubscriptionStore
	donations     DonationStore
	cache         *cache.Cache
	keys          cache.Keys
	logger        *zap.Logger
}

// NewService creates an analytics service.
func NewService(communities CommunityStore, members MemberStore, events EventStore, subscriptions SubscriptionStore, donations DonationStore, c *cache.Cache, keys cache.Keys, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		communities:   communities,
		members:       members,
		events:        events,
		subscriptions: subscriptions,
		donations:     donations,
		cache:         c,
		keys:          keys,
		logger:        logger,
	}
}

// CommunityOverview returns the cached aggregate snapshot for a community.
func (s *Service) CommunityOverview(ctx context.Context, communityID uuid.UUID) (*CommunitySnapshot, error) {
	key := s.keys.CommunityAnalytics(communityID.String())
	var cached CommunitySnapshot
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	community, err := s.communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community == nil {
		return nil, ErrCommunityNotFound
	}

	snapshot := &CommunitySnapshot{
		CommunityID: communityID.String(),
		PostCount:   community.PostCount,
		GeneratedAt: time.Now().UTC(),
	}
	if snapshot.ActiveMembers, err = s.members.CountActive(ctx, communityID); err != nil {
		return nil, err
	}
	if snapshot.UpcomingEvents, err = s.events.CountUpcoming(ctx, communityID); err != nil {
		return nil, err
	}
	if snapshot.ActiveSubscriptions, err = s.subscriptions.CountActiveByCommunity(ctx, communityID); err != nil {
		return nil, err
	}
	if snapshot.DonationTotalCents, err = s.donations.TotalByCommunity(ctx, communityID); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, key, snapshot, s.cache.AnalyticsTTL())
	s.logger.Debug("analytics snapshot built", zap.String("community_id", communityID.String()))
	return snapshot, nil
}
