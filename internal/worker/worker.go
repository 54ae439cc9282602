package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexus-community/backend/internal/models"
	"github.com/nexus-community/backend/pkg/cache"
	"github.com/nexus-community/backend/pkg/messaging"
)

// DefaultSweepInterval is how often the sweeper checks for due subscriptions.
const DefaultSweepInterval = time.Minute

// SubscriptionStore is the slice of the subscriptions repository the sweeper
// uses.
type SubscriptionStore interface {
	ExpireDue(ctx context.Context, now time.Time) ([]*models.Subscription, error)
	IncrementSubscriberCount(ctx context.Context, id uuid.UUID, delta int) error
}

// ExpirySweeper expires overdue subscriptions on a fixed interval, fixes the
// per-level subscriber counters, invalidates affected community caches, and
// emits one ended event per subscription.
type ExpirySweeper struct {
	store     SubscriptionStore
	cache     *cache.Cache
	keys      cache.Keys
	publisher messaging.Publisher
	interval  time.Duration
	logger    *zap.Logger
}

// NewExpirySweeper creates a sweeper. A non-positive interval falls back to
// DefaultSweepInterval.
func NewExpirySweeper(store SubscriptionStore, c *cache.Cache, keys cache.Keys, publisher messaging.Publisher, interval time.Duration, logger *zap.Logger) *ExpirySweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ExpirySweeper{store: store, cache: c, keys: keys, publisher: publisher, interval: interval, logger: logger}
}

// Sweep runs one expiry pass and returns how many subscriptions it expired.
func (w *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	expired, err := w.store.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	communities := make(map[uuid.UUID]struct{}, len(expired))
	for _, sub := range expired {
		if err := w.store.IncrementSubscriberCount(ctx, sub.LevelID, -1); err != nil {
			w.logger.Warn("subscriber count decrement failed",
				zap.Error(err), zap.String("level_id", sub.LevelID.String()))
		}
		communities[sub.CommunityID] = struct{}{}
	}

	// Invalidate before announcing, so a consumer reacting to an ended
	// event never reads a stale cached view of the community.
	for communityID := range communities {
		w.cache.DeletePattern(ctx, w.keys.CommunityPattern(communityID.String()))
	}

	for _, sub := range expired {
		_ = messaging.PublishEvent(ctx, w.publisher, messaging.EventSubscriptionEnded, map[string]interface{}{
			"community_id":    sub.CommunityID.String(),
			"user_id":         sub.UserID.String(),
			"subscription_id": sub.ID.String(),
			"reason":          "expired",
		}, nil)
	}

	w.logger.Info("subscriptions expired", zap.Int("count", len(expired)))
	return len(expired), nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (w *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("expiry sweeper started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiry sweeper stopping")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}
