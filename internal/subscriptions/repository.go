package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nexus-community/backend/internal/models"
)

const levelColumns = `id, community_id, name, description, price_cents, currency,
	duration_days, features, is_active, max_subscribers, subscriber_count,
	created_at, updated_at`

const subscriptionColumns = `id, level_id, user_id, community_id, status,
	starts_at, expires_at, auto_renew, created_at, updated_at`

// Repository handles subscription level and subscription persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a subscriptions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanLevel(row pgx.Row) (*models.SubscriptionLevel, error) {
	var l models.SubscriptionLevel
	err := row.Scan(&l.ID, &l.CommunityID, &l.Name, &l.Description, &l.PriceCents, &l.Currency,
		&l.DurationDays, &l.Features, &l.IsActive, &l.MaxSubscribers, &l.SubscriberCount,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(&s.ID, &s.LevelID, &s.UserID, &s.CommunityID, &s.Status,
		&s.StartsAt, &s.ExpiresAt, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// CreateLevel inserts a subscription level.
func (r *Repository) CreateLevel(ctx context.Context, l *models.SubscriptionLevel) error {
	const q = `INSERT INTO subscription_levels (community_id, name, description, price_cents,
			currency, duration_days, features, is_active, max_subscribers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, l.CommunityID, l.Name, l.Description, l.PriceCents,
		l.Currency, l.DurationDays, l.Features, l.IsActive, l.MaxSubscribers).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// DeleteLevel removes a subscription level and, via cascade, its
// subscription history.
func (r *Repository) DeleteLevel(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM subscription_levels WHERE id = $1`, id)
	return err
}

// GetLevel returns a subscription level, or nil if absent.
func (r *Repository) GetLevel(ctx context.Context, id uuid.UUID) (*models.SubscriptionLevel, error) {
	return scanLevel(r.pool.QueryRow(ctx,
		`SELECT `+levelColumns+` FROM subscription_levels WHERE id = $1`, id))
}

// GetLevelByName returns a level by community-scoped name, or nil if absent.
func (r *Repository) GetLevelByName(ctx context.Context, communityID uuid.UUID, name string) (*models.SubscriptionLevel, error) {
	return scanLevel(r.pool.QueryRow(ctx,
		`SELECT `+levelColumns+` FROM subscription_levels WHERE community_id = $1 AND name = $2`,
		communityID, name))
}

// ListLevels returns the community's levels, cheapest first. When activeOnly
// is set, disabled levels are excluded.
func (r *Repository) ListLevels(ctx context.Context, communityID uuid.UUID, activeOnly bool) ([]*models.SubscriptionLevel, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+levelColumns+` FROM subscription_levels
			WHERE community_id = $1 AND (NOT $2 OR is_active)
			ORDER BY price_cents ASC`, communityID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.SubscriptionLevel
	for rows.Next() {
		var l models.SubscriptionLevel
		if err := rows.Scan(&l.ID, &l.CommunityID, &l.Name, &l.Description, &l.PriceCents, &l.Currency,
			&l.DurationDays, &l.Features, &l.IsActive, &l.MaxSubscribers, &l.SubscriberCount,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// LevelUpdateFields carries the mutable level fields; nil means unchanged.
type LevelUpdateFields struct {
	Name           *string
	Description    *string
	PriceCents     *int64
	DurationDays   *int
	Features       []byte
	IsActive       *bool
	MaxSubscribers *int
}

// UpdateLevel applies the non-nil fields and returns the updated level.
func (r *Repository) UpdateLevel(ctx context.Context, id uuid.UUID, f LevelUpdateFields) (*models.SubscriptionLevel, error) {
	const q = `UPDATE subscription_levels SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price_cents = COALESCE($4, price_cents),
			duration_days = COALESCE($5, duration_days),
			features = COALESCE($6, features),
			is_active = COALESCE($7, is_active),
			max_subscribers = COALESCE($8, max_subscribers),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + levelColumns
	return scanLevel(r.pool.QueryRow(ctx, q, id, f.Name, f.Description, f.PriceCents,
		f.DurationDays, f.Features, f.IsActive, f.MaxSubscribers))
}

// IncrementSubscriberCount adjusts a level's subscriber counter atomically,
// clamped at zero.
func (r *Repository) IncrementSubscriberCount(ctx context.Context, id uuid.UUID, delta int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE subscription_levels SET subscriber_count = GREATEST(subscriber_count + $2, 0),
			updated_at = NOW() WHERE id = $1`, id, delta)
	return err
}

// CreateSubscription inserts a subscription.
func (r *Repository) CreateSubscription(ctx context.Context, s *models.Subscription) error {
	const q = `INSERT INTO subscriptions (level_id, user_id, community_id, status, starts_at, expires_at, auto_renew)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, s.LevelID, s.UserID, s.CommunityID, s.Status,
		s.StartsAt, s.ExpiresAt, s.AutoRenew).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetActiveSubscription returns the user's active subscription in a
// community, or nil if none.
func (r *Repository) GetActiveSubscription(ctx context.Context, userID, communityID uuid.UUID) (*models.Subscription, error) {
	return scanSubscription(r.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
			WHERE user_id = $1 AND community_id = $2 AND status = 'active'
			ORDER BY expires_at DESC LIMIT 1`, userID, communityID))
}

// ListByUser returns every subscription a user holds, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.LevelID, &s.UserID, &s.CommunityID, &s.Status,
			&s.StartsAt, &s.ExpiresAt, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// SetStatus moves a subscription to a new status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

// ExpireDue marks every active subscription past its expiry as expired and
// returns the affected rows so callers can emit events and fix counters.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	const q = `UPDATE subscriptions SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at <= $1
		RETURNING ` + subscriptionColumns
	rows, err := r.pool.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.LevelID, &s.UserID, &s.CommunityID, &s.Status,
			&s.StartsAt, &s.ExpiresAt, &s.AutoRenew, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// CountActiveByCommunity returns the number of active subscriptions in a
// community.
func (r *Repository) CountActiveByCommunity(ctx context.Context, communityID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE community_id = $1 AND status = 'active'`,
		communityID).Scan(&n)
	return n, err
}
