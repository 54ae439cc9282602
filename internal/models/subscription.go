package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Subscription statuses.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// SubscriptionLevel is a paid tier offered by a community. Amounts are in
// minor units (cents) to avoid float arithmetic on money.
type SubscriptionLevel struct {
	ID              uuid.UUID       `json:"id"`
	CommunityID     uuid.UUID       `json:"community_id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description,omitempty"`
	PriceCents      int64           `json:"price_cents"`
	Currency        string          `json:"currency"`
	DurationDays    int             `json:"duration_days"`
	Features        json.RawMessage `json:"features,omitempty"`
	IsActive        bool            `json:"is_active"`
	MaxSubscribers  *int            `json:"max_subscribers,omitempty"`
	SubscriberCount int             `json:"subscriber_count"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Subscription is one user's active tier inside a community.
type Subscription struct {
	ID          uuid.UUID `json:"id"`
	LevelID     uuid.UUID `json:"level_id"`
	UserID      uuid.UUID `json:"user_id"`
	CommunityID uuid.UUID `json:"community_id"`
	Status      string    `json:"status"`
	StartsAt    time.Time `json:"starts_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	AutoRenew   bool      `json:"auto_renew"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
