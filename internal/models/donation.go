package models

import (
	"time"

	"github.com/google/uuid"
)

// Donation statuses.
const (
	DonationStatusPending   = "pending"
	DonationStatusCompleted = "completed"
	DonationStatusFailed    = "failed"
	DonationStatusRefunded  = "refunded"
)

// Donation is a one-off payment from a user to a community. Amounts are in
// minor units (cents).
type Donation struct {
	ID            uuid.UUID `json:"id"`
	CommunityID   uuid.UUID `json:"community_id"`
	DonorID       uuid.UUID `json:"donor_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Message       *string   `json:"message,omitempty"`
	Status        string    `json:"status"`
	TransactionID *string   `json:"transaction_id,omitempty"`
	IsAnonymous   bool      `json:"is_anonymous"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
