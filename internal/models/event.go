package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event statuses.
const (
	EventStatusScheduled = "scheduled"
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

// Event is a scheduled community gathering, online or in person.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	CommunityID   uuid.UUID       `json:"community_id"`
	CreatorID     uuid.UUID       `json:"creator_id"`
	Title         string          `json:"title"`
	Description   *string         `json:"description,omitempty"`
	Status        string          `json:"status"`
	StartsAt      time.Time       `json:"starts_at"`
	EndsAt        *time.Time      `json:"ends_at,omitempty"`
	Location      *string         `json:"location,omitempty"`
	OnlineURL     *string         `json:"online_url,omitempty"`
	MaxAttendees  *int            `json:"max_attendees,omitempty"`
	AttendeeCount int             `json:"attendee_count"`
	CoverURL      *string         `json:"cover_url,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
