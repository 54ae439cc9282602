package models

import (
	"time"

	"github.com/google/uuid"
)

// Role belongs to exactly one community. Name is unique within the
// community; Priority only orders display; the default role is auto-assigned
// to new members.
type Role struct {
	ID          uuid.UUID `json:"id"`
	CommunityID uuid.UUID `json:"community_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Color       *string   `json:"color,omitempty"`
	Permissions []string  `json:"permissions"`
	IsDefault   bool      `json:"is_default"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
