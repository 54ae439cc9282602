package models

import (
	"time"

	"github.com/google/uuid"
)

// Member statuses.
const (
	MemberStatusActive  = "active"
	MemberStatusBanned  = "banned"
	MemberStatusMuted   = "muted"
	MemberStatusPending = "pending"
)

// Member binds one user to one community, including ownership and role
// assignments.
type Member struct {
	ID           uuid.UUID  `json:"id"`
	CommunityID  uuid.UUID  `json:"community_id"`
	UserID       uuid.UUID  `json:"user_id"`
	Status       string     `json:"status"`
	IsOwner      bool       `json:"is_owner"`
	Nickname     *string    `json:"nickname,omitempty"`
	JoinedAt     time.Time  `json:"joined_at"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	Roles        []Role     `json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
