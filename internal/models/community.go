package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Community visibility types.
const (
	CommunityTypePublic     = "public"
	CommunityTypePrivate    = "private"
	CommunityTypeRestricted = "restricted"
)

// Community lifecycle statuses.
const (
	CommunityStatusActive    = "active"
	CommunityStatusSuspended = "suspended"
	CommunityStatusArchived  = "archived"
)

// Community is an isolated tenant: its members, roles, content, and
// permissions are scoped independently of other communities.
type Community struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   *string         `json:"description,omitempty"`
	CommunityType string          `json:"community_type"`
	Status        string          `json:"status"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	AvatarURL     *string         `json:"avatar_url,omitempty"`
	BannerURL     *string         `json:"banner_url,omitempty"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	MemberCount   int             `json:"member_count"`
	PostCount     int             `json:"post_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
