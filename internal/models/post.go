package models

import (
	"time"

	"github.com/google/uuid"
)

// Post statuses.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
	PostStatusArchived  = "archived"
	PostStatusModerated = "moderated"
)

// Post is content authored inside a community, optionally bound to a channel.
type Post struct {
	ID           uuid.UUID  `json:"id"`
	CommunityID  uuid.UUID  `json:"community_id"`
	ChannelID    *uuid.UUID `json:"channel_id,omitempty"`
	AuthorID     uuid.UUID  `json:"author_id"`
	Title        *string    `json:"title,omitempty"`
	Content      string     `json:"content"`
	Status       string     `json:"status"`
	IsPinned     bool       `json:"is_pinned"`
	MediaURLs    []string   `json:"media_urls"`
	LikeCount    int        `json:"like_count"`
	CommentCount int        `json:"comment_count"`
	ViewCount    int        `json:"view_count"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
