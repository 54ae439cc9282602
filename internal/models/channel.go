package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Channel types.
const (
	ChannelTypeText         = "text"
	ChannelTypeAnnouncement = "announcement"
	ChannelTypeMedia        = "media"
	ChannelTypeForum        = "forum"
)

// Channel is a named content stream inside a community. Name is unique
// within the community.
type Channel struct {
	ID          uuid.UUID       `json:"id"`
	CommunityID uuid.UUID       `json:"community_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	ChannelType string          `json:"channel_type"`
	IsDefault   bool            `json:"is_default"`
	Position    int             `json:"position"`
	Settings    json.RawMessage `json:"settings,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
