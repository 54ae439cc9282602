package messaging

import (
	"time"

	"github.com/google/uuid"
)

// ServiceName tags every event with its originating service.
const ServiceName = "community-service"

// EventType enumerates the domain events this service emits. The set is
// closed; consumers can rely on it.
type EventType string

const (
	EventCommunityCreated    EventType = "community.created"
	EventCommunityUpdated    EventType = "community.updated"
	EventCommunityDeleted    EventType = "community.deleted"
	EventMemberJoined        EventType = "member.joined"
	EventMemberLeft          EventType = "member.left"
	EventPostCreated         EventType = "post.created"
	EventPostUpdated         EventType = "post.updated"
	EventPostDeleted         EventType = "post.deleted"
	EventDonationReceived    EventType = "donation.received"
	EventSubscriptionStarted EventType = "subscription.started"
	EventSubscriptionEnded   EventType = "subscription.ended"
	EventEventCreated        EventType = "event.created"
	EventEventUpdated        EventType = "event.updated"
	EventEventDeleted        EventType = "event.deleted"
)

// Event is the wire envelope handed to the broker. It describes a committed
// state change and is never persisted by this service.
type Event struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Timestamp string                 `json:"timestamp"`
	Service   string                 `json:"service"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// NewEvent builds an envelope with a fresh event id and UTC timestamp.
func NewEvent(eventType EventType, payload, metadata map[string]interface{}) Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return Event{
		EventID:   uuid.New().String(),
		EventType: string(eventType),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   ServiceName,
		Payload:   payload,
		Metadata:  metadata,
	}
}
