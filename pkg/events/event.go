package events

import (
	"context"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "USER_BANNED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

// Bus is anything that can put an event on the wire.
type Bus interface {
	Publish(ctx context.Context, event Event) error
}

const (
	TypeUserBanned            = "USER_BANNED"
	TypeUserUnbanned          = "USER_UNBANNED"
	TypeUserLocked            = "USER_LOCKED"
	TypeUserUnlocked          = "USER_UNLOCKED"
	TypeUserDeleted           = "USER_DELETED"
	TypeAdminGranted          = "ADMIN_GRANTED"
	TypeAdminRevoked          = "ADMIN_REVOKED"
	TypeSubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	TypeSubscriptionRenewed   = "SUBSCRIPTION_RENEWED"
	TypeSubscriptionCanceled  = "SUBSCRIPTION_CANCELED"
	TypeReferralCompleted     = "REFERRAL_COMPLETED"
	TypeGenerationCompleted   = "GENERATION_COMPLETED"
	TypeGenerationFailed      = "GENERATION_FAILED"
)

// Subject is the NATS subject an event type is published on.
func Subject(eventType string) string {
	return "events." + eventType
}
