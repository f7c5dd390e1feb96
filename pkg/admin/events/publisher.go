package events

import (
	"context"
	"time"

	"fanova-be/internal/pkg/logger"
	pkgEvents "fanova-be/pkg/events"

	"github.com/google/uuid"
)

// Publisher abstracts event publishing for admin moderation
type Publisher interface {
	PublishUserBanned(ctx context.Context, adminId, userId uuid.UUID, email, reason string)
	PublishUserUnbanned(ctx context.Context, adminId, userId uuid.UUID, email string)
	PublishUserLocked(ctx context.Context, adminId, userId uuid.UUID, email, reason string)
	PublishUserUnlocked(ctx context.Context, adminId, userId uuid.UUID, email string)
	PublishUserDeleted(ctx context.Context, adminId, userId uuid.UUID, email string)
	PublishAdminGranted(ctx context.Context, adminId, userId uuid.UUID, email, role string)
	PublishAdminRevoked(ctx context.Context, adminId, userId uuid.UUID, email string)
}

// NatsPublisher implements Publisher on top of the event bus. A nil bus drops events.
type NatsPublisher struct {
	bus    pkgEvents.Bus
	logger logger.ILogger
}

func NewNatsPublisher(bus pkgEvents.Bus, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		bus:    bus,
		logger: logger,
	}
}

func (p *NatsPublisher) publish(ctx context.Context, eventType string, adminId, userId uuid.UUID, data map[string]interface{}) {
	if p.bus == nil {
		return
	}

	now := time.Now()
	data["admin_id"] = adminId.String()
	data["user_id"] = userId.String()
	data["entity_type"] = "user"
	data["entity_id"] = userId.String()
	data["occurred_at"] = now

	evt := pkgEvents.BaseEvent{Type: eventType, Data: data, OccurredAt: now}
	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Error("ADMIN", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

// PublishUserBanned emits USER_BANNED; the notification consumer emails the user
func (p *NatsPublisher) PublishUserBanned(ctx context.Context, adminId, userId uuid.UUID, email, reason string) {
	p.publish(ctx, pkgEvents.TypeUserBanned, adminId, userId, map[string]interface{}{
		"email":  email,
		"reason": reason,
	})
}

func (p *NatsPublisher) PublishUserUnbanned(ctx context.Context, adminId, userId uuid.UUID, email string) {
	p.publish(ctx, pkgEvents.TypeUserUnbanned, adminId, userId, map[string]interface{}{"email": email})
}

func (p *NatsPublisher) PublishUserLocked(ctx context.Context, adminId, userId uuid.UUID, email, reason string) {
	p.publish(ctx, pkgEvents.TypeUserLocked, adminId, userId, map[string]interface{}{
		"email":  email,
		"reason": reason,
	})
}

func (p *NatsPublisher) PublishUserUnlocked(ctx context.Context, adminId, userId uuid.UUID, email string) {
	p.publish(ctx, pkgEvents.TypeUserUnlocked, adminId, userId, map[string]interface{}{"email": email})
}

func (p *NatsPublisher) PublishUserDeleted(ctx context.Context, adminId, userId uuid.UUID, email string) {
	p.publish(ctx, pkgEvents.TypeUserDeleted, adminId, userId, map[string]interface{}{"email": email})
}

func (p *NatsPublisher) PublishAdminGranted(ctx context.Context, adminId, userId uuid.UUID, email, role string) {
	p.publish(ctx, pkgEvents.TypeAdminGranted, adminId, userId, map[string]interface{}{
		"email": email,
		"role":  role,
	})
}

func (p *NatsPublisher) PublishAdminRevoked(ctx context.Context, adminId, userId uuid.UUID, email string) {
	p.publish(ctx, pkgEvents.TypeAdminRevoked, adminId, userId, map[string]interface{}{"email": email})
}
