package events

import (
	"context"

	"fanova-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Notifier publishes account and billing events. A nil bus makes every call a no-op.
type Notifier struct {
	bus    Bus
	logger logger.ILogger
}

func NewNotifier(bus Bus, logger logger.ILogger) *Notifier {
	return &Notifier{bus: bus, logger: logger}
}

func (n *Notifier) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if n == nil || n.bus == nil {
		return
	}
	if err := n.bus.Publish(ctx, New(eventType, data)); err != nil {
		n.logger.Error("EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

func (n *Notifier) SubscriptionActivated(ctx context.Context, userId uuid.UUID, email, plan string, credits int) {
	n.emit(ctx, TypeSubscriptionActivated, map[string]interface{}{
		"user_id": userId.String(),
		"email":   email,
		"plan":    plan,
		"credits": credits,
	})
}

func (n *Notifier) SubscriptionRenewed(ctx context.Context, userId uuid.UUID, email, plan string, credits int) {
	n.emit(ctx, TypeSubscriptionRenewed, map[string]interface{}{
		"user_id": userId.String(),
		"email":   email,
		"plan":    plan,
		"credits": credits,
	})
}

func (n *Notifier) SubscriptionCanceled(ctx context.Context, userId uuid.UUID, email, plan string) {
	n.emit(ctx, TypeSubscriptionCanceled, map[string]interface{}{
		"user_id": userId.String(),
		"email":   email,
		"plan":    plan,
	})
}

func (n *Notifier) ReferralCompleted(ctx context.Context, referrerId, referredId uuid.UUID, referrerEmail string, bonus int) {
	n.emit(ctx, TypeReferralCompleted, map[string]interface{}{
		"referrer_id":    referrerId.String(),
		"referred_id":    referredId.String(),
		"referrer_email": referrerEmail,
		"bonus":          bonus,
	})
}

func (n *Notifier) GenerationFinished(ctx context.Context, jobId, userId uuid.UUID, ok bool, images int) {
	eventType := TypeGenerationCompleted
	if !ok {
		eventType = TypeGenerationFailed
	}
	n.emit(ctx, eventType, map[string]interface{}{
		"job_id":  jobId.String(),
		"user_id": userId.String(),
		"images":  images,
	})
}
