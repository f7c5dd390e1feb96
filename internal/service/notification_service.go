package service

import (
	"context"
	"fmt"
	"strings"

	"fanova-be/internal/pkg/logger"
	"fanova-be/internal/pkg/mailer"
	"fanova-be/pkg/events"
	pktNats "fanova-be/pkg/nats"
	"fanova-be/pkg/pricing"
)

const notificationDurable = "fanova-mailer"

// EventSubscriber is implemented by *nats.Subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// NotificationService turns account and billing events into transactional email.
type NotificationService struct {
	subscriber EventSubscriber
	mailer     mailer.IEmailService
	logger     logger.ILogger
}

func NewNotificationService(sub EventSubscriber, mail mailer.IEmailService, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		mailer:     mail,
		logger:     log,
	}
}

// Start begins listening to the event bus.
func (s *NotificationService) Start(ctx context.Context) error {
	if s.subscriber == nil {
		s.logger.Warn("NOTIFICATION", "No event subscriber configured, email notifications are disabled", nil)
		return nil
	}
	if err := s.subscriber.Subscribe(ctx, "events.>", notificationDurable, s.HandleEvent); err != nil {
		s.logger.Error("NOTIFICATION", "Failed to start notification subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("NOTIFICATION", "Notification service started, listening to events.>", nil)
	return nil
}

// HandleEvent sends the email for event. Returning an error makes NATS redeliver the message.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), "events.")
	payload := event.Payload()

	var err error
	switch typeCode {
	case events.TypeSubscriptionActivated:
		email := stringField(payload, "email")
		if email == "" {
			return nil
		}
		err = s.mailer.SendSubscriptionActivated(email, planDisplayName(stringField(payload, "plan")), intField(payload, "credits"))
	case events.TypeReferralCompleted:
		email := stringField(payload, "referrer_email")
		if email == "" {
			return nil
		}
		err = s.mailer.SendReferralBonus(email, intField(payload, "bonus"))
	case events.TypeUserBanned:
		email := stringField(payload, "email")
		if email == "" {
			return nil
		}
		err = s.mailer.SendAccountBanned(email, stringField(payload, "reason"))
	default:
		return nil
	}

	if err != nil {
		s.logger.Error("NOTIFICATION", fmt.Sprintf("Failed to send email for %s", typeCode), map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info("NOTIFICATION", fmt.Sprintf("Sent email for %s", typeCode), nil)
	return nil
}

func stringField(payload map[string]interface{}, key string) string {
	s, _ := payload[key].(string)
	return s
}

// intField accepts both in-process ints and JSON-decoded float64 values.
func intField(payload map[string]interface{}, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func planDisplayName(plan string) string {
	if pt, ok := pricing.ParsePlan(plan); ok {
		if p, ok := pricing.Lookup(pt); ok {
			return p.Name
		}
	}
	return plan
}
