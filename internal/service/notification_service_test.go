package service

import (
	"context"
	"errors"
	"testing"

	"fanova-be/pkg/events"
	pktNats "fanova-be/pkg/nats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	kind, to, detail string
	amount           int
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) SendSubscriptionActivated(to, plan string, credits int) error {
	m.sent = append(m.sent, sentMail{"subscription", to, plan, credits})
	return m.err
}

func (m *recordingMailer) SendReferralBonus(to string, bonus int) error {
	m.sent = append(m.sent, sentMail{"referral", to, "", bonus})
	return m.err
}

func (m *recordingMailer) SendAccountBanned(to, reason string) error {
	m.sent = append(m.sent, sentMail{"banned", to, reason, 0})
	return m.err
}

type stubSubscriber struct {
	subject, durable string
	handler          pktNats.EventHandler
}

func (s *stubSubscriber) Subscribe(_ context.Context, subject, durable string, handler pktNats.EventHandler) error {
	s.subject, s.durable, s.handler = subject, durable, handler
	return nil
}

func TestNotification_SendsMailForKnownEvents(t *testing.T) {
	mail := &recordingMailer{}
	sub := &stubSubscriber{}
	svc := NewNotificationService(sub, mail, nopLogger)
	ctx := context.Background()

	require.NoError(t, svc.Start(ctx))
	assert.Equal(t, "events.>", sub.subject)
	require.NotNil(t, sub.handler)

	// Values arrive as float64 after a JSON round trip.
	require.NoError(t, sub.handler(ctx, events.New(events.TypeSubscriptionActivated, map[string]interface{}{
		"email": "ada@example.com", "plan": "essential", "credits": float64(300),
	})))
	require.NoError(t, sub.handler(ctx, events.New(events.TypeReferralCompleted, map[string]interface{}{
		"referrer_email": "bob@example.com", "bonus": 20,
	})))
	require.NoError(t, sub.handler(ctx, events.New(events.TypeUserBanned, map[string]interface{}{
		"email": "eve@example.com", "reason": "spam",
	})))
	require.NoError(t, sub.handler(ctx, events.New(events.TypeGenerationCompleted, map[string]interface{}{
		"user_id": "x",
	})))

	assert.Equal(t, []sentMail{
		{"subscription", "ada@example.com", "Essential", 300},
		{"referral", "bob@example.com", "", 20},
		{"banned", "eve@example.com", "spam", 0},
	}, mail.sent)
}

func TestNotification_MailerFailureIsRetried(t *testing.T) {
	mail := &recordingMailer{err: errors.New("smtp down")}
	svc := NewNotificationService(nil, mail, nopLogger)

	err := svc.HandleEvent(context.Background(), events.New(events.TypeUserBanned, map[string]interface{}{"email": "eve@example.com"}))
	assert.Error(t, err)

	// Missing recipients are dropped rather than redelivered.
	assert.NoError(t, svc.HandleEvent(context.Background(), events.New(events.TypeUserBanned, map[string]interface{}{})))
	assert.NoError(t, svc.Start(context.Background()))
}
