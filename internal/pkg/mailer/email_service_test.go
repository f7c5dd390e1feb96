package mailer

import (
	"bytes"
	"errors"
	"testing"

	"fanova-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureSender struct {
	messages []*gomail.Message
	err      error
}

func (c *captureSender) DialAndSend(m ...*gomail.Message) error {
	c.messages = append(c.messages, m...)
	return c.err
}

func newTestService(s *captureSender) *emailService {
	return &emailService{
		dialer:      s,
		senderEmail: "Fanova <noreply@fanova.ai>",
		frontendURL: "https://app.fanova.ai",
		logger:      logger.NewNopLogger(),
	}
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSendSubscriptionActivated(t *testing.T) {
	capture := &captureSender{}
	require.NoError(t, newTestService(capture).SendSubscriptionActivated("ada@example.com", "Essential", 300))

	require.Len(t, capture.messages, 1)
	m := capture.messages[0]
	assert.Equal(t, []string{"ada@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Welcome to Fanova Essential"}, m.GetHeader("Subject"))
	assert.Contains(t, render(t, m), "300 credits")
}

func TestSendAccountBanned_EscapesReason(t *testing.T) {
	capture := &captureSender{}
	require.NoError(t, newTestService(capture).SendAccountBanned("x@example.com", "<script>spam</script>"))

	body := render(t, capture.messages[0])
	assert.NotContains(t, body, "<script>")
}

func TestSend_PropagatesError(t *testing.T) {
	capture := &captureSender{err: errors.New("smtp down")}
	err := newTestService(capture).SendReferralBonus("x@example.com", 20)
	assert.EqualError(t, err, "smtp down")
}
