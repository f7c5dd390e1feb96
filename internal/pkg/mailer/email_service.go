package mailer

import (
	"fmt"
	"html"

	"fanova-be/internal/pkg/logger"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendSubscriptionActivated(toEmail, planName string, credits int) error
	SendReferralBonus(toEmail string, bonus int) error
	SendAccountBanned(toEmail, reason string) error
}

// sender is the part of *gomail.Dialer the service needs.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer      sender
	senderEmail string
	frontendURL string
	logger      logger.ILogger
}

// NewEmailService dials the SMTP relay on every send. Resend's relay is smtp.resend.com:465 with user "resend".
func NewEmailService(host string, port int, username, password, senderEmail, frontendURL string, log logger.ILogger) IEmailService {
	d := gomail.NewDialer(host, port, username, password)
	d.SSL = port == 465

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		frontendURL: frontendURL,
		logger:      log,
	}
}

func (s *emailService) send(toEmail, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", wrap(body))

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Error("MAILER", "Failed to send email", map[string]interface{}{
			"to":      toEmail,
			"subject": subject,
			"error":   err.Error(),
		})
		return err
	}

	s.logger.Info("MAILER", "Email sent", map[string]interface{}{"to": toEmail, "subject": subject})
	return nil
}

func (s *emailService) SendSubscriptionActivated(toEmail, planName string, credits int) error {
	body := fmt.Sprintf(`
			<h2>Your %s plan is active</h2>
			<p>%d credits have been added to your account.</p>
			<a href="%s/dashboard" style="background-color: #7C3AED; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Start creating</a>`,
		html.EscapeString(planName), credits, s.frontendURL)
	return s.send(toEmail, "Welcome to Fanova "+planName, body)
}

func (s *emailService) SendReferralBonus(toEmail string, bonus int) error {
	body := fmt.Sprintf(`
			<h2>Someone joined with your link</h2>
			<p>You earned %d bonus credits. Thanks for spreading the word!</p>
			<p><a href="%s/referrals">See your referrals</a></p>`,
		bonus, s.frontendURL)
	return s.send(toEmail, "You earned referral credits", body)
}

func (s *emailService) SendAccountBanned(toEmail, reason string) error {
	if reason == "" {
		reason = "a violation of our terms of service"
	}
	body := fmt.Sprintf(`
			<h2>Your account has been suspended</h2>
			<p>Your Fanova account was suspended for %s.</p>
			<p>If you believe this is a mistake, reply to this email.</p>`,
		html.EscapeString(reason))
	return s.send(toEmail, "Your Fanova account has been suspended", body)
}

func wrap(inner string) string {
	return `<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">` + inner + `
		</div>`
}
