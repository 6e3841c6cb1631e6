package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/artem13815/blog/pkg/config"
)

// Sender dispatches transactional mail via SMTP.
type Sender struct {
	cfg config.Config
	log *logrus.Logger
}

// NewSender creates a new SMTP mail sender.
func NewSender(cfg config.Config, log *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, log: log}
}

// SendPasswordReset mails a reset link embedding the plaintext token.
func (s *Sender) SendPasswordReset(ctx context.Context, to, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.FrontendURL, token)

	e := email.NewEmail()
	e.From = s.cfg.FromEmail
	e.To = []string{to}
	e.Subject = "Password Reset Request"
	e.HTML = []byte(fmt.Sprintf(`
		<p>You requested a password reset for your account.</p>
		<p>Click <a href="%s">this link</a> to reset your password.</p>
		<p>This link will expire in 1 hour.</p>
		<p>If you did not request this, please ignore this email.</p>
	`, resetURL))

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.log.WithField("to", to).WithError(err).Error("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}
	s.log.WithField("to", to).Info("password reset email sent")
	return nil
}
