package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"storefront-agent/internal/logging"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
}

// SMTPMailer sends through an authenticated SMTP relay with STARTTLS negotiated by net/smtp.
type SMTPMailer struct {
	templates
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.User, []string{msg.To}, m.compose(msg)); err != nil {
		logging.Error(ctx).Err(err).Str("to", msg.To).Msg("smtp send failed")
		return fmt.Errorf("send email: %w", err)
	}

	logging.Info(ctx).Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

func (m *SMTPMailer) compose(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %q <%s>\r\n", m.cfg.FromName, m.cfg.User)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}

// LogMailer stands in when no SMTP credentials are configured: it logs and reports success.
type LogMailer struct {
	templates
}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	logging.Info(ctx).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Bool("simulated", true).
		Msg("email simulation, no credentials configured")
	return nil
}
