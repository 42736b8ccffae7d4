package mailer

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer sends plain-text mail. Callers treat failures as non-fatal: the
// triggering operation logs and continues.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPConfig holds the connection details for an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates a new SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send delivers a single message. Uses PLAIN auth when a username is
// configured, unauthenticated relay otherwise.
func (m *SMTPMailer) Send(to, subject, body string) error {
	addr := m.cfg.Host + ":" + m.cfg.Port

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used when no
// SMTP relay is configured and in tests.
type LogMailer struct{}

// NewLogMailer creates a new LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send logs the message and reports success.
func (m *LogMailer) Send(to, subject, body string) error {
	log.Printf("mail (not sent, no SMTP configured) to=%s subject=%q", to, subject)
	return nil
}
