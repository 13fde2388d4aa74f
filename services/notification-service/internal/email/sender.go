package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Sender interface {
	Send(to []string, subject string, body string) error
}

// SMTPSender delivers mail over plain SMTP. Local development runs
// against Mailpit, production against the pharmacy's relay.
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
}

type Config struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

func NewSMTPSender(cfg Config) *SMTPSender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@farmaline.local"
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, strings.TrimSpace(cfg.Host))
	}
	return &SMTPSender{
		addr: strings.TrimSpace(cfg.Host) + ":" + strings.TrimSpace(cfg.Port),
		from: from,
		auth: auth,
	}
}

func (s *SMTPSender) Send(to []string, subject string, body string) error {
	if len(to) == 0 {
		return fmt.Errorf("email: no recipients")
	}
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, s.auth, s.from, to, []byte(msg))
}

// buildMessage assembles a minimal RFC 5322 text message.
func buildMessage(from string, to []string, subject, body string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.String()
}
