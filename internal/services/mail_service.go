package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"inkblog/internal/config"

	"github.com/rs/zerolog"
)

// ErrMailDisabled is returned by Send when SMTP is not configured.
var ErrMailDisabled = errors.New("mail service disabled")

// Mailer delivers one plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailService 通过 SMTP 发送邮件
type MailService struct {
	cfg      config.MailConfig
	siteName string
	log      zerolog.Logger
}

func NewMailService(cfg config.MailConfig, siteName string, log zerolog.Logger) *MailService {
	l := log.With().Str("component", "mail").Logger()
	if !cfg.Enabled() {
		l.Warn().Msg("MailService disabled: missing SMTP settings")
	}
	return &MailService{cfg: cfg, siteName: siteName, log: l}
}

func (s *MailService) Enabled() bool {
	return s.cfg.Enabled()
}

// Send blocks until the SMTP exchange finishes.
func (s *MailService) Send(ctx context.Context, to, subject, body string) error {
	if !s.Enabled() {
		return ErrMailDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	msg := buildMessage(s.siteName, s.cfg.From, to, subject, body)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	s.log.Debug().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

func buildMessage(siteName, from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "From: %s <%s>\r\n", siteName, from)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}
