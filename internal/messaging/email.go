package messaging

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/gdg-garage/wedding-rsvp-api/internal/config"
	"github.com/gdg-garage/wedding-rsvp-api/internal/models"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailProvider struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

func NewEmailProvider(cfg config.SMTPConfig) *EmailProvider {
	return &EmailProvider{cfg: cfg, sendMail: smtp.SendMail}
}

func (p *EmailProvider) Name() string            { return "email" }
func (p *EmailProvider) Channel() models.Channel { return models.ChannelEmail }

func (p *EmailProvider) IsConfigured() bool {
	return p.cfg.Host != "" && p.cfg.From != ""
}

func (p *EmailProvider) Recipient(msg Message) string {
	return strings.TrimSpace(msg.Email)
}

func (p *EmailProvider) Send(ctx context.Context, msg Message) error {
	to := p.Recipient(msg)
	if to == "" {
		return fmt.Errorf("guest has no email address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	if err := p.sendMail(addr, auth, p.cfg.From, []string{to}, buildMail(p.cfg.From, to, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMail(from, to string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
