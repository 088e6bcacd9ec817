package notify

import (
	"context"
	"fmt"
	"strings"

	mail "github.com/wneessen/go-mail"

	"github.com/subtrack-hq/subtrack/internal/config"
)

// SMTPSender delivers messages through an SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSender returns an SMTP sender when a host is configured, otherwise a
// NopSender.
func NewSender(cfg config.SMTPConfig) Sender {
	if strings.TrimSpace(cfg.Host) == "" {
		return NopSender{}
	}
	return &SMTPSender{cfg: cfg}
}

// Send delivers one message. The SMTP connection is established per send;
// notification volume here is a handful of mails per day.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return fmt.Errorf("notify: missing recipient")
	}

	m := mail.NewMsg()
	if errFrom := m.From(s.cfg.From); errFrom != nil {
		return fmt.Errorf("notify: from address: %w", errFrom)
	}
	if errTo := m.To(to); errTo != nil {
		return fmt.Errorf("notify: to address: %w", errTo)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{mail.WithPort(s.cfg.Port)}
	if strings.TrimSpace(s.cfg.Username) != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, errClient := mail.NewClient(s.cfg.Host, opts...)
	if errClient != nil {
		return fmt.Errorf("notify: smtp client: %w", errClient)
	}
	if errSend := client.DialAndSendWithContext(ctx, m); errSend != nil {
		return fmt.Errorf("notify: send: %w", errSend)
	}
	return nil
}
