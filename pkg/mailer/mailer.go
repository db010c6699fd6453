package mailer

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/pkg/config"
)

// Message is a single outbound email with plain-text and HTML variants.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer performs a best-effort SMTP send and reports success or failure.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends messages through a configured SMTP relay.
type SMTPMailer struct {
	client   *gomail.Client
	from     string
	fromName string
}

// NewSMTP builds an SMTP-backed mailer from configuration.
func NewSMTP(cfg config.SMTPConfig) (*SMTPMailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(cfg.SendTimeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.User != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.User),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPMailer{client: client, from: cfg.From, fromName: cfg.FromName}, nil
}

// Send delivers the message. A single attempt is made; the caller decides
// how to treat a failure.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mail := gomail.NewMsg()
	if err := mail.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := mail.To(msg.To); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	mail.Subject(msg.Subject)
	mail.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		mail.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}

	if err := m.client.DialAndSendWithContext(ctx, mail); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}
