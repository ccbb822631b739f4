package mail

import (
	"context"
	"fmt"
	"sync"
	"time"

	gomail "github.com/wneessen/go-mail"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/ports"
)

// Options describes the SMTP relay and the envelope.
type Options struct {
	Host      string
	Port      int
	Username  string
	Password  string
	SSL       bool
	Sender    string
	Receivers []string
	Timeout   time.Duration
}

// SMTPMailer sends plain-text mail; sends are serialized.
type SMTPMailer struct {
	opts Options
	mu   sync.Mutex
	dial func(ctx context.Context, msg *gomail.Msg) error
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a mailer for the given relay.
func NewSMTPMailer(opts Options) *SMTPMailer {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	m := &SMTPMailer{opts: opts}
	m.dial = m.dialAndSend
	return m
}

// Send delivers one message to every configured receiver.
func (m *SMTPMailer) Send(ctx context.Context, subject, body string) error {
	if m.opts.Host == "" || len(m.opts.Receivers) == 0 {
		return &domain.Error{Kind: domain.KindNotificationDispatch, Detail: "smtp mailer misconfigured"}
	}

	msg, err := m.build(subject, body)
	if err != nil {
		return &domain.Error{Kind: domain.KindNotificationDispatch, Detail: "build message", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dial(ctx, msg); err != nil {
		return &domain.Error{Kind: domain.KindNotificationDispatch, Detail: "send mail", Err: err}
	}
	return nil
}

func (m *SMTPMailer) build(subject, body string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.opts.Sender); err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	if err := msg.To(m.opts.Receivers...); err != nil {
		return nil, fmt.Errorf("receivers: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *gomail.Msg) error {
	opts := []gomail.Option{
		gomail.WithPort(m.opts.Port),
		gomail.WithTimeout(m.opts.Timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if m.opts.SSL {
		opts = append(opts, gomail.WithSSL())
	}
	if m.opts.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(m.opts.Username),
			gomail.WithPassword(m.opts.Password),
		)
	}

	client, err := gomail.NewClient(m.opts.Host, opts...)
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
