package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"

	"WeatherAlertWatch/internal/domain"
)

func TestSendBuildsPlainTextMessage(t *testing.T) {
	t.Parallel()

	m := NewSMTPMailer(Options{
		Host:      "smtp.example.org",
		Port:      25,
		Sender:    "天氣速報 <sender@example.org>",
		Receivers: []string{"ops@example.org"},
	})

	var sent *gomail.Msg
	m.dial = func(ctx context.Context, msg *gomail.Msg) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "天氣速報通知", "訊息： ok"))
	require.NotNil(t, sent)

	var buf bytes.Buffer
	_, err := sent.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ops@example.org")
	assert.Contains(t, buf.String(), "text/plain")
}

func TestSendWrapsTransportError(t *testing.T) {
	t.Parallel()

	m := NewSMTPMailer(Options{Host: "smtp.example.org", Port: 25, Sender: "a@example.org", Receivers: []string{"b@example.org"}})
	m.dial = func(ctx context.Context, msg *gomail.Msg) error {
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), "s", "b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotificationDispatch))
}

func TestSendMisconfigured(t *testing.T) {
	t.Parallel()

	err := NewSMTPMailer(Options{}).Send(context.Background(), "s", "b")
	assert.True(t, errors.Is(err, domain.ErrNotificationDispatch))

	err = NewSMTPMailer(Options{Host: "h", Sender: "not an address", Receivers: []string{"b@example.org"}}).Send(context.Background(), "s", "b")
	assert.True(t, errors.Is(err, domain.ErrNotificationDispatch))
}
