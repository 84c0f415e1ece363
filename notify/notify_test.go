package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"rental-watch/utils"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestNewEmailNotifierValidates(t *testing.T) {
	_, err := NewEmailNotifier(EmailConfig{Host: "smtp.example.com", Port: 587, From: "a@example.com"})
	assert.Error(t, err, "no recipients")

	_, err = NewEmailNotifier(EmailConfig{Port: 587, From: "a@example.com", To: []string{"b@example.com"}})
	assert.Error(t, err, "no host")

	n, err := NewEmailNotifier(EmailConfig{Host: "smtp.example.com", Port: 587, From: "a@example.com", To: []string{"b@example.com"}})
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestEmailNotifierSendsLink(t *testing.T) {
	sender := &fakeSender{}
	n := &EmailNotifier{
		cfg:    EmailConfig{From: "bot@example.com", To: []string{"me@example.com"}},
		dialer: sender,
	}

	require.NoError(t, n.Notify(context.Background(), "ygl.is/1"))
	require.Len(t, sender.sent, 1)

	var buf bytes.Buffer
	_, err := sender.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "https://ygl.is/1")
	assert.Equal(t, []string{"New listing: ygl.is/1"}, sender.sent[0].GetHeader("Subject"))
}

func TestEmailNotifierWrapsSendError(t *testing.T) {
	boom := errors.New("smtp down")
	n := &EmailNotifier{cfg: EmailConfig{From: "a", To: []string{"b"}}, dialer: &fakeSender{err: boom}}

	assert.ErrorIs(t, n.Notify(context.Background(), "ygl.is/1"), boom)
}

func TestLogNotifierNeverFails(t *testing.T) {
	assert.NoError(t, NewLogNotifier(utils.NewNopLogger()).Notify(context.Background(), "ygl.is/1"))
}
