package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent chan string
	err  error
}

func (r *recordingMailer) Send(ctx context.Context, to, subject, body string) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("dispatch must bound the send with a deadline")
	}
	r.sent <- to
	return r.err
}

func TestNewFallsBackToLogWithoutCredentials(t *testing.T) {
	m, err := New(Options{Provider: "gmail"})
	require.NoError(t, err)
	assert.IsType(t, logMailer{}, m)

	m, err = New(Options{Provider: "log", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.IsType(t, logMailer{}, m)
}

func TestNewCustomSMTPRequiresHost(t *testing.T) {
	_, err := New(Options{Provider: "smtp", Username: "u", Password: "p"})
	assert.Error(t, err)
}

func TestNewBuildsSMTPMailer(t *testing.T) {
	m, err := New(Options{Provider: "outlook", Username: "club@example.edu", Password: "secret"})
	require.NoError(t, err)
	assert.IsType(t, &smtpMailer{}, m)
}

func TestDispatchSwallowsErrors(t *testing.T) {
	rec := &recordingMailer{sent: make(chan string, 1), err: errors.New("smtp down")}

	Dispatch(rec, time.Second, "a@b.c", "subject", "body")

	select {
	case to := <-rec.sent:
		assert.Equal(t, "a@b.c", to)
	case <-time.After(2 * time.Second):
		t.Fatal("mail was not dispatched")
	}
}
