package email

import (
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhall/config"
)

type sent struct {
	addr string
	to   []string
	msg  string
}

func newTestService(fail bool) (*EmailService, *[]sent) {
	cfg := config.DefaultConfig()
	cfg.SMTPHost = "smtp.union.org"
	cfg.SMTPFrom = "noreply@union.org"
	cfg.Domain = "https://union.org/"

	var out []sent
	e := NewEmailService(cfg)
	e.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		if fail {
			return errors.New("connection refused")
		}
		out = append(out, sent{addr: addr, to: to, msg: string(msg)})
		return nil
	}
	return e, &out
}

func TestSendPasswordReset(t *testing.T) {
	e, out := newTestService(false)

	require.NoError(t, e.SendPasswordReset("lee@union.org", "tok123"))
	require.Len(t, *out, 1)
	m := (*out)[0]
	assert.Equal(t, "smtp.union.org:587", m.addr)
	assert.Equal(t, []string{"lee@union.org"}, m.to)
	assert.Contains(t, m.msg, "Subject: Reset your password")
	assert.Contains(t, m.msg, "https://union.org/#tab=home&reset=tok123")
}

func TestSendFailureIsWrapped(t *testing.T) {
	e, _ := newTestService(true)
	err := e.SendApproved("lee@union.org", "Lee")
	assert.ErrorContains(t, err, "lee@union.org")
}

func TestDisabledServiceDoesNotSend(t *testing.T) {
	e := NewEmailService(config.DefaultConfig())
	called := false
	e.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	assert.False(t, e.Enabled())
	assert.NoError(t, e.SendSignupReceived("lee@union.org", "Lee"))
	assert.False(t, called)

	var nilService *EmailService
	assert.NoError(t, nilService.SendSignupReceived("lee@union.org", "Lee"))
}
