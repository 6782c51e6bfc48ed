package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

type Email struct {
	Subject string
	Body    string
	From    string
	To      []string
}

// Mailer sends transactional mail. Every caller in this codebase treats a
// send failure as non-fatal.
type Mailer interface {
	SendMail(ctx context.Context, e *Email) error
}

type Mailgun struct {
	domain  string
	apiKey  string
	apiBase string
	from    string
}

func NewMailer(domain, apiKey, apiBase, from string) *Mailgun {
	return &Mailgun{
		domain:  domain,
		apiKey:  apiKey,
		apiBase: apiBase,
		from:    from,
	}
}

func (m *Mailgun) SendMail(ctx context.Context, e *Email) error {
	mg := mailgun.NewMailgun(m.domain, m.apiKey)
	if m.apiBase != "" {
		mg.SetAPIBase(m.apiBase)
	}

	from := e.From
	if from == "" {
		from = m.from
	}
	message := mailgun.NewMessage(from, e.Subject, e.Body, e.To...)

	sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, _, err := mg.Send(sendCtx, message)
	return err
}

// Welcome builds the post-registration mail.
func Welcome(to, displayName, tenantName string) *Email {
	return &Email{
		Subject: "Welcome to Planora",
		Body: fmt.Sprintf("Hi %s,\n\nYour workspace %q is ready. Sign in to start planning.\n\nThe Planora team",
			displayName, tenantName),
		To: []string{to},
	}
}

// PasswordReset builds the reset-link mail. The link is valid for one hour.
func PasswordReset(to, resetURL string) *Email {
	return &Email{
		Subject: "Reset your Planora password",
		Body: fmt.Sprintf("A password reset was requested for this address.\n\n"+
			"Reset it here within the next hour: %s\n\n"+
			"If you did not request this, you can ignore this message.", resetURL),
		To: []string{to},
	}
}

// TwoFactorChanged notifies the account owner that 2FA state changed.
func TwoFactorChanged(to string, enabled bool) *Email {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return &Email{
		Subject: "Two-factor authentication " + state,
		Body: fmt.Sprintf("Two-factor authentication was just %s on your Planora account.\n\n"+
			"If this wasn't you, reset your password immediately.", state),
		To: []string{to},
	}
}
