// Package mailer delivers password-reset tokens out of band. The API
// response never carries the token; swapping in an SMTP implementation is a
// deployment concern.
package mailer

import "log/slog"

type Mailer interface {
	SendPasswordReset(email, token string) error
}

// LogMailer writes the reset token to the operational log instead of sending
// mail. Development only.
type LogMailer struct {
	Log *slog.Logger
}

func (m LogMailer) SendPasswordReset(email, token string) error {
	m.Log.Info("password reset requested", "email", email, "reset_token", token)
	return nil
}
