package auth

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// ResetTokenTTL is the fixed lifetime of a password reset token.
const ResetTokenTTL = 30 * time.Minute

// GenerateResetToken returns a URL-safe token with 256 bits of entropy.
// Single use is enforced by the consumer clearing it after a successful
// reset.
func GenerateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func ResetTokenExpiry(now time.Time) time.Time {
	return now.Add(ResetTokenTTL)
}

// ResetTokenExpired reports whether a token expiry has passed. A missing
// expiry counts as expired.
func ResetTokenExpired(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return true
	}
	return now.After(*expiresAt)
}
