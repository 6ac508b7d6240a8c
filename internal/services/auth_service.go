package services

import (
	"context"
	"errors"
	"time"

	"github.com/acadops/timetable-backend/internal/auth"
	"github.com/acadops/timetable-backend/internal/mailer"
	"github.com/acadops/timetable-backend/internal/models"
	repo "github.com/acadops/timetable-backend/internal/repository"
)

// RequestMeta is the best-effort client context attached to explicit audit
// entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func (m RequestMeta) ipPtr() *string {
	if m.IP == "" {
		return nil
	}
	return &m.IP
}

func (m RequestMeta) uaPtr() *string {
	if m.UserAgent == "" {
		return nil
	}
	return &m.UserAgent
}

type AuthService struct {
	users repo.Users
	tm    *auth.TokenManager
	audit *AuditService
	mail  mailer.Mailer
}

func NewAuthService(users repo.Users, tm *auth.TokenManager, audit *AuditService, mail mailer.Mailer) *AuthService {
	return &AuthService{users: users, tm: tm, audit: audit, mail: mail}
}

// Login verifies credentials, bumps last_login and appends a "login" entry.
// Failed attempts append nothing.
func (s *AuthService) Login(ctx context.Context, username, password string, meta RequestMeta) (models.User, string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", err
	}
	if !auth.VerifyPassword(password, u.HashedPassword) {
		return models.User{}, "", ErrInvalidCredentials
	}
	if !u.IsActive {
		return models.User{}, "", ErrInactiveAccount
	}

	token, _, err := s.tm.Issue(u)
	if err != nil {
		return models.User{}, "", err
	}

	now := time.Now()
	u.LastLogin = &now
	if err := s.users.Update(ctx, u); err != nil {
		return models.User{}, "", err
	}

	s.audit.Record(ctx, models.NewAuditEntry{
		ActorID:   &u.ID,
		Action:    models.ActionLogin,
		Changes:   map[string]any{"username": u.Username},
		IPAddress: meta.ipPtr(),
		UserAgent: meta.uaPtr(),
	})
	return u, token, nil
}

// Logout only leaves an audit entry; tokens are stateless and stay valid
// until expiry.
func (s *AuthService) Logout(ctx context.Context, userID int64, meta RequestMeta) {
	s.audit.Record(ctx, models.NewAuditEntry{
		ActorID:   &userID,
		Action:    models.ActionLogout,
		IPAddress: meta.ipPtr(),
		UserAgent: meta.uaPtr(),
	})
}

// GetUser resolves the authenticated principal, rejecting inactive accounts.
func (s *AuthService) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if !u.IsActive {
		return models.User{}, ErrInactiveAccount
	}
	return u, nil
}

// Refresh issues a new token with a fresh expiry for the same principal.
func (s *AuthService) Refresh(ctx context.Context, userID int64) (string, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	token, _, err := s.tm.Issue(u)
	return token, err
}

// ForgotPassword stores a fresh 30-minute reset token and hands it to the
// mailer. The caller's response must not depend on whether an account
// exists, so an unknown or inactive email is not an error.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return err
	}
	expiry := auth.ResetTokenExpiry(time.Now())
	u.ResetToken = &token
	u.ResetTokenExpiresAt = &expiry
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	userType := "user"
	s.audit.Record(ctx, models.NewAuditEntry{
		ActorID:    &u.ID,
		Action:     models.ActionForgotPassword,
		EntityType: &userType,
		EntityID:   &u.ID,
		Changes:    map[string]any{"message": "password reset requested"},
		IPAddress:  meta.ipPtr(),
		UserAgent:  meta.uaPtr(),
	})
	return s.mail.SendPasswordReset(u.Email, token)
}

// ResetPassword exchanges a reset token for a new password hash. The token
// is single use: it is cleared on success, and also on detection of expiry.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string, meta RequestMeta) error {
	u, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if auth.ResetTokenExpired(u.ResetTokenExpiresAt, time.Now()) {
		u.ResetToken = nil
		u.ResetTokenExpiresAt = nil
		if err := s.users.Update(ctx, u); err != nil {
			return err
		}
		return ErrExpiredResetToken
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.HashedPassword = hash
	u.ResetToken = nil
	u.ResetTokenExpiresAt = nil
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	userType := "user"
	s.audit.Record(ctx, models.NewAuditEntry{
		ActorID:    &u.ID,
		Action:     models.ActionPasswordReset,
		EntityType: &userType,
		EntityID:   &u.ID,
		Changes:    map[string]any{"message": "password reset completed"},
		IPAddress:  meta.ipPtr(),
		UserAgent:  meta.uaPtr(),
	})
	return nil
}
