package services

import (
	"context"
	"errors"
	"strings"

	"github.com/acadops/timetable-backend/internal/auth"
	"github.com/acadops/timetable-backend/internal/models"
	repo "github.com/acadops/timetable-backend/internal/repository"
)

// UserService implements admin user management. Mutations append their own
// before/after audit entries on top of whatever the request interceptor
// captures at the HTTP layer.
type UserService struct {
	users repo.Users
	audit *AuditService
}

func NewUserService(users repo.Users, audit *AuditService) *UserService {
	return &UserService{users: users, audit: audit}
}

type CreateUser struct {
	Username  string
	Email     string
	Password  string
	FullName  string
	Role      models.Role
	IsActive  bool
	FacultyID *int64
	StudentID *int64
}

type UpdateUser struct {
	Email     *string
	FullName  *string
	Role      *models.Role
	IsActive  *bool
	FacultyID *int64
	StudentID *int64
}

func (s *UserService) Create(ctx context.Context, actorID int64, in CreateUser, meta RequestMeta) (models.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return models.User{}, ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return models.User{}, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return models.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.users.Create(ctx, models.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		FullName:       in.FullName,
		Role:           in.Role,
		IsActive:       in.IsActive,
		FacultyID:      in.FacultyID,
		StudentID:      in.StudentID,
	})
	if err != nil {
		return models.User{}, err
	}

	s.recordChange(ctx, actorID, models.ActionCreate, u.ID, map[string]any{
		"after": publicFields(u),
	}, meta)
	return u, nil
}

func (s *UserService) List(ctx context.Context, f repo.UserFilter, skip, limit int) ([]models.User, int64, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	return s.users.List(ctx, f, skip, limit)
}

func (s *UserService) Get(ctx context.Context, id int64) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, actorID, id int64, in UpdateUser, meta RequestMeta) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	before := publicFields(u)

	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.FacultyID != nil {
		u.FacultyID = in.FacultyID
	}
	if in.StudentID != nil {
		u.StudentID = in.StudentID
	}

	if err := s.users.Update(ctx, u); err != nil {
		return models.User{}, err
	}
	u, err = s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	s.recordChange(ctx, actorID, models.ActionUpdate, u.ID, map[string]any{
		"before": before,
		"after":  publicFields(u),
	}, meta)
	return u, nil
}

// UpdateProfile is the self-service update: only email and full name.
// Role and active status stay admin-only.
type UpdateProfile struct {
	Email    *string
	FullName *string
}

func (s *UserService) UpdateSelf(ctx context.Context, userID int64, in UpdateProfile, meta RequestMeta) (models.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	before := profileFields(u)

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if other, err := s.users.GetByEmail(ctx, email); err == nil && other.ID != userID {
			return models.User{}, ErrEmailTaken
		} else if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return models.User{}, err
		}
		u.Email = email
	}
	if in.FullName != nil {
		u.FullName = *in.FullName
	}

	if err := s.users.Update(ctx, u); err != nil {
		return models.User{}, err
	}
	u, err = s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	s.recordChange(ctx, userID, models.ActionUpdate, userID, map[string]any{
		"before": before,
		"after":  profileFields(u),
	}, meta)
	return u, nil
}

// ChangePassword swaps the caller's password after verifying the current
// one. The audit entry carries no password material.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, current, newPassword string, meta RequestMeta) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(current, u.HashedPassword) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	u.HashedPassword = hash
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}

	s.recordChange(ctx, userID, models.ActionUpdate, userID, map[string]any{
		"action_description": "password changed",
	}, meta)
	return nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id int64, meta RequestMeta) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.recordChange(ctx, actorID, models.ActionDelete, id, map[string]any{
		"before": publicFields(u),
	}, meta)
	return nil
}

func (s *UserService) recordChange(ctx context.Context, actorID int64, action string, userID int64, changes map[string]any, meta RequestMeta) {
	userType := "user"
	s.audit.Record(ctx, models.NewAuditEntry{
		ActorID:    &actorID,
		Action:     action,
		EntityType: &userType,
		EntityID:   &userID,
		Changes:    changes,
		IPAddress:  meta.ipPtr(),
		UserAgent:  meta.uaPtr(),
	})
}

// profileFields is the self-service slice of a user's audit projection.
func profileFields(u models.User) map[string]any {
	return map[string]any{
		"email":     u.Email,
		"full_name": u.FullName,
	}
}

// publicFields is the audit-safe projection of a user: no hash, no reset
// token.
func publicFields(u models.User) map[string]any {
	return map[string]any{
		"username":  u.Username,
		"email":     u.Email,
		"full_name": u.FullName,
		"role":      string(u.Role),
		"is_active": u.IsActive,
	}
}
