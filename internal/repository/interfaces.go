package repository

import (
	"context"
	"errors"
	"time"

	"github.com/acadops/timetable-backend/internal/models"
)

// ErrNotFound is returned for lookups that match no row.
var ErrNotFound = errors.New("not found")

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByResetToken(ctx context.Context, token string) (models.User, error)
	List(ctx context.Context, f UserFilter, skip, limit int) ([]models.User, int64, error)
	Update(ctx context.Context, u models.User) error
	Delete(ctx context.Context, id int64) error
}

type UserFilter struct {
	Role     *models.Role
	IsActive *bool
}

// AuditEntries is an append-only store; there is deliberately no update or
// delete operation.
type AuditEntries interface {
	Insert(ctx context.Context, e models.NewAuditEntry) (models.AuditEntry, error)
	List(ctx context.Context, f AuditFilter, skip, limit int) ([]models.AuditEntry, int64, error)
	GetByID(ctx context.Context, id int64) (models.AuditEntry, error)
}

// AuditFilter is a conjunction: every set field must match.
type AuditFilter struct {
	ActorID    *int64
	EntityType string
	Action     string
	Start      *time.Time
	End        *time.Time
}
