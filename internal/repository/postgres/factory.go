package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/acadops/timetable-backend/internal/repository"
)

type Repositories struct {
	Users        repo.Users
	AuditEntries repo.AuditEntries
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        &usersRepo{pool},
		AuditEntries: &auditEntriesRepo{pool},
	}
}
